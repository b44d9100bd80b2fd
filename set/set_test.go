// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package set

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOf(t *testing.T) {
	require := require.New(t)

	s1 := Of[int]()
	require.Equal(0, s1.Len())

	s2 := Of(1, 2, 3)
	require.Equal(3, s2.Len())
	require.True(s2.Contains(1))
	require.True(s2.Contains(2))
	require.True(s2.Contains(3))

	s3 := Of(1, 2, 2, 3, 3, 3)
	require.Equal(3, s3.Len())
}

func TestAddRemove(t *testing.T) {
	require := require.New(t)

	s := make(Set[string])
	s.Add("a", "b")
	require.Equal(2, s.Len())
	require.True(s.Contains("a"))

	s.Remove("a")
	require.Equal(1, s.Len())
	require.False(s.Contains("a"))
}

func TestList(t *testing.T) {
	require := require.New(t)

	s := Of(1, 2, 3)
	list := s.List()
	require.ElementsMatch([]int{1, 2, 3}, list)
}
