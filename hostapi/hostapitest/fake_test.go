// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hostapitest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/agentnet/hostapi"
)

func TestFakeLoadInvokeRemove(t *testing.T) {
	require := require.New(t)

	f := NewFake(func(image string, payload []byte) hostapi.InvokeResult {
		return hostapi.InvokeResult{Result: payload, Success: true, Cost: uint64(len(image))}
	})

	handle, err := f.Load(context.Background(), "oci://agent:1")
	require.NoError(err)

	result, err := f.Invoke(context.Background(), handle, []byte("hi"))
	require.NoError(err)
	require.True(result.Success)
	require.Equal([]byte("hi"), result.Result)
	require.Equal(uint64(len("oci://agent:1")), result.Cost)

	require.False(f.Removed(handle))
	require.NoError(f.Remove(context.Background(), handle))
	require.True(f.Removed(handle))
}

func TestFakeInvokeUnknownHandle(t *testing.T) {
	require := require.New(t)
	f := NewFake(nil)
	_, err := f.Invoke(context.Background(), "nope", nil)
	require.Error(err)
}
