// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package committee

import "time"

// Clock is injected so tests can advance time deterministically
// instead of sleeping, mirroring the teacher's practice of threading a
// clock dependency into liveness-tracking constructors.
type Clock interface {
	Now() time.Time
}

// realClock is the production Clock, backed by time.Now.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RealClock is the default Clock used outside of tests.
var RealClock Clock = realClock{}
