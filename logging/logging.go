// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package logging wraps github.com/luxfi/log with the small set of
// constructors this module's components need.
package logging

import "github.com/luxfi/log"

// Logger is the shared logging interface every component takes a
// dependency on.
type Logger = log.Logger

// NewNoOp returns a logger that discards everything, used by tests
// and by components that were not given an explicit logger.
func NewNoOp() Logger {
	return log.NewNoOpLogger()
}

// New returns a logger scoped to the given component name.
func New(component string) Logger {
	return log.NewLogger(component)
}
