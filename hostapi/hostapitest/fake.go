// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hostapitest provides an in-memory hostapi.Client for tests
// and the scenario simulator.
package hostapitest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/luxfi/agentnet/hostapi"
)

// QuoteFunc computes the InvokeResult a Fake returns for a given
// container image and payload; tests supply their own to control
// success/failure and quoted cost per scenario.
type QuoteFunc func(containerImageURI string, payload []byte) hostapi.InvokeResult

// Fake is an in-memory hostapi.Client: Load always succeeds and
// returns a fresh handle, Invoke defers to Quote, Remove is a no-op
// that records the handle as torn down.
type Fake struct {
	Quote QuoteFunc

	mu       sync.Mutex
	handles  map[string]string // handle -> containerImageURI
	removed  map[string]bool
	nextID   int64
}

// NewFake returns a Fake using quote to answer every Invoke call. A
// nil quote defaults to always-successful, zero-cost responses.
func NewFake(quote QuoteFunc) *Fake {
	if quote == nil {
		quote = func(string, []byte) hostapi.InvokeResult {
			return hostapi.InvokeResult{Success: true}
		}
	}
	return &Fake{
		Quote:   quote,
		handles: make(map[string]string),
		removed: make(map[string]bool),
	}
}

func (f *Fake) Load(_ context.Context, containerImageURI string) (string, error) {
	id := atomic.AddInt64(&f.nextID, 1)
	handle := fmt.Sprintf("handle-%d", id)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.handles[handle] = containerImageURI
	return handle, nil
}

func (f *Fake) Invoke(_ context.Context, handle string, payload []byte) (hostapi.InvokeResult, error) {
	f.mu.Lock()
	image, ok := f.handles[handle]
	f.mu.Unlock()
	if !ok {
		return hostapi.InvokeResult{}, fmt.Errorf("unknown handle %q", handle)
	}
	return f.Quote(image, payload), nil
}

func (f *Fake) Remove(_ context.Context, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.handles[handle]; !ok {
		return fmt.Errorf("unknown handle %q", handle)
	}
	f.removed[handle] = true
	return nil
}

// Removed reports whether Remove has been called for handle.
func (f *Fake) Removed(handle string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.removed[handle]
}
