// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package callback defines the consumer-facing callback contract
// (spec §6 "Callback contract") and its capped-gas, revert-swallowing
// invocation semantics (spec §4.5).
package callback

import (
	"context"

	"github.com/luxfi/agentnet/ids"
	"github.com/luxfi/agentnet/ledger"
	"github.com/luxfi/agentnet/logging"
)

// Callback is implemented by request consumers. It is called at most
// once per request, with best-effort delivery.
type Callback interface {
	HandleResponse(ctx context.Context, requestID ids.ID, results [][]byte, status ledger.Status, finalCost uint64) error
}

// CallbackFunc adapts a function to the Callback interface.
type CallbackFunc func(ctx context.Context, requestID ids.ID, results [][]byte, status ledger.Status, finalCost uint64) error

func (f CallbackFunc) HandleResponse(ctx context.Context, requestID ids.ID, results [][]byte, status ledger.Status, finalCost uint64) error {
	return f(ctx, requestID, results, status, finalCost)
}

// GasMeteredInvoker invokes a Callback under a hard gas ceiling: the
// charged cost is always GasLimit*GasPrice, regardless of what the
// callback does, and a callback panic or error is recovered and
// logged, never propagated — settlement must proceed either way
// (spec §4.3c, §4.5, §7).
type GasMeteredInvoker struct {
	Log      logging.Logger
	GasLimit uint64
	GasPrice uint64
}

// Invoke calls cb.HandleResponse if cb is non-nil (a nil Callback
// means callbackAddress was empty: spec §4.5 "no call is made and no
// gas cost is charged") and returns the gas cost to charge.
func (inv *GasMeteredInvoker) Invoke(ctx context.Context, cb Callback, requestID ids.ID, results [][]byte, status ledger.Status, finalCost uint64) (gasCost uint64) {
	if cb == nil {
		return 0
	}
	gasCost = inv.GasLimit * inv.GasPrice

	defer func() {
		if r := recover(); r != nil {
			inv.Log.Warn("callback panicked, swallowing", "requestID", requestID.String(), "panic", r)
		}
	}()

	if err := cb.HandleResponse(ctx, requestID, results, status, finalCost); err != nil {
		inv.Log.Warn("callback returned an error, swallowing", "requestID", requestID.String(), "err", err)
	}

	return gasCost
}
