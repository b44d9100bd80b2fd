// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"

	"github.com/luxfi/agentnet/config"
	"github.com/luxfi/agentnet/consensus"
	"github.com/luxfi/agentnet/ids"
	"github.com/luxfi/agentnet/ledger"
)

// scenario is one named, self-checking run.
type scenario struct {
	name string
	run  func() error
}

func scenarios() []scenario {
	return []scenario{
		{"S1", scenarioS1},
		{"S2", scenarioS2},
		{"S3", scenarioS3},
		{"S4", scenarioS4},
		{"S5", scenarioS5},
		{"S6", scenarioS6},
	}
}

func expect(cond bool, format string, args ...interface{}) error {
	if !cond {
		return fmt.Errorf(format, args...)
	}
	return nil
}

// scenarioS1 is the happy path under Majority consensus: two matching
// successful responses out of three reach the default threshold.
func scenarioS1() error {
	ctx := context.Background()
	h := newHarness(3, config.DefaultParameters())

	deposit := h.params.MaxPerAgentFee * 3
	requestID, err := h.engine.CreateRequest(ctx, nodeID(50), h.agent, []byte("payload"), ids.EmptyNodeID, "", deposit, ledger.ConsensusMajority, nil)
	if err != nil {
		return err
	}
	req, _ := h.engine.GetRequest(requestID)
	receipt := ids.Hash256([]byte("OK"))
	if err := h.engine.SubmitResponse(ctx, requestID, req.Subcommittee[0], []byte("OK"), receipt, true, 100); err != nil {
		return err
	}
	if err := h.engine.SubmitResponse(ctx, requestID, req.Subcommittee[1], []byte("OK"), receipt, true, 200); err != nil {
		return err
	}

	req, _ = h.engine.GetRequest(requestID)
	if err := expect(req.Status == ledger.StatusSuccess, "status = %s, want Success", req.Status); err != nil {
		return err
	}
	validatorCosts := uint64(150 * 3)
	if err := expect(h.members.PendingBalance(req.Subcommittee[0]) == validatorCosts*7000/config.BpsDenominator/3, "unexpected runner share"); err != nil {
		return err
	}
	return nil
}

// scenarioS2 is Threshold mode: heterogeneous result bytes still
// finalize Success once threshold-many succeed, regardless of content.
func scenarioS2() error {
	ctx := context.Background()
	params := config.DefaultParameters()
	h := newHarness(3, params)

	deposit := params.MaxPerAgentFee * 3
	requestID, err := h.engine.CreateAdvancedRequest(ctx, nodeID(50), h.agent, nil, ids.EmptyNodeID, "", deposit, ledger.ConsensusThreshold, 3, 3, nil)
	if err != nil {
		return err
	}
	req, _ := h.engine.GetRequest(requestID)
	costs := []uint64{100, 105, 102}
	results := [][]byte{[]byte("A"), []byte("B"), []byte("C")}
	for i, v := range req.Subcommittee {
		if err := h.engine.SubmitResponse(ctx, requestID, v, results[i], ids.Hash256(results[i]), true, costs[i]); err != nil {
			return err
		}
	}
	req, _ = h.engine.GetRequest(requestID)
	if err := expect(req.Status == ledger.StatusSuccess, "status = %s, want Success", req.Status); err != nil {
		return err
	}
	return expect(len(req.Responses) == 3, "expected all 3 responses retained")
}

// scenarioS3 exercises the success-impossible guard: two failures out
// of three with threshold 2 make success unreachable before the third
// response ever arrives.
func scenarioS3() error {
	ctx := context.Background()
	h := newHarness(3, config.DefaultParameters())

	deposit := h.params.MaxPerAgentFee * 3
	requestID, err := h.engine.CreateRequest(ctx, nodeID(50), h.agent, nil, ids.EmptyNodeID, "", deposit, ledger.ConsensusMajority, nil)
	if err != nil {
		return err
	}
	req, _ := h.engine.GetRequest(requestID)
	if err := h.engine.SubmitResponse(ctx, requestID, req.Subcommittee[0], nil, ids.Empty, false, 100); err != nil {
		return err
	}
	if err := h.engine.SubmitResponse(ctx, requestID, req.Subcommittee[1], nil, ids.Empty, false, 200); err != nil {
		return err
	}
	req, _ = h.engine.GetRequest(requestID)
	return expect(req.Status == ledger.StatusFailed, "status = %s, want Failed", req.Status)
}

// scenarioS4 is a timeout with one partial response: the median is
// computed over the single recorded cost, tripled across the
// subcommittee.
func scenarioS4() error {
	ctx := context.Background()
	h := newHarness(3, config.DefaultParameters())

	deposit := h.params.MaxPerAgentFee * 3
	requestID, err := h.engine.CreateRequest(ctx, nodeID(50), h.agent, nil, ids.EmptyNodeID, "", deposit, ledger.ConsensusMajority, nil)
	if err != nil {
		return err
	}
	req, _ := h.engine.GetRequest(requestID)
	if err := h.engine.SubmitResponse(ctx, requestID, req.Subcommittee[0], []byte("v1"), ids.Hash256([]byte("v1")), true, 100); err != nil {
		return err
	}

	h.clock.Advance(h.params.RequestTimeout + 1)
	if err := h.engine.TimeoutRequest(ctx, requestID); err != nil {
		return err
	}
	req, _ = h.engine.GetRequest(requestID)
	if err := expect(req.Status == ledger.StatusTimedOut, "status = %s, want TimedOut", req.Status); err != nil {
		return err
	}
	// No callback is registered, so no callback gas is charged.
	return expect(req.FinalCost == 300, "unexpected final cost %d", req.FinalCost)
}

// scenarioS5 exercises the ring buffer: with capacity 2, allocating a
// third request overwrites slot 0, so id 0 becomes unreachable.
func scenarioS5() error {
	ctx := context.Background()
	params := config.DefaultParameters()
	params.RingCapacity = 2
	h := newHarness(3, params)

	deposit := params.MaxPerAgentFee * 3
	for i := 0; i < 3; i++ {
		if _, err := h.engine.CreateRequest(ctx, nodeID(50), h.agent, nil, ids.EmptyNodeID, "", deposit, ledger.ConsensusMajority, nil); err != nil {
			return err
		}
	}
	if _, err := h.engine.GetRequest(0); err != consensus.ErrRequestNotFound {
		return fmt.Errorf("GetRequest(0) = %v, want ErrRequestNotFound", err)
	}
	if err := h.engine.SubmitResponse(ctx, 0, nodeID(1), nil, ids.Empty, true, 0); err != consensus.ErrRequestNotFound {
		return fmt.Errorf("SubmitResponse(0) = %v, want ErrRequestNotFound", err)
	}
	if _, err := h.engine.GetRequest(1); err != nil {
		return err
	}
	if _, err := h.engine.GetRequest(2); err != nil {
		return err
	}
	return nil
}

// scenarioS6 checks that electing a subcommittee twice from the same
// active set and seed within one epoch is reproducible.
func scenarioS6() error {
	params := config.DefaultParameters()
	h := newHarness(10, params)

	seed := ids.Hash256([]byte{42})
	first, err := h.members.ElectSubcommittee(5, seed)
	if err != nil {
		return err
	}
	second, err := h.members.ElectSubcommittee(5, seed)
	if err != nil {
		return err
	}
	if len(first) != len(second) {
		return fmt.Errorf("election sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			return fmt.Errorf("election at index %d differs: %s vs %s", i, first[i], second[i])
		}
	}
	return nil
}
