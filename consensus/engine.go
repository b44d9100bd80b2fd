// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package consensus implements the Consensus Engine (spec §4.3): the
// request lifecycle from createRequest through finalization, majority
// and threshold result reconciliation, and the payout split.
package consensus

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/luxfi/agentnet/agentregistry"
	"github.com/luxfi/agentnet/callback"
	"github.com/luxfi/agentnet/committee"
	"github.com/luxfi/agentnet/config"
	"github.com/luxfi/agentnet/ids"
	"github.com/luxfi/agentnet/ledger"
	"github.com/luxfi/agentnet/logging"
	"github.com/luxfi/agentnet/metrics"
)

// Engine ties the Committee Registry and the Request Ledger together
// into the request lifecycle: createRequest, submitResponse,
// timeoutRequest and upkeepRequests.
type Engine struct {
	log     logging.Logger
	clock   committee.Clock
	params  config.Parameters
	store   ledger.Store
	members *committee.Registry
	agents  agentregistry.Registry
	metric  *metrics.Registry
	invoker *callback.GasMeteredInvoker
	events  *EventBus

	mu        sync.Mutex
	callbacks map[uint64]callback.Callback
}

// New constructs an Engine. params must already have passed Verify.
func New(
	log logging.Logger,
	clock committee.Clock,
	params config.Parameters,
	store ledger.Store,
	members *committee.Registry,
	agents agentregistry.Registry,
	metric *metrics.Registry,
) *Engine {
	if clock == nil {
		clock = committee.RealClock
	}
	return &Engine{
		log:     log,
		clock:   clock,
		params:  params,
		store:   store,
		members: members,
		agents:  agents,
		metric:  metric,
		invoker: &callback.GasMeteredInvoker{
			Log:      log,
			GasLimit: params.CallbackGasLimit,
			GasPrice: params.GasPrice,
		},
		events:    NewEventBus(),
		callbacks: make(map[uint64]callback.Callback),
	}
}

// Events returns the EventBus requests are published through.
func (e *Engine) Events() *EventBus { return e.events }

// CreateRequest elects a subcommittee of the default size and
// threshold and allocates a new ledger slot (spec §4.2 createRequest).
func (e *Engine) CreateRequest(
	ctx context.Context,
	requester ids.NodeID,
	agentID ids.ID,
	payload []byte,
	callbackAddress ids.NodeID,
	callbackSelector string,
	deposit uint64,
	consensusType ledger.ConsensusType,
	cb callback.Callback,
) (uint64, error) {
	return e.CreateAdvancedRequest(
		ctx, requester, agentID, payload, callbackAddress, callbackSelector,
		deposit, consensusType, e.params.DefaultSubcommitteeSize, e.params.DefaultThreshold, cb,
	)
}

// CreateAdvancedRequest is createRequest with an explicit subcommittee
// size and threshold (spec §4.2 createAdvancedRequest).
func (e *Engine) CreateAdvancedRequest(
	ctx context.Context,
	requester ids.NodeID,
	agentID ids.ID,
	payload []byte,
	callbackAddress ids.NodeID,
	callbackSelector string,
	deposit uint64,
	consensusType ledger.ConsensusType,
	subcommitteeSize int,
	threshold int,
	cb callback.Callback,
) (uint64, error) {
	if threshold <= 0 || threshold > subcommitteeSize {
		return 0, ErrInvalidThreshold
	}
	if deposit != e.params.MaxPerAgentFee*uint64(subcommitteeSize) {
		return 0, ErrIncorrectDeposit
	}
	agent, err := e.agents.GetAgent(ctx, agentID)
	if err != nil {
		return 0, ErrAgentNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	requestID := e.store.NextRequestID()
	seed := ids.Hash256(agentID[:], indexBytes(requestID))
	subcommittee, err := e.members.ElectSubcommittee(subcommitteeSize, seed)
	if err != nil {
		return 0, err
	}

	now := e.clock.Now()
	req := ledger.Request{
		ID:               seed,
		Requester:        requester,
		CallbackAddress:  callbackAddress,
		CallbackSelector: callbackSelector,
		Subcommittee:     subcommittee,
		Threshold:        threshold,
		CreatedAt:        now,
		Status:           ledger.StatusPending,
		ConsensusType:    consensusType,
		MaxCost:          deposit,
		AgentCreator:     agent.Creator,
		AgentID:          agentID,
	}
	requestID = e.store.AllocateNext(req)
	if cb != nil {
		e.callbacks[requestID] = cb
	}

	if e.metric != nil {
		e.metric.RequestsCreated.Inc()
	}
	e.events.publishCreated(RequestCreatedEvent{
		RequestID:       requestID,
		AgentID:         agentID,
		MaxCostPerAgent: e.params.MaxPerAgentFee,
		Payload:         payload,
		Subcommittee:    subcommittee,
		Threshold:       threshold,
		Budget:          e.params.RequestTimeout,
	})
	e.log.Info("request created", "requestId", requestID, "subcommittee", len(subcommittee), "threshold", threshold)
	return requestID, nil
}

// SubmitResponse records one subcommittee member's response and
// evaluates finalization (spec §4.3, §6 submitResponse(requestId,
// result, receipt, cost, success)). A submission to a request that has
// already reached a terminal status is a silent no-op (I4): the
// subcommittee member who raced a finalizing quorum is not penalized.
func (e *Engine) SubmitResponse(ctx context.Context, requestID uint64, validator ids.NodeID, result []byte, receipt ids.ID, success bool, cost uint64) error {
	e.UpkeepRequests()

	e.mu.Lock()
	defer e.mu.Unlock()

	req, err := e.store.Get(requestID)
	if err != nil {
		return ErrRequestNotFound
	}
	if !isMember(req.Subcommittee, validator) {
		return ErrNotSubcommitteeMember
	}
	if e.clock.Now().After(req.CreatedAt.Add(e.params.RequestTimeout)) {
		return ErrRequestTimedOut
	}
	if req.Status != ledger.StatusPending {
		// Already finalized by an earlier response; nothing left to
		// record.
		return nil
	}
	if req.HasResponded(validator) {
		return ErrAlreadyResponded
	}

	req.Responses = append(req.Responses, ledger.Response{
		Validator: validator,
		Result:    result,
		Receipt:   receipt,
		Success:   success,
		Cost:      cost,
		Timestamp: e.clock.Now(),
	})
	if !success {
		req.FailureCount++
	}

	remaining := len(req.Subcommittee) - req.ResponseCount()
	successCount := successResponseCount(req.Responses)
	if successCount+remaining < req.Threshold {
		e.finalizeLocked(ctx, &req, ledger.StatusFailed)
		return e.store.Put(requestID, req)
	}

	if success && majorityReached(req.Responses, req.Threshold, req.ConsensusType) {
		e.finalizeLocked(ctx, &req, ledger.StatusSuccess)
		return e.store.Put(requestID, req)
	}

	return e.store.Put(requestID, req)
}

// isMember reports whether nodeID appears in subcommittee.
func isMember(subcommittee []ids.NodeID, nodeID ids.NodeID) bool {
	for _, m := range subcommittee {
		if m == nodeID {
			return true
		}
	}
	return false
}

func successResponseCount(responses []ledger.Response) int {
	n := 0
	for _, r := range responses {
		if r.Success {
			n++
		}
	}
	return n
}

// majorityReached applies the request's ConsensusType: Threshold needs
// threshold-many successful responses regardless of their content;
// Majority additionally requires threshold-many of those successful
// responses to carry byte-identical results, ties broken by whichever
// distinct result value was submitted earliest (spec §4.3b).
func majorityReached(responses []ledger.Response, threshold int, ct ledger.ConsensusType) bool {
	successCount := 0
	counts := make(map[string]int)
	for _, r := range responses {
		if !r.Success {
			continue
		}
		successCount++
		if ct == ledger.ConsensusMajority {
			key := string(r.Result)
			counts[key]++
			if counts[key] >= threshold {
				return true
			}
		}
	}
	if ct == ledger.ConsensusThreshold {
		return successCount >= threshold
	}
	return false
}

// majorityWinningResult replays majorityReached's per-key running
// counts and returns the result value that first reached
// threshold-many identical successful responses, so finalizeLocked can
// report only that value's responses to the callback (spec §4.4
// "Majority: pick the result value that achieved the threshold"). ok
// is false if no value has reached threshold yet.
func majorityWinningResult(responses []ledger.Response, threshold int) (winner []byte, ok bool) {
	counts := make(map[string]int)
	for _, r := range responses {
		if !r.Success {
			continue
		}
		key := string(r.Result)
		counts[key]++
		if counts[key] >= threshold {
			return r.Result, true
		}
	}
	return nil, false
}

// successfulResults is the set of response results finalizeLocked
// reports to the callback (spec §4.4): Threshold mode, and any
// non-Success status, report every successful response's result
// unreconciled; Majority mode on Success restricts the report to only
// the responses carrying the winning value, so a minority dissenting
// result never leaks to the callback.
func successfulResults(responses []ledger.Response, status ledger.Status, ct ledger.ConsensusType, threshold int) [][]byte {
	var winner []byte
	filterToWinner := false
	if status == ledger.StatusSuccess && ct == ledger.ConsensusMajority {
		if w, ok := majorityWinningResult(responses, threshold); ok {
			winner, filterToWinner = w, true
		}
	}

	results := make([][]byte, 0, len(responses))
	for _, r := range responses {
		if !r.Success {
			continue
		}
		if filterToWinner && !bytes.Equal(r.Result, winner) {
			continue
		}
		results = append(results, r.Result)
	}
	return results
}

// finalizeLocked moves req into a terminal status, computes the median
// cost and payout split, invokes the registered callback under the gas
// ceiling, and credits every payout recipient's PendingBalance in one
// batched Deposit (spec §4.3c-e). Callers must hold e.mu and must
// persist req back to the store themselves.
func (e *Engine) finalizeLocked(ctx context.Context, req *ledger.Request, status ledger.Status) {
	req.Status = status

	medianCost := medianResponseCost(req.Responses)
	validatorCosts := medianCost * uint64(len(req.Subcommittee))

	results := successfulResults(req.Responses, status, req.ConsensusType, req.Threshold)

	cb := e.callbacks[req.RequestID]
	var gasCost uint64
	if cb != nil {
		gasCost = e.params.CallbackGasLimit * e.params.GasPrice
	}
	finalCost := validatorCosts + gasCost
	if finalCost > req.MaxCost {
		finalCost = req.MaxCost
	}
	req.FinalCost = finalCost

	e.invoker.Invoke(ctx, cb, req.ID, results, status, finalCost)
	delete(e.callbacks, req.RequestID)

	e.payoutLocked(req, validatorCosts)

	if e.metric != nil {
		e.metric.RequestsFinalized.WithLabelValues(status.String()).Inc()
	}
	e.events.publishFinalized(RequestFinalizedEvent{RequestID: req.RequestID, Status: int(status)})
	e.log.Info("request finalized", "requestId", req.RequestID, "status", status.String(), "finalCost", finalCost)
}

// medianResponseCost is the median of every recorded response's
// quoted cost, floor-averaging the two middle values when the count is
// even, and 0 when there are no responses (spec §4.3c).
func medianResponseCost(responses []ledger.Response) uint64 {
	if len(responses) == 0 {
		return 0
	}
	costs := make([]uint64, len(responses))
	for i, r := range responses {
		costs[i] = r.Cost
	}
	sort.Slice(costs, func(i, j int) bool { return costs[i] < costs[j] })

	n := len(costs)
	if n%2 == 1 {
		return costs[n/2]
	}
	return (costs[n/2-1] + costs[n/2]) / 2
}

// payoutLocked splits validatorCosts into runner, creator and protocol
// shares per the configured bps (spec §4.3e): each runner share is
// floor-divided across the subcommittee, the creator share folds into
// the protocol share when the agent has no recorded creator, and the
// protocol share absorbs every remainder so the three shares always
// sum to exactly validatorCosts. The requester is credited the rebate
// MaxCost-FinalCost whenever it is positive, including when
// validatorCosts is zero.
func (e *Engine) payoutLocked(req *ledger.Request, validatorCosts uint64) {
	if req.MaxCost > req.FinalCost {
		rebate := req.MaxCost - req.FinalCost
		if err := e.members.Deposit(context.Background(), []ids.NodeID{req.Requester}, []uint64{rebate}, rebate); err != nil {
			e.log.Warn("rebate deposit failed", "requestId", req.RequestID, "err", err)
		}
	}

	n := uint64(len(req.Subcommittee))
	if n == 0 || validatorCosts == 0 {
		return
	}

	runnerTotal := validatorCosts * e.params.RunnerBps / config.BpsDenominator
	perRunner := runnerTotal / n
	creatorTotal := validatorCosts * e.params.CreatorBps / config.BpsDenominator
	if req.AgentCreator == ids.EmptyNodeID {
		creatorTotal = 0
	}
	protocolTotal := validatorCosts - perRunner*n - creatorTotal

	recipients := make([]ids.NodeID, 0, n+2)
	amounts := make([]uint64, 0, n+2)
	for _, validator := range req.Subcommittee {
		recipients = append(recipients, validator)
		amounts = append(amounts, perRunner)
	}
	if creatorTotal > 0 {
		recipients = append(recipients, req.AgentCreator)
		amounts = append(amounts, creatorTotal)
	}
	if protocolTotal > 0 {
		recipients = append(recipients, e.params.Treasury)
		amounts = append(amounts, protocolTotal)
	}

	sum := perRunner*n + creatorTotal + protocolTotal
	if err := e.members.Deposit(context.Background(), recipients, amounts, sum); err != nil {
		e.log.Warn("payout deposit failed", "requestId", req.RequestID, "err", err)
	}
	if e.metric != nil {
		e.metric.PayoutTotal.WithLabelValues("runner").Add(float64(perRunner * n))
		e.metric.PayoutTotal.WithLabelValues("creator").Add(float64(creatorTotal))
		e.metric.PayoutTotal.WithLabelValues("protocol").Add(float64(protocolTotal))
	}
}

// TimeoutRequest finalizes a still-Pending request whose response
// window has elapsed (spec §4.3 timeoutRequest).
func (e *Engine) TimeoutRequest(ctx context.Context, requestID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	req, err := e.store.Get(requestID)
	if err != nil {
		return ErrRequestNotFound
	}
	if req.Status != ledger.StatusPending {
		return nil
	}
	if !e.clock.Now().After(req.CreatedAt.Add(e.params.RequestTimeout)) {
		return ErrNotYetTimedOut
	}

	e.finalizeLocked(ctx, &req, ledger.StatusTimedOut)
	return e.store.Put(requestID, req)
}

// UpkeepRequests sweeps from the ledger's oldest-pending cursor,
// timing out any Pending request whose window has elapsed, and
// advances the cursor past every slot resolved this way. It stops at
// the first Pending request that is still within its window, since
// every request after it was allocated later and cannot have an
// earlier deadline (spec §4.3 upkeepRequests).
func (e *Engine) UpkeepRequests() {
	e.mu.Lock()
	defer e.mu.Unlock()

	cursor := e.store.OldestPendingID()
	next := e.store.NextRequestID()
	now := e.clock.Now()

	for id := cursor; id < next; id++ {
		req, err := e.store.Get(id)
		if err != nil {
			// Overwritten by ring wraparound (I9); the slot is gone, so
			// advance past it.
			cursor = id + 1
			continue
		}
		if req.Status != ledger.StatusPending {
			cursor = id + 1
			continue
		}
		if !now.After(req.CreatedAt.Add(e.params.RequestTimeout)) {
			break
		}
		e.finalizeLocked(context.Background(), &req, ledger.StatusTimedOut)
		_ = e.store.Put(id, req)
		cursor = id + 1
	}
	e.store.SetOldestPendingID(cursor)
}

// GetRequest returns the full lifecycle state for requestID.
func (e *Engine) GetRequest(requestID uint64) (ledger.Request, error) {
	req, err := e.store.Get(requestID)
	if err != nil {
		return ledger.Request{}, ErrRequestNotFound
	}
	return req, nil
}

// GetResponses returns the responses recorded so far for requestID.
func (e *Engine) GetResponses(requestID uint64) ([]ledger.Response, error) {
	req, err := e.GetRequest(requestID)
	if err != nil {
		return nil, err
	}
	return req.Responses, nil
}

// GetRequestDeposit returns the deposit required for subcommitteeSize
// members at the current MaxPerAgentFee (spec §6 getRequestDeposit).
func (e *Engine) GetRequestDeposit(subcommitteeSize int) uint64 {
	return e.params.MaxPerAgentFee * uint64(subcommitteeSize)
}

func indexBytes(i uint64) []byte {
	b := make([]byte, 8)
	for k := 0; k < 8; k++ {
		b[k] = byte(i >> (8 * uint(7-k)))
	}
	return b
}
