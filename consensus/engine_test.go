// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/agentnet/agentregistry"
	"github.com/luxfi/agentnet/agentregistry/agentregistrytest"
	"github.com/luxfi/agentnet/callback"
	"github.com/luxfi/agentnet/committee"
	"github.com/luxfi/agentnet/config"
	"github.com/luxfi/agentnet/ids"
	"github.com/luxfi/agentnet/ledger"
	"github.com/luxfi/agentnet/logging"
	"github.com/luxfi/agentnet/metrics"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time         { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func nodeID(b byte) ids.NodeID {
	var raw [20]byte
	raw[19] = b
	return ids.NodeID(raw)
}

func agentID(b byte) ids.ID {
	var raw [32]byte
	raw[31] = b
	return ids.ID(raw)
}

type harness struct {
	engine  *Engine
	members *committee.Registry
	agents  *agentregistrytest.Stub
	clock   *fakeClock
	agentID ids.ID
	creator ids.NodeID
	params  config.Parameters
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	log := logging.NewNoOp()
	reg := prometheus.NewRegistry()
	metric, err := metrics.NewRegistry("test", reg)
	require.NoError(t, err)

	members := committee.New(log, clock, metric, 30*time.Second, time.Minute)
	for i := byte(1); i <= 3; i++ {
		members.Heartbeat(nodeID(i))
	}

	agents := agentregistrytest.NewStub()
	creator := nodeID(99)
	agent := agentID(7)
	agents.Register(agent, agentregistry.Agent{Creator: creator})

	params := config.DefaultParameters()
	params.RequestTimeout = time.Minute
	store := ledger.NewMemStore(params.RingCapacity, params.StartingRequestID)

	e := New(log, clock, params, store, members, agents, metric)
	return &harness{engine: e, members: members, agents: agents, clock: clock, agentID: agent, creator: creator, params: params}
}

func TestCreateRequestRejectsWrongDeposit(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.CreateRequest(context.Background(), nodeID(1), h.agentID, nil, nodeID(0), "", 1, ledger.ConsensusMajority, nil)
	require.ErrorIs(t, err, ErrIncorrectDeposit)
}

func TestCreateRequestRejectsUnknownAgent(t *testing.T) {
	h := newHarness(t)
	unknown := agentID(1)
	_, err := h.engine.CreateRequest(context.Background(), nodeID(1), unknown, nil, nodeID(0), "", h.params.RequestDeposit(), ledger.ConsensusMajority, nil)
	require.ErrorIs(t, err, ErrAgentNotFound)
}

// TestMajorityConsensusFinalizesSuccessAndPays covers the happy-path
// scenario: three subcommittee members, threshold 2, two identical
// successful results reach majority and the validatorCosts payout
// splits per the configured bps.
func TestMajorityConsensusFinalizesSuccessAndPays(t *testing.T) {
	require := require.New(t)
	h := newHarness(t)

	// The requester is not a committee member, so its balance holds only
	// the rebate.
	requester := nodeID(50)
	requestID, err := h.engine.CreateRequest(context.Background(), requester, h.agentID, []byte("payload"), nodeID(0), "", h.params.RequestDeposit(), ledger.ConsensusMajority, nil)
	require.NoError(err)

	req, err := h.engine.GetRequest(requestID)
	require.NoError(err)
	require.Len(req.Subcommittee, 3)

	result := []byte("result-a")
	err = h.engine.SubmitResponse(context.Background(), requestID, req.Subcommittee[0], result, ids.Empty, true, 100)
	require.NoError(err)

	req, _ = h.engine.GetRequest(requestID)
	require.Equal(ledger.StatusPending, req.Status)

	err = h.engine.SubmitResponse(context.Background(), requestID, req.Subcommittee[1], result, ids.Empty, true, 200)
	require.NoError(err)

	req, err = h.engine.GetRequest(requestID)
	require.NoError(err)
	require.Equal(ledger.StatusSuccess, req.Status)

	// median of {100,200} is 150, validatorCosts = 150*3 = 450.
	runnerTotal := uint64(450) * h.params.RunnerBps / config.BpsDenominator
	perRunner := runnerTotal / 3
	require.Equal(perRunner, h.members.PendingBalance(req.Subcommittee[0]))

	creatorTotal := uint64(450) * h.params.CreatorBps / config.BpsDenominator
	require.Equal(creatorTotal, h.members.PendingBalance(h.creator))

	// rebate: deposit was 3000, finalCost is 450 (no callback), so
	// requester gets back 2550.
	require.Equal(uint64(2550), h.members.PendingBalance(requester))
}

// TestThresholdConsensusIgnoresResultContent covers the scenario where
// ConsensusThreshold finalizes on response count alone, even with
// divergent result payloads.
func TestThresholdConsensusIgnoresResultContent(t *testing.T) {
	require := require.New(t)
	h := newHarness(t)

	requestID, err := h.engine.CreateRequest(context.Background(), nodeID(1), h.agentID, nil, nodeID(0), "", h.params.RequestDeposit(), ledger.ConsensusThreshold, nil)
	require.NoError(err)
	req, _ := h.engine.GetRequest(requestID)

	require.NoError(h.engine.SubmitResponse(context.Background(), requestID, req.Subcommittee[0], []byte("a"), ids.Empty, true, 10))
	require.NoError(h.engine.SubmitResponse(context.Background(), requestID, req.Subcommittee[1], []byte("b"), ids.Empty, true, 20))

	req, err = h.engine.GetRequest(requestID)
	require.NoError(err)
	require.Equal(ledger.StatusSuccess, req.Status)
}

// TestInsufficientSuccessesFinalizesFailed covers the success-impossible
// guard: once enough members have responded unsuccessfully that the
// remaining respondents could not reach threshold even if all
// succeeded, the request fails immediately rather than waiting out the
// timeout.
func TestInsufficientSuccessesFinalizesFailed(t *testing.T) {
	require := require.New(t)
	h := newHarness(t)

	requestID, err := h.engine.CreateRequest(context.Background(), nodeID(1), h.agentID, nil, nodeID(0), "", h.params.RequestDeposit(), ledger.ConsensusMajority, nil)
	require.NoError(err)
	req, _ := h.engine.GetRequest(requestID)

	require.NoError(h.engine.SubmitResponse(context.Background(), requestID, req.Subcommittee[0], nil, ids.Empty, false, 10))
	require.NoError(h.engine.SubmitResponse(context.Background(), requestID, req.Subcommittee[1], nil, ids.Empty, false, 10))

	req, err = h.engine.GetRequest(requestID)
	require.NoError(err)
	require.Equal(ledger.StatusFailed, req.Status)
}

// TestSubmitResponseIsIdempotentAfterFinalization covers I4: a late
// response to an already-finalized request is a silent no-op, not an
// error, and does not re-run the payout.
func TestSubmitResponseIsIdempotentAfterFinalization(t *testing.T) {
	require := require.New(t)
	h := newHarness(t)

	requestID, err := h.engine.CreateRequest(context.Background(), nodeID(1), h.agentID, nil, nodeID(0), "", h.params.RequestDeposit(), ledger.ConsensusThreshold, nil)
	require.NoError(err)
	req, _ := h.engine.GetRequest(requestID)

	require.NoError(h.engine.SubmitResponse(context.Background(), requestID, req.Subcommittee[0], []byte("a"), ids.Empty, true, 10))
	require.NoError(h.engine.SubmitResponse(context.Background(), requestID, req.Subcommittee[1], []byte("b"), ids.Empty, true, 10))

	balanceBefore := h.members.PendingBalance(req.Subcommittee[0])

	err = h.engine.SubmitResponse(context.Background(), requestID, req.Subcommittee[2], []byte("c"), ids.Empty, true, 999)
	require.NoError(err)

	require.Equal(balanceBefore, h.members.PendingBalance(req.Subcommittee[0]))
}

func TestSubmitResponseRejectsDuplicateAndNonMember(t *testing.T) {
	require := require.New(t)
	h := newHarness(t)

	requestID, err := h.engine.CreateRequest(context.Background(), nodeID(1), h.agentID, nil, nodeID(0), "", h.params.RequestDeposit(), ledger.ConsensusThreshold, nil)
	require.NoError(err)
	req, _ := h.engine.GetRequest(requestID)

	require.NoError(h.engine.SubmitResponse(context.Background(), requestID, req.Subcommittee[0], []byte("a"), ids.Empty, true, 10))
	err = h.engine.SubmitResponse(context.Background(), requestID, req.Subcommittee[0], []byte("a"), ids.Empty, true, 10)
	require.ErrorIs(err, ErrAlreadyResponded)

	err = h.engine.SubmitResponse(context.Background(), requestID, nodeID(200), []byte("a"), ids.Empty, true, 10)
	require.ErrorIs(err, ErrNotSubcommitteeMember)
}

// TestUpkeepRequestsTimesOutStaleRequest covers the request timeout
// sweep: a still-Pending request past its deadline is finalized
// TimedOut, and the oldest-pending cursor advances past it.
func TestUpkeepRequestsTimesOutStaleRequest(t *testing.T) {
	require := require.New(t)
	h := newHarness(t)

	requestID, err := h.engine.CreateRequest(context.Background(), nodeID(1), h.agentID, nil, nodeID(0), "", h.params.RequestDeposit(), ledger.ConsensusThreshold, nil)
	require.NoError(err)

	h.clock.Advance(2 * time.Minute)
	h.engine.UpkeepRequests()

	req, err := h.engine.GetRequest(requestID)
	require.NoError(err)
	require.Equal(ledger.StatusTimedOut, req.Status)
	require.Equal(requestID+1, h.engine.store.OldestPendingID())
}

func TestTimeoutRequestRejectsBeforeDeadline(t *testing.T) {
	require := require.New(t)
	h := newHarness(t)

	requestID, err := h.engine.CreateRequest(context.Background(), nodeID(1), h.agentID, nil, nodeID(0), "", h.params.RequestDeposit(), ledger.ConsensusThreshold, nil)
	require.NoError(err)

	err = h.engine.TimeoutRequest(context.Background(), requestID)
	require.ErrorIs(err, ErrNotYetTimedOut)
}

// TestCallbackInvokedAndErrorsSwallowed covers gas-metered callback
// dispatch: the callback runs exactly once at finalization, its
// returned error is swallowed rather than propagated, and the gas
// charge is folded into finalCost.
func TestCallbackInvokedAndErrorsSwallowed(t *testing.T) {
	require := require.New(t)
	h := newHarness(t)

	invoked := false
	var gotStatus ledger.Status
	cb := callback.CallbackFunc(func(_ context.Context, _ ids.ID, _ [][]byte, status ledger.Status, _ uint64) error {
		invoked = true
		gotStatus = status
		return errors.New("consumer callback always fails")
	})

	requestID, err := h.engine.CreateRequest(context.Background(), nodeID(1), h.agentID, nil, nodeID(0), "", h.params.RequestDeposit(), ledger.ConsensusThreshold, cb)
	require.NoError(err)
	req, _ := h.engine.GetRequest(requestID)

	require.NoError(h.engine.SubmitResponse(context.Background(), requestID, req.Subcommittee[0], []byte("a"), ids.Empty, true, 10))
	require.NoError(h.engine.SubmitResponse(context.Background(), requestID, req.Subcommittee[1], []byte("b"), ids.Empty, true, 10))

	require.True(invoked)
	require.Equal(ledger.StatusSuccess, gotStatus)

	req, err = h.engine.GetRequest(requestID)
	require.NoError(err)
	// validatorCosts (30) + gas (100000) exceeds the request's deposit
	// ceiling, so FinalCost is capped at MaxCost.
	require.Equal(req.MaxCost, req.FinalCost)
}

// TestCallbackReceivesPostGasFinalCost covers §4.5: the callback's
// finalCost argument must equal the request's recorded FinalCost
// (validatorCosts+callbackGasCost, capped at MaxCost) — not the
// pre-gas validatorCosts figure the engine pays validators out of.
func TestCallbackReceivesPostGasFinalCost(t *testing.T) {
	require := require.New(t)
	h := newHarness(t)

	var gotFinalCost uint64
	cb := callback.CallbackFunc(func(_ context.Context, _ ids.ID, _ [][]byte, _ ledger.Status, finalCost uint64) error {
		gotFinalCost = finalCost
		return nil
	})

	requestID, err := h.engine.CreateRequest(context.Background(), nodeID(1), h.agentID, nil, nodeID(0), "", h.params.RequestDeposit(), ledger.ConsensusThreshold, cb)
	require.NoError(err)
	req, _ := h.engine.GetRequest(requestID)

	require.NoError(h.engine.SubmitResponse(context.Background(), requestID, req.Subcommittee[0], []byte("a"), ids.Empty, true, 10))
	require.NoError(h.engine.SubmitResponse(context.Background(), requestID, req.Subcommittee[1], []byte("b"), ids.Empty, true, 10))

	req, err = h.engine.GetRequest(requestID)
	require.NoError(err)
	require.Equal(req.FinalCost, gotFinalCost)
	// validatorCosts (30) + gas (100000) exceeds MaxCost (3000), so both
	// the stored FinalCost and the callback's argument are capped there;
	// the pre-fix code would have passed validatorCosts (30) instead.
	require.Equal(req.MaxCost, gotFinalCost)
}

// TestMajorityConsensusReportsOnlyWinningValue covers §4.4: a Majority
// request's callback sees only the successful responses carrying the
// value that reached threshold, never a minority dissenting result.
func TestMajorityConsensusReportsOnlyWinningValue(t *testing.T) {
	require := require.New(t)
	h := newHarness(t)

	var gotResults [][]byte
	cb := callback.CallbackFunc(func(_ context.Context, _ ids.ID, results [][]byte, _ ledger.Status, _ uint64) error {
		gotResults = results
		return nil
	})

	requestID, err := h.engine.CreateRequest(context.Background(), nodeID(1), h.agentID, nil, nodeID(0), "", h.params.RequestDeposit(), ledger.ConsensusMajority, cb)
	require.NoError(err)
	req, _ := h.engine.GetRequest(requestID)

	require.NoError(h.engine.SubmitResponse(context.Background(), requestID, req.Subcommittee[0], []byte("X"), ids.Empty, true, 10))
	req, _ = h.engine.GetRequest(requestID)
	require.Equal(ledger.StatusPending, req.Status)

	require.NoError(h.engine.SubmitResponse(context.Background(), requestID, req.Subcommittee[1], []byte("OK"), ids.Empty, true, 10))
	require.NoError(h.engine.SubmitResponse(context.Background(), requestID, req.Subcommittee[2], []byte("OK"), ids.Empty, true, 10))

	req, err = h.engine.GetRequest(requestID)
	require.NoError(err)
	require.Equal(ledger.StatusSuccess, req.Status)

	require.Equal([][]byte{[]byte("OK"), []byte("OK")}, gotResults)
}
