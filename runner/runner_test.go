// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/agentnet/hostapi"
	"github.com/luxfi/agentnet/hostapi/hostapitest"
	"github.com/luxfi/agentnet/ids"
	"github.com/luxfi/agentnet/logging"
)

type stubSubmitter struct {
	calls []submitCall
}

type submitCall struct {
	requestID uint64
	validator ids.NodeID
	result    []byte
	receipt   ids.ID
	success   bool
	cost      uint64
}

func (s *stubSubmitter) SubmitResponse(_ context.Context, requestID uint64, validator ids.NodeID, result []byte, receipt ids.ID, success bool, cost uint64) error {
	s.calls = append(s.calls, submitCall{requestID, validator, result, receipt, success, cost})
	return nil
}

func nodeID(b byte) ids.NodeID {
	var raw [20]byte
	raw[19] = b
	return ids.NodeID(raw)
}

func TestHandleRequestCreatedDropsNonMember(t *testing.T) {
	require := require.New(t)

	self := nodeID(1)
	fake := hostapitest.NewFake(nil)
	submitter := &stubSubmitter{}
	r := New(logging.NewNoOp(), self, fake, submitter, nil, nil, 4)

	evt := RequestCreated{RequestID: 1, Subcommittee: []ids.NodeID{nodeID(2), nodeID(3)}}
	err := r.HandleRequestCreated(context.Background(), evt)
	require.NoError(err)
	require.Empty(submitter.calls)

	task, ok := r.Task(1)
	require.True(ok)
	require.Equal(StateDropped, task.State)
}

func TestHandleRequestCreatedExecutesAndSubmits(t *testing.T) {
	require := require.New(t)

	self := nodeID(1)
	fake := hostapitest.NewFake(func(image string, payload []byte) hostapi.InvokeResult {
		return hostapi.InvokeResult{Result: payload, Success: true, Cost: 7}
	})
	submitter := &stubSubmitter{}
	r := New(logging.NewNoOp(), self, fake, submitter, nil, nil, 4)

	evt := RequestCreated{RequestID: 5, Payload: []byte("hello"), Subcommittee: []ids.NodeID{self, nodeID(2)}}
	err := r.HandleRequestCreated(context.Background(), evt)
	require.NoError(err)

	require.Len(submitter.calls, 1)
	call := submitter.calls[0]
	require.Equal(uint64(5), call.requestID)
	require.Equal(self, call.validator)
	require.True(call.success)
	require.Equal([]byte("hello"), call.result)
	require.Equal(uint64(7), call.cost)

	task, ok := r.Task(5)
	require.True(ok)
	require.Equal(StateResponded, task.State)
}

func TestCostQuoterOverride(t *testing.T) {
	require := require.New(t)

	self := nodeID(1)
	fake := hostapitest.NewFake(func(string, []byte) hostapi.InvokeResult {
		return hostapi.InvokeResult{Success: true, Cost: 100}
	})
	submitter := &stubSubmitter{}
	r := New(logging.NewNoOp(), self, fake, submitter, nil, nil, 4, WithCostQuoter(func(ids.ID, []byte, uint64) uint64 {
		return 1
	}))

	evt := RequestCreated{RequestID: 9, Subcommittee: []ids.NodeID{self}}
	require.NoError(r.HandleRequestCreated(context.Background(), evt))
	require.Equal(uint64(1), submitter.calls[0].cost)
}

// TestQuorumHandlerAnswersWillRun covers the willRun responder: a
// tracked, non-dropped subcommittee task answers true; an unknown
// request id answers false (spec §4.6).
func TestQuorumHandlerAnswersWillRun(t *testing.T) {
	require := require.New(t)

	self := nodeID(1)
	fake := hostapitest.NewFake(nil)
	submitter := &stubSubmitter{}
	r := New(logging.NewNoOp(), self, fake, submitter, nil, nil, 4)

	evt := RequestCreated{RequestID: 3, Subcommittee: []ids.NodeID{self}}
	require.NoError(r.HandleRequestCreated(context.Background(), evt))

	body, err := json.Marshal(QuorumProbeRequest{RequestID: 3, Self: self})
	require.NoError(err)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/quorum", bytes.NewReader(body))
	r.QuorumHandler().ServeHTTP(rr, req)
	require.Equal(http.StatusOK, rr.Code)
	require.Contains(rr.Body.String(), `"willRun":true`)

	body, err = json.Marshal(QuorumProbeRequest{RequestID: 999, Self: self})
	require.NoError(err)
	rr2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/quorum", bytes.NewReader(body))
	r.QuorumHandler().ServeHTTP(rr2, req2)
	require.Contains(rr2.Body.String(), `"willRun":false`)
}

// fakeProber answers every Probe call with a fixed intent per peer
// address, for deterministic peer quorum gate tests.
type fakeProber struct {
	willing map[string]bool
}

func (p *fakeProber) Probe(_ context.Context, peerAddr string, _ QuorumProbeRequest) (QuorumIntent, error) {
	return QuorumIntent{WillRun: p.willing[peerAddr]}, nil
}

// TestAwaitQuorumProceedsOnceThresholdReached covers the gate's happy
// path: self plus one willing peer reaches threshold 2 of 3, so the
// runner executes and submits.
func TestAwaitQuorumProceedsOnceThresholdReached(t *testing.T) {
	require := require.New(t)

	self, peer2, peer3 := nodeID(1), nodeID(2), nodeID(3)
	fake := hostapitest.NewFake(func(string, []byte) hostapi.InvokeResult {
		return hostapi.InvokeResult{Success: true, Cost: 5}
	})
	submitter := &stubSubmitter{}
	prober := &fakeProber{willing: map[string]bool{"peer2": true, "peer3": false}}
	peers := NewPeerBook()
	peers.Set(peer2, "peer2")
	peers.Set(peer3, "peer3")
	r := New(logging.NewNoOp(), self, fake, submitter, prober, peers, 4, WithQuorumProbeTimeout(10*time.Millisecond))

	evt := RequestCreated{RequestID: 7, Subcommittee: []ids.NodeID{self, peer2, peer3}, Threshold: 2, Budget: time.Second}
	require.NoError(r.HandleRequestCreated(context.Background(), evt))

	require.Len(submitter.calls, 1)
	task, ok := r.Task(7)
	require.True(ok)
	require.Equal(StateResponded, task.State)
}

// TestAwaitQuorumDropsWhenUnreachable covers the DROPPED (peer quorum
// not reachable) path: neither peer is willing, so quorum never
// reaches threshold 3 within the budget and the runner drops the task
// without ever calling the Host API.
func TestAwaitQuorumDropsWhenUnreachable(t *testing.T) {
	require := require.New(t)

	self, peer2, peer3 := nodeID(1), nodeID(2), nodeID(3)
	fake := hostapitest.NewFake(func(string, []byte) hostapi.InvokeResult {
		t.Fatal("execute should not be reached when peer quorum is not met")
		return hostapi.InvokeResult{}
	})
	submitter := &stubSubmitter{}
	prober := &fakeProber{willing: map[string]bool{"peer2": false, "peer3": false}}
	peers := NewPeerBook()
	peers.Set(peer2, "peer2")
	peers.Set(peer3, "peer3")
	r := New(logging.NewNoOp(), self, fake, submitter, prober, peers, 4, WithQuorumProbeTimeout(5*time.Millisecond))

	evt := RequestCreated{RequestID: 8, Subcommittee: []ids.NodeID{self, peer2, peer3}, Threshold: 3, Budget: 20 * time.Millisecond}
	require.NoError(r.HandleRequestCreated(context.Background(), evt))

	require.Empty(submitter.calls)
	task, ok := r.Task(8)
	require.True(ok)
	require.Equal(StateDropped, task.State)
	require.ErrorIs(task.Err, errPeerQuorumUnreachable)
}
