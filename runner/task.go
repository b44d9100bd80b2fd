// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package runner implements the off-chain Validator Runner (spec §5):
// it watches for newly created requests, qualifies itself against the
// elected subcommittee, probes its peers and goes on only once enough
// of them (counting itself) say they will run the request, executes
// the agent through the Host API, and submits its response back to
// the Consensus Engine.
package runner

import (
	"time"

	"github.com/luxfi/agentnet/ids"
)

// State is a Task's position in the runner's own per-request state
// machine. This is purely local bookkeeping; it has no bearing on the
// Consensus Engine's ledger.Status for the same request.
type State int

const (
	// StateNew is assigned the instant a RequestCreatedEvent arrives.
	StateNew State = iota
	// StateQualified means this runner's identity is in the elected
	// subcommittee.
	StateQualified
	// StateQuorumProbed means this runner checked its peers before
	// committing to execute.
	StateQuorumProbed
	// StateExecuting means the Host API invocation is in flight.
	StateExecuting
	// StateResponded means submitResponse succeeded.
	StateResponded
	// StateDropped means this runner stopped before responding: it was
	// not qualified, peer quorum was not reachable within the budget,
	// or acquiring a slot, execution or submission returned an error.
	StateDropped
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateQualified:
		return "QUALIFIED"
	case StateQuorumProbed:
		return "QUORUM_PROBED"
	case StateExecuting:
		return "EXECUTING"
	case StateResponded:
		return "RESPONDED"
	case StateDropped:
		return "DROPPED"
	default:
		return "UNKNOWN"
	}
}

// Task is one request's execution lifecycle from this runner's point
// of view.
type Task struct {
	RequestID    uint64
	AgentID      ids.ID
	Payload      []byte
	Subcommittee []ids.NodeID
	// Threshold is how many willing subcommittee members (including
	// this runner) the peer quorum gate requires before executing
	// (spec §4.6).
	Threshold int
	State     State
	CreatedAt time.Time
	Err       error
}

// IsSubcommitteeMember reports whether self appears in t.Subcommittee.
func (t *Task) IsSubcommitteeMember(self ids.NodeID) bool {
	for _, m := range t.Subcommittee {
		if m == self {
			return true
		}
	}
	return false
}
