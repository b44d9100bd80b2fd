// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledger implements the Request Ledger (spec §4.2): a
// fixed-capacity ring of request slots, each holding the full
// lifecycle state of one request.
package ledger

import (
	"time"

	"github.com/luxfi/agentnet/ids"
)

// Status is a request's lifecycle state.
type Status int

const (
	StatusPending Status = iota
	StatusSuccess
	StatusFailed
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusSuccess:
		return "Success"
	case StatusFailed:
		return "Failed"
	case StatusTimedOut:
		return "TimedOut"
	default:
		return "Unknown"
	}
}

// ConsensusType selects how the Consensus Engine decides Success.
type ConsensusType int

const (
	// ConsensusMajority requires threshold-many byte-identical
	// successful results.
	ConsensusMajority ConsensusType = iota
	// ConsensusThreshold requires threshold-many successful responses,
	// values left unreconciled.
	ConsensusThreshold
)

// Response is one subcommittee member's submission.
type Response struct {
	Validator ids.NodeID
	Result    []byte
	Success   bool
	Receipt   ids.ID
	Cost      uint64
	Timestamp time.Time
}

// Request is the full lifecycle state of one ring slot.
type Request struct {
	ID                ids.ID // entity id; see RequestID for the ring counter
	RequestID         uint64 // the ring's allocation counter value
	Requester         ids.NodeID
	CallbackAddress   ids.NodeID
	CallbackSelector  string
	Subcommittee      []ids.NodeID
	Responses         []Response
	FailureCount      int
	Threshold         int
	CreatedAt         time.Time
	Status            Status
	ConsensusType     ConsensusType
	MaxCost           uint64
	FinalCost         uint64
	AgentCreator      ids.NodeID
	AgentID           ids.ID
}

// ResponseCount is the number of responses recorded so far.
func (r *Request) ResponseCount() int {
	return len(r.Responses)
}

// HasResponded reports whether nodeID has already submitted a
// response for this request (I3).
func (r *Request) HasResponded(nodeID ids.NodeID) bool {
	for _, resp := range r.Responses {
		if resp.Validator == nodeID {
			return true
		}
	}
	return false
}
