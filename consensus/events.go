// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"sync"
	"time"

	"github.com/luxfi/agentnet/ids"
)

// RequestCreatedEvent mirrors the on-chain RequestCreated log (spec
// §6): it carries the payload, since the ledger itself does not store
// payloads (spec §4.2 step 5: "payload-free (payload travels only via
// event)"). Threshold and Budget let a runner gate execution on peer
// quorum (spec §4.6) without re-deriving them from the ledger.
type RequestCreatedEvent struct {
	RequestID       uint64
	AgentID         ids.ID
	MaxCostPerAgent uint64
	Payload         []byte
	Subcommittee    []ids.NodeID
	Threshold       int
	Budget          time.Duration
}

// RequestFinalizedEvent mirrors the on-chain RequestFinalized log.
type RequestFinalizedEvent struct {
	RequestID uint64
	Status    int
}

// EventBus fans out RequestCreated/RequestFinalized events to
// subscribers. There is no real chain log to subscribe to in this
// in-process simulation (SPEC_FULL.md §10 "event subscription
// mechanism"), so EventBus is the in-process stand-in; api.Server
// additionally exposes a long-poll endpoint over the same events for
// an out-of-process runner.
type EventBus struct {
	mu               sync.Mutex
	createdSubs      []chan RequestCreatedEvent
	finalizedSubs    []chan RequestFinalizedEvent
	createdHistory   []RequestCreatedEvent
	finalizedHistory []RequestFinalizedEvent
}

// NewEventBus returns an empty EventBus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// SubscribeCreated returns a channel that receives every
// RequestCreatedEvent published from this point on. The channel is
// buffered; a slow subscriber drops events rather than blocking
// request creation.
func (b *EventBus) SubscribeCreated() <-chan RequestCreatedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan RequestCreatedEvent, 64)
	b.createdSubs = append(b.createdSubs, ch)
	return ch
}

// SubscribeFinalized returns a channel that receives every
// RequestFinalizedEvent published from this point on.
func (b *EventBus) SubscribeFinalized() <-chan RequestFinalizedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan RequestFinalizedEvent, 64)
	b.finalizedSubs = append(b.finalizedSubs, ch)
	return ch
}

func (b *EventBus) publishCreated(evt RequestCreatedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.createdHistory = append(b.createdHistory, evt)
	for _, ch := range b.createdSubs {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (b *EventBus) publishFinalized(evt RequestFinalizedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finalizedHistory = append(b.finalizedHistory, evt)
	for _, ch := range b.finalizedSubs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// CreatedSince supports the api package's /events long-poll fallback:
// it returns every RequestCreatedEvent published from index 'since'
// onward, plus the new cursor.
func (b *EventBus) CreatedSince(since int) ([]RequestCreatedEvent, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if since >= len(b.createdHistory) {
		return nil, since
	}
	out := make([]RequestCreatedEvent, len(b.createdHistory)-since)
	copy(out, b.createdHistory[since:])
	return out, len(b.createdHistory)
}

// FinalizedSince is CreatedSince's counterpart for
// RequestFinalizedEvents.
func (b *EventBus) FinalizedSince(since int) ([]RequestFinalizedEvent, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if since >= len(b.finalizedHistory) {
		return nil, since
	}
	out := make([]RequestFinalizedEvent, len(b.finalizedHistory)-since)
	copy(out, b.finalizedHistory[since:])
	return out, len(b.finalizedHistory)
}
