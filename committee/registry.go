// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package committee implements the Committee Registry (spec §4.1): the
// liveness-tracked validator set, seeded subcommittee election, and
// the pull-payment PendingBalance escrow.
package committee

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/luxfi/agentnet/ids"
	"github.com/luxfi/agentnet/logging"
	"github.com/luxfi/agentnet/metrics"
	"github.com/luxfi/agentnet/set"
)

// Validator is a liveness-tracked member of the committee.
type Validator struct {
	NodeID        ids.NodeID
	LastHeartbeat time.Time
	Active        bool
}

// NewEpochEvent is emitted whenever Upkeep changes the active set.
type NewEpochEvent struct {
	Epoch   uint64
	Members []ids.NodeID
}

// Registry is the Committee Registry: validator liveness tracking,
// subcommittee election, and the pending-balance escrow.
type Registry struct {
	log    logging.Logger
	clock  Clock
	metric *metrics.Registry

	heartbeatInterval time.Duration
	upkeepInterval    time.Duration

	mu         sync.RWMutex
	validators map[ids.NodeID]*Validator
	epoch      uint64
	lastUpkeep time.Time

	balances map[ids.NodeID]uint64

	epochEvents chan NewEpochEvent
}

// New constructs a Registry. heartbeatInterval and upkeepInterval are
// spec §4.1's HEARTBEAT_INTERVAL and UPKEEP_INTERVAL.
func New(log logging.Logger, clock Clock, metric *metrics.Registry, heartbeatInterval, upkeepInterval time.Duration) *Registry {
	if clock == nil {
		clock = RealClock
	}
	return &Registry{
		log:               log,
		clock:             clock,
		metric:            metric,
		heartbeatInterval: heartbeatInterval,
		upkeepInterval:    upkeepInterval,
		validators:        make(map[ids.NodeID]*Validator),
		balances:          make(map[ids.NodeID]uint64),
		epochEvents:       make(chan NewEpochEvent, 16),
	}
}

// Events returns the channel NewEpochEvents are published on. The
// channel is never closed; callers select on it for the registry's
// lifetime.
func (r *Registry) Events() <-chan NewEpochEvent {
	return r.epochEvents
}

// Heartbeat declares the caller live: creates it if unknown, refreshes
// LastHeartbeat, and opportunistically runs Upkeep. A caller that was
// not yet active joins the active set immediately, which advances the
// epoch and publishes a NewEpochEvent. No-op-safe for an
// already-active caller; also the mechanism by which a purged
// validator rejoins.
func (r *Registry) Heartbeat(nodeID ids.NodeID) {
	now := r.clock.Now()

	r.mu.Lock()
	v, ok := r.validators[nodeID]
	if !ok {
		v = &Validator{NodeID: nodeID}
		r.validators[nodeID] = v
	}
	joined := !v.Active
	v.LastHeartbeat = now
	v.Active = true
	var evt NewEpochEvent
	if joined {
		r.epoch++
		evt = NewEpochEvent{Epoch: r.epoch, Members: r.activeMembersLocked()}
	}
	r.mu.Unlock()

	if joined {
		select {
		case r.epochEvents <- evt:
		default:
			r.log.Warn("dropped NewEpoch event: subscriber too slow", "epoch", evt.Epoch)
		}
	}

	r.log.Debug("heartbeat", "validator", nodeID.String())
	r.Upkeep()
}

// Upkeep purges and re-flags validators by liveness (I10). It is
// idempotent and rate-limited: calls within UpkeepInterval of the last
// run are ignored. The epoch advances, and a NewEpochEvent is
// published, iff some validator's active state changed.
func (r *Registry) Upkeep() {
	now := r.clock.Now()

	r.mu.Lock()
	if !r.lastUpkeep.IsZero() && now.Sub(r.lastUpkeep) < r.upkeepInterval {
		r.mu.Unlock()
		return
	}
	r.lastUpkeep = now

	changed := false
	for nodeID, v := range r.validators {
		live := now.Sub(v.LastHeartbeat) <= r.heartbeatInterval
		if !live {
			delete(r.validators, nodeID)
			changed = true
			continue
		}
		if !v.Active {
			v.Active = true
			changed = true
		}
	}

	var members []ids.NodeID
	var epoch uint64
	if changed {
		r.epoch++
		epoch = r.epoch
		members = r.activeMembersLocked()
	}
	r.mu.Unlock()

	if changed {
		r.log.Info("new epoch", "epoch", epoch, "members", len(members))
		select {
		case r.epochEvents <- NewEpochEvent{Epoch: epoch, Members: members}:
		default:
			r.log.Warn("dropped NewEpoch event: subscriber too slow", "epoch", epoch)
		}
	}
}

func (r *Registry) activeMembersLocked() []ids.NodeID {
	members := make([]ids.NodeID, 0, len(r.validators))
	for nodeID, v := range r.validators {
		if v.Active {
			members = append(members, nodeID)
		}
	}
	return members
}

// GetActiveMembers returns an unordered snapshot of active validators.
func (r *Registry) GetActiveMembers() []ids.NodeID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeMembersLocked()
}

// IsActive reports whether nodeID is a currently active validator.
func (r *Registry) IsActive(nodeID ids.NodeID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validators[nodeID]
	return ok && v.Active
}

// CurrentEpoch returns the monotonically increasing epoch counter
// (I10).
func (r *Registry) CurrentEpoch() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.epoch
}

// ElectSubcommittee draws n validators without replacement from the
// active set using a seeded Fisher-Yates partial shuffle (spec §4.1):
// for i in [0,n), j = i + H(seed||i) mod (|active|-i), swap i and j.
// The shuffle runs over the active set sorted by NodeID string form,
// so the same active set and seed always give the same result; a
// change of the active set between calls can change it.
func (r *Registry) ElectSubcommittee(n int, seed ids.ID) ([]ids.NodeID, error) {
	start := r.clock.Now()
	active := r.GetActiveMembers()
	if n > len(active) {
		return nil, ErrInsufficientMembers
	}

	pool := orderDeterministically(active)
	for i := 0; i < n; i++ {
		remaining := big.NewInt(int64(len(pool) - i))
		h := ids.Hash256(seed[:], indexBytes(i))
		offset := new(big.Int).Mod(new(big.Int).SetBytes(h[:]), remaining)
		j := i + int(offset.Int64())
		pool[i], pool[j] = pool[j], pool[i]
	}

	if r.metric != nil {
		r.metric.ElectionLatency.Observe(float64(r.clock.Now().Sub(start).Microseconds()))
	}
	result := make([]ids.NodeID, n)
	copy(result, pool[:n])
	return result, nil
}

// orderDeterministically returns active sorted by string form so that
// repeated calls within the same active set shuffle over the same
// starting order.
func orderDeterministically(active []ids.NodeID) []ids.NodeID {
	ordered := set.Of(active...).List()
	// Insertion sort on NodeID.String(), which gives a stable total
	// order over the members.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j-1].String() > ordered[j].String(); j-- {
			ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
		}
	}
	return ordered
}

func indexBytes(i int) []byte {
	b := make([]byte, 8)
	for k := 0; k < 8; k++ {
		b[k] = byte(i >> (8 * (7 - k)))
	}
	return b
}

// Deposit credits each recipient's PendingBalance by the matching
// amount; the sum of amounts must equal value (spec §4.1).
func (r *Registry) Deposit(ctx context.Context, recipients []ids.NodeID, amounts []uint64, value uint64) error {
	if len(recipients) != len(amounts) {
		return ErrRecipientAmountMismatch
	}

	var sum uint64
	for _, a := range amounts {
		sum += a
	}
	if sum != value {
		return ErrAmountMismatch
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, recipient := range recipients {
		r.balances[recipient] += amounts[i]
	}
	return nil
}

// Claim withdraws and zeroes the caller's PendingBalance.
func (r *Registry) Claim(nodeID ids.NodeID) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	amount, ok := r.balances[nodeID]
	if !ok || amount == 0 {
		return 0, ErrNoBalance
	}
	r.balances[nodeID] = 0
	return amount, nil
}

// PendingBalance returns addr's accrued unclaimed payout.
func (r *Registry) PendingBalance(nodeID ids.NodeID) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.balances[nodeID]
}
