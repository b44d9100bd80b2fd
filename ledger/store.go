// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

// Store abstracts the ring's backing storage (Design Notes §9): the
// default in-memory implementation suffices for tests and the
// simulator; a durable implementation could back it with a database
// without changing Engine.
type Store interface {
	// Capacity returns the ring's fixed slot count.
	Capacity() uint64

	// AllocateNext assigns the next requestId, writes req into
	// ring[requestId mod capacity] (overwriting any prior occupant),
	// and returns the assigned id.
	AllocateNext(req Request) uint64

	// Get returns the request at requestId mod capacity, or
	// ErrRequestNotFound if that slot's stored id does not match (I9).
	Get(requestID uint64) (Request, error)

	// Put overwrites the full request state for requestID. It is the
	// caller's responsibility to have first validated identity via Get
	// or to be the allocator that just created the slot.
	Put(requestID uint64, req Request) error

	// OldestPendingID and SetOldestPendingID track the sweep cursor
	// upkeepRequests uses (spec §4.3).
	OldestPendingID() uint64
	SetOldestPendingID(id uint64)

	// NextRequestID returns the id AllocateNext will assign next,
	// without allocating it.
	NextRequestID() uint64
}

// slot pairs a Request with the id it was stored under, so a stale
// lookup (a later id having overwritten the same ring index) can be
// detected per I9.
type slot struct {
	id  uint64
	req Request
	set bool
}
