// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ids re-exports the identity types shared across the agent
// network: a 256-bit content identifier and a 20-byte validator
// identity, plus the seeded Keccak-256 hash used for deterministic
// subcommittee election.
package ids

import (
	"github.com/luxfi/ids"
	"golang.org/x/crypto/sha3"
)

// ID is a 256-bit content identifier: request ids derive their seed
// material from it and execution receipts are content-addressed by it.
type ID = ids.ID

// NodeID is the opaque 20-byte identity of a validator.
type NodeID = ids.NodeID

// Empty and EmptyNodeID are the zero values of ID and NodeID.
var (
	Empty       = ids.Empty
	EmptyNodeID = ids.EmptyNodeID
)

// Hash256 returns the Keccak-256 digest of data as a 32-byte ID.
//
// electSubcommittee's Fisher-Yates shuffle calls this once per swap
// with seed||i as input; any other hash would change the output for
// the same (seed, i), so callers must not substitute crypto/sha256.
func Hash256(data ...[]byte) ID {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out ID
	h.Sum(out[:0])
	return out
}
