// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config holds the owner-tunable knobs of the agent network
// (spec §6 "Configuration") plus the ambient knobs a real deployment
// needs (heartbeat cadence, ring capacity).
package config

import (
	"fmt"
	"time"

	"github.com/luxfi/agentnet/ids"
)

const BpsDenominator = 10_000

// Parameters is the full set of engine-wide tunables. The engine and
// the ledger store copy them at construction; there is no setter that
// changes them afterwards.
type Parameters struct {
	// DefaultSubcommitteeSize is the subcommittee size createRequest
	// uses when the caller does not specify one explicitly.
	DefaultSubcommitteeSize int `json:"defaultSubcommitteeSize" yaml:"defaultSubcommitteeSize"`

	// DefaultThreshold is the threshold createRequest uses by default.
	DefaultThreshold int `json:"defaultThreshold" yaml:"defaultThreshold"`

	// RequestTimeout bounds how long a request may remain Pending.
	RequestTimeout time.Duration `json:"requestTimeout" yaml:"requestTimeout"`

	// CallbackGasLimit is the hard gas cap charged for every callback
	// invocation, win or lose (spec §4.5).
	CallbackGasLimit uint64 `json:"callbackGasLimit" yaml:"callbackGasLimit"`

	// GasPrice is multiplied by CallbackGasLimit to get the charged
	// callback cost (spec §4.3c).
	GasPrice uint64 `json:"gasPrice" yaml:"gasPrice"`

	// MaxPerAgentFee is the per-subcommittee-member deposit ceiling;
	// createRequest requires exactly MaxPerAgentFee*subcommitteeSize.
	MaxPerAgentFee uint64 `json:"maxPerAgentFee" yaml:"maxPerAgentFee"`

	// Treasury receives the protocol's payout share. The zero value
	// means the ledger itself retains that share (spec §4.3e).
	Treasury ids.NodeID `json:"treasury" yaml:"treasury"`

	// RunnerBps, CreatorBps and ProtocolBps must sum to BpsDenominator.
	RunnerBps   uint64 `json:"runnerBps" yaml:"runnerBps"`
	CreatorBps  uint64 `json:"creatorBps" yaml:"creatorBps"`
	ProtocolBps uint64 `json:"protocolBps" yaml:"protocolBps"`

	// HeartbeatInterval and UpkeepInterval govern committee liveness
	// (spec §4.1).
	HeartbeatInterval time.Duration `json:"heartbeatInterval" yaml:"heartbeatInterval"`
	UpkeepInterval    time.Duration `json:"upkeepInterval" yaml:"upkeepInterval"`

	// RingCapacity is the fixed number of slots in the request ledger.
	RingCapacity uint64 `json:"ringCapacity" yaml:"ringCapacity"`

	// StartingRequestID is the first id the ledger allocates.
	StartingRequestID uint64 `json:"startingRequestId" yaml:"startingRequestId"`
}

// Verify checks the parameters are internally consistent, following
// the field-by-field validation style of a sampling-parameter struct.
func (p Parameters) Verify() error {
	if p.DefaultSubcommitteeSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSubcommitteeSize, p.DefaultSubcommitteeSize)
	}
	if p.DefaultThreshold <= 0 || p.DefaultThreshold > p.DefaultSubcommitteeSize {
		return fmt.Errorf("%w: threshold=%d size=%d", ErrInvalidThreshold, p.DefaultThreshold, p.DefaultSubcommitteeSize)
	}
	if p.RequestTimeout <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidRequestTimeout, p.RequestTimeout)
	}
	if p.CallbackGasLimit == 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCallbackGasLimit, p.CallbackGasLimit)
	}
	if p.MaxPerAgentFee == 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxPerAgentFee, p.MaxPerAgentFee)
	}
	if p.RunnerBps+p.CreatorBps+p.ProtocolBps != BpsDenominator {
		return fmt.Errorf("%w: got %d+%d+%d", ErrInvalidBps, p.RunnerBps, p.CreatorBps, p.ProtocolBps)
	}
	if p.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidHeartbeat, p.HeartbeatInterval)
	}
	if p.UpkeepInterval <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidUpkeepInterval, p.UpkeepInterval)
	}
	if p.RingCapacity == 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidRingCapacity, p.RingCapacity)
	}
	return nil
}

// RequestDeposit returns the deposit createRequest requires for the
// default subcommittee size (spec §6 getRequestDeposit).
func (p Parameters) RequestDeposit() uint64 {
	return p.MaxPerAgentFee * uint64(p.DefaultSubcommitteeSize)
}

// DefaultParameters returns the parameter set exercised by the S1
// happy-path scenario: a 3-member subcommittee, threshold 2, a 1000-unit
// per-agent fee ceiling, and a 70/20/10 payout split.
func DefaultParameters() Parameters {
	return Parameters{
		DefaultSubcommitteeSize: 3,
		DefaultThreshold:        2,
		RequestTimeout:          2 * time.Minute,
		CallbackGasLimit:        100_000,
		GasPrice:                1,
		MaxPerAgentFee:          1000,
		RunnerBps:               7000,
		CreatorBps:              2000,
		ProtocolBps:             1000,
		HeartbeatInterval:       30 * time.Second,
		UpkeepInterval:          time.Minute,
		RingCapacity:            1024,
		StartingRequestID:       0,
	}
}
