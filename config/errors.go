// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "errors"

var (
	ErrInvalidSubcommitteeSize = errors.New("default subcommittee size must be >= 1")
	ErrInvalidThreshold        = errors.New("default threshold must be between 1 and the subcommittee size")
	ErrInvalidRequestTimeout   = errors.New("request timeout must be > 0")
	ErrInvalidCallbackGasLimit = errors.New("callback gas limit must be > 0")
	ErrInvalidMaxPerAgentFee   = errors.New("max per-agent fee must be > 0")
	ErrInvalidBps              = errors.New("runnerBps + creatorBps + protocolBps must equal 10000")
	ErrInvalidHeartbeat        = errors.New("heartbeat interval must be > 0")
	ErrInvalidUpkeepInterval   = errors.New("upkeep interval must be > 0")
	ErrInvalidRingCapacity     = errors.New("ring capacity must be >= 1")
)
