// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import "errors"

var (
	ErrInvalidThreshold      = errors.New("threshold must be > 0 and <= subcommittee size")
	ErrIncorrectDeposit      = errors.New("deposit does not equal maxPerAgentFee * subcommitteeSize")
	ErrAgentNotFound         = errors.New("agent not found")
	ErrInsufficientMembers   = errors.New("insufficient active members to elect subcommittee")
	ErrRequestNotFound       = errors.New("request not found")
	ErrNotSubcommitteeMember = errors.New("caller is not a member of the request's subcommittee")
	ErrRequestTimedOut       = errors.New("request's response window has elapsed")
	ErrAlreadyResponded      = errors.New("validator already responded to this request")
	ErrNotYetTimedOut        = errors.New("request has not yet reached its timeout")
)
