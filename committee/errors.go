// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package committee

import "errors"

var (
	// ErrInsufficientMembers is returned by ElectSubcommittee when the
	// active set is smaller than the requested sample size.
	ErrInsufficientMembers = errors.New("insufficient active members")

	// ErrNoBalance is returned by Claim when the caller's pending
	// balance is zero.
	ErrNoBalance = errors.New("no pending balance")

	// ErrAmountMismatch is returned by Deposit when the sum of amounts
	// does not equal the transferred value.
	ErrAmountMismatch = errors.New("sum of amounts does not match deposited value")

	// ErrRecipientAmountMismatch is returned by Deposit when recipients
	// and amounts are not the same length.
	ErrRecipientAmountMismatch = errors.New("recipients and amounts must be the same length")
)
