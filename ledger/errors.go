// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import "errors"

// ErrRequestNotFound is returned by every lookup/mutate operation when
// the slot at requestId mod capacity does not hold requestId (I9):
// either the id was never allocated or it has been overwritten by a
// later request hashing to the same slot.
var ErrRequestNotFound = errors.New("request not found")
