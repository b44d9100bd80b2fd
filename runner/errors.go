// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runner

import "errors"

// errPeerQuorumUnreachable is recorded on a Task dropped because the
// peer quorum gate never saw enough willing peers within its request
// budget (spec §4.6 "DROPPED (peer quorum not reachable)").
var errPeerQuorumUnreachable = errors.New("peer quorum not reachable")
