// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package agentregistry defines the boundary to the external Agent
// Registry collaborator (spec §1, §6 "Agent Registry API"). It is
// consumed only: createRequest looks up an agent's creator and
// container image; nothing in this module mutates the registry.
package agentregistry

import (
	"context"
	"errors"
	"fmt"

	"github.com/luxfi/agentnet/ids"
)

// ErrAgentNotFound is returned when agentId has no registry entry.
var ErrAgentNotFound = errors.New("agent not found")

// Agent is the metadata createRequest needs from the registry.
type Agent struct {
	MetadataURI      string
	ContainerImageURI string
	Creator          ids.NodeID
}

// Registry answers agent identity lookups.
type Registry interface {
	// GetAgent returns agentId's metadata, or a wrapped ErrAgentNotFound
	// if agentId is unknown.
	GetAgent(ctx context.Context, agentID ids.ID) (Agent, error)
}

// NotFoundError wraps ErrAgentNotFound with the offending id.
func NotFoundError(agentID ids.ID) error {
	return fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
}
