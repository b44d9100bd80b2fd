// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"

	"github.com/luxfi/agentnet/agentregistry"
	"github.com/luxfi/agentnet/ids"
)

// staticRegistry answers agentregistry.Registry lookups from a fixed
// set of entries loaded from the daemon's own config file. A real
// deployment would instead front an external Agent Registry service;
// this module only consumes that collaborator (see agentregistry's
// package doc), so a config-driven stand-in is enough to run it.
type staticRegistry struct {
	agents map[ids.ID]agentregistry.Agent
}

func newStaticRegistry(entries []agentEntry) (*staticRegistry, error) {
	agents := make(map[ids.ID]agentregistry.Agent, len(entries))
	for _, e := range entries {
		agentID, err := parseIDHex(e.AgentID)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", e.AgentID, err)
		}
		var creator ids.NodeID
		if e.Creator != "" {
			creator, err = parseNodeIDHex(e.Creator)
			if err != nil {
				return nil, fmt.Errorf("agent %q creator: %w", e.AgentID, err)
			}
		}
		agents[agentID] = agentregistry.Agent{
			MetadataURI:       e.MetadataURI,
			ContainerImageURI: e.ContainerImageURI,
			Creator:           creator,
		}
	}
	return &staticRegistry{agents: agents}, nil
}

func (r *staticRegistry) GetAgent(_ context.Context, agentID ids.ID) (agentregistry.Agent, error) {
	agent, ok := r.agents[agentID]
	if !ok {
		return agentregistry.Agent{}, agentregistry.NotFoundError(agentID)
	}
	return agent, nil
}
