// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package agentregistrytest provides an in-memory agentregistry.Registry
// for tests and the scenario simulator.
package agentregistrytest

import (
	"context"
	"sync"

	"github.com/luxfi/agentnet/agentregistry"
	"github.com/luxfi/agentnet/ids"
)

// Stub is a map-backed agentregistry.Registry.
type Stub struct {
	mu     sync.RWMutex
	agents map[ids.ID]agentregistry.Agent
}

// NewStub returns an empty Stub.
func NewStub() *Stub {
	return &Stub{agents: make(map[ids.ID]agentregistry.Agent)}
}

// Register adds or replaces agentID's metadata.
func (s *Stub) Register(agentID ids.ID, agent agentregistry.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[agentID] = agent
}

// GetAgent implements agentregistry.Registry.
func (s *Stub) GetAgent(_ context.Context, agentID ids.ID) (agentregistry.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agent, ok := s.agents[agentID]
	if !ok {
		return agentregistry.Agent{}, agentregistry.NotFoundError(agentID)
	}
	return agent, nil
}
