// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"time"

	"github.com/luxfi/agentnet/agentregistry"
	"github.com/luxfi/agentnet/agentregistry/agentregistrytest"
	"github.com/luxfi/agentnet/committee"
	"github.com/luxfi/agentnet/config"
	"github.com/luxfi/agentnet/consensus"
	"github.com/luxfi/agentnet/ids"
	"github.com/luxfi/agentnet/ledger"
	"github.com/luxfi/agentnet/logging"
	"github.com/luxfi/agentnet/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// fakeClock gives a scenario direct control over committee.Clock, so
// timeouts and epoch boundaries can be exercised without a real sleep.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func nodeID(b byte) ids.NodeID {
	var raw [20]byte
	raw[19] = b
	return ids.NodeID(raw)
}

func agentID(b byte) ids.ID {
	var raw [32]byte
	raw[31] = b
	return ids.ID(raw)
}

// harness bundles one scenario's wired-up components: a fixed-size
// committee, a single registered agent, and a fresh engine over an
// in-memory ledger.
type harness struct {
	engine  *consensus.Engine
	members *committee.Registry
	agents  *agentregistrytest.Stub
	clock   *fakeClock
	agent   ids.ID
	creator ids.NodeID
	params  config.Parameters
}

func newHarness(validatorCount int, params config.Parameters) *harness {
	clock := &fakeClock{now: time.Unix(0, 0)}
	reg := prometheus.NewRegistry()
	metric, err := metrics.NewRegistry("agentnetsim", reg)
	if err != nil {
		panic(err)
	}

	members := committee.New(logging.NewNoOp(), clock, metric, params.HeartbeatInterval, params.UpkeepInterval)
	for i := 0; i < validatorCount; i++ {
		members.Heartbeat(nodeID(byte(i + 1)))
	}

	agents := agentregistrytest.NewStub()
	creator := nodeID(100)
	agent := agentID(1)
	agents.Register(agent, agentregistry.Agent{ContainerImageURI: "agent://demo", Creator: creator})

	store := ledger.NewMemStore(params.RingCapacity, params.StartingRequestID)
	engine := consensus.New(logging.NewNoOp(), clock, params, store, members, agents, metric)

	return &harness{
		engine:  engine,
		members: members,
		agents:  agents,
		clock:   clock,
		agent:   agent,
		creator: creator,
		params:  params,
	}
}
