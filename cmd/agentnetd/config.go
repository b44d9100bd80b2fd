// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/luxfi/agentnet/config"
	"github.com/luxfi/agentnet/ids"
)

// daemonConfig is the on-disk shape for agentnetd serve,
// following the same yaml-tagged-struct convention config.Parameters
// itself uses.
type daemonConfig struct {
	Listen     string            `yaml:"listen"`
	Parameters config.Parameters `yaml:"parameters"`
	Agents     []agentEntry      `yaml:"agents"`
}

type agentEntry struct {
	AgentID           string `yaml:"agentId"`
	ContainerImageURI string `yaml:"containerImageUri"`
	MetadataURI       string `yaml:"metadataUri"`
	Creator           string `yaml:"creator"`
}

// validatorConfig is agentnetd validator's own on-disk shape: it
// points at an already-running daemon and lists the peers its runner
// should probe before executing.
type validatorConfig struct {
	APIBaseURL     string            `yaml:"apiBaseUrl"`
	HostAPIBaseURL string            `yaml:"hostApiBaseUrl"`
	QuorumListen   string            `yaml:"quorumListen"`
	Self           string            `yaml:"self"`
	Peers          map[string]string `yaml:"peers"` // hex NodeID -> base URL
	MaxInFlight    int64             `yaml:"maxInFlight"`
}

func loadDaemonConfig(path string) (daemonConfig, error) {
	var cfg daemonConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Parameters.Verify(); err != nil {
		return cfg, fmt.Errorf("invalid parameters: %w", err)
	}
	return cfg, nil
}

func loadValidatorConfig(path string) (validatorConfig, error) {
	var cfg validatorConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseIDHex(s string) (ids.ID, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ids.ID{}, err
	}
	if len(raw) != 32 {
		return ids.ID{}, fmt.Errorf("agent id must be 32 bytes, got %d", len(raw))
	}
	var out [32]byte
	copy(out[:], raw)
	return ids.ID(out), nil
}

func parseNodeIDHex(s string) (ids.NodeID, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ids.NodeID{}, err
	}
	if len(raw) != 20 {
		return ids.NodeID{}, fmt.Errorf("node id must be 20 bytes, got %d", len(raw))
	}
	var out [20]byte
	copy(out[:], raw)
	return ids.NodeID(out), nil
}
