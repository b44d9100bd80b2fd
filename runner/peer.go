// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runner

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/luxfi/agentnet/ids"
)

// QuorumProbeRequest is what a runner posts to a peer's /quorum
// endpoint when gating execution on peer quorum (spec §4.6).
type QuorumProbeRequest struct {
	RequestID uint64     `json:"requestId"`
	AgentID   ids.ID     `json:"agentId"`
	Self      ids.NodeID `json:"self"`
	Payload   []byte     `json:"payload"`
}

// QuorumIntent is a peer's answer to a QuorumProbeRequest: whether it
// will run the request if quorum is reached.
type QuorumIntent struct {
	WillRun bool `json:"willRun"`
}

// Prober asks a peer validator whether it intends to run a request, so
// a runner can gate its own execution on peer quorum (spec §4.6).
type Prober interface {
	Probe(ctx context.Context, peerAddr string, req QuorumProbeRequest) (QuorumIntent, error)
}

// httpProber is the production Prober: a plain POST against the peer's
// /quorum endpoint, answered with a bare QuorumIntent JSON body rather
// than the success/result envelope the Host API and on-chain API use.
type httpProber struct {
	client *http.Client
}

// NewHTTPProber returns a Prober with the given per-request timeout.
func NewHTTPProber(timeout time.Duration) Prober {
	return &httpProber{client: &http.Client{Timeout: timeout}}
}

func (p *httpProber) Probe(ctx context.Context, peerAddr string, probeReq QuorumProbeRequest) (QuorumIntent, error) {
	buf, err := json.Marshal(probeReq)
	if err != nil {
		return QuorumIntent{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, peerAddr+"/quorum", bytes.NewReader(buf))
	if err != nil {
		return QuorumIntent{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return QuorumIntent{}, err
	}
	defer resp.Body.Close()

	var intent QuorumIntent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return QuorumIntent{}, err
	}
	return intent, nil
}

// PeerBook resolves a validator identity to its probe-able HTTP
// address. There is no peer-discovery protocol in this module (the
// teacher's mdns/zeroconf/p2p dependencies are dropped, see
// DESIGN.md); addresses are configured directly, matching the
// DefaultParameters-style static configuration the rest of the module
// uses.
type PeerBook struct {
	mu        sync.RWMutex
	addresses map[ids.NodeID]string
}

// NewPeerBook returns an empty PeerBook.
func NewPeerBook() *PeerBook {
	return &PeerBook{addresses: make(map[ids.NodeID]string)}
}

// Set records nodeID's probe-able base URL (e.g. "http://10.0.0.4:9090").
func (b *PeerBook) Set(nodeID ids.NodeID, addr string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addresses[nodeID] = addr
}

// Get returns nodeID's address, or false if unknown.
func (b *PeerBook) Get(nodeID ids.NodeID) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	addr, ok := b.addresses[nodeID]
	return addr, ok
}

// parseNodeIDHex mirrors api.parseNodeIDHex: both packages decode the
// same hex wire form for a validator identity independently, since
// runner does not import the api package (it is the api package's
// client, not its consumer).
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
