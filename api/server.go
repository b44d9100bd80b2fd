// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/luxfi/agentnet/committee"
	"github.com/luxfi/agentnet/consensus"
	"github.com/luxfi/agentnet/ids"
	"github.com/luxfi/agentnet/ledger"
	"github.com/luxfi/agentnet/logging"
)

// Server exposes the Committee Registry and Consensus Engine's
// operations over HTTP (spec §6), plus a long-poll /events fallback
// for runners that cannot hold an in-process subscription and a
// /healthz endpoint.
type Server struct {
	log     logging.Logger
	engine  *consensus.Engine
	members *committee.Registry
	mux     *http.ServeMux
}

// NewServer builds a Server with all routes registered.
func NewServer(log logging.Logger, engine *consensus.Engine, members *committee.Registry) *Server {
	s := &Server{log: log, engine: engine, members: members, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/requests", s.handleRequests)
	s.mux.HandleFunc("/requests/", s.handleRequestByID)
	s.mux.HandleFunc("/responses/", s.handleSubmitResponse)
	s.mux.HandleFunc("/heartbeat", s.handleHeartbeat)
	s.mux.HandleFunc("/claim", s.handleClaim)
	s.mux.HandleFunc("/balance/", s.handleBalance)
	s.mux.HandleFunc("/events/created", s.handleEventsCreated)
	s.mux.HandleFunc("/events/finalized", s.handleEventsFinalized)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	_ = WriteSuccess(w, map[string]bool{"healthy": true})
}

type createRequestBody struct {
	Requester         ids.NodeID         `json:"requester"`
	AgentID           ids.ID             `json:"agentId"`
	Payload           []byte             `json:"payload"`
	CallbackAddress   ids.NodeID         `json:"callbackAddress"`
	CallbackSelector  string             `json:"callbackSelector"`
	Deposit           uint64             `json:"deposit"`
	ConsensusType     ledger.ConsensusType `json:"consensusType"`
	SubcommitteeSize  int                `json:"subcommitteeSize,omitempty"`
	Threshold         int                `json:"threshold,omitempty"`
}

// handleRequests implements createRequest/createAdvancedRequest: an
// explicit subcommitteeSize and threshold select the advanced form.
func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		_ = WriteError(w, http.StatusMethodNotAllowed, ErrBadRequest)
		return
	}
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		_ = WriteError(w, http.StatusBadRequest, err)
		return
	}

	var (
		requestID uint64
		err       error
	)
	if body.SubcommitteeSize > 0 {
		requestID, err = s.engine.CreateAdvancedRequest(
			r.Context(), body.Requester, body.AgentID, body.Payload, body.CallbackAddress,
			body.CallbackSelector, body.Deposit, body.ConsensusType, body.SubcommitteeSize, body.Threshold, nil,
		)
	} else {
		requestID, err = s.engine.CreateRequest(
			r.Context(), body.Requester, body.AgentID, body.Payload, body.CallbackAddress,
			body.CallbackSelector, body.Deposit, body.ConsensusType, nil,
		)
	}
	if err != nil {
		_ = WriteError(w, statusFor(err), err)
		return
	}
	_ = WriteSuccess(w, map[string]uint64{"requestId": requestID})
}

func (s *Server) handleRequestByID(w http.ResponseWriter, r *http.Request) {
	requestID, err := pathUint64(r.URL.Path, "/requests/")
	if err != nil {
		_ = WriteError(w, http.StatusBadRequest, err)
		return
	}
	req, err := s.engine.GetRequest(requestID)
	if err != nil {
		_ = WriteError(w, statusFor(err), err)
		return
	}
	_ = WriteSuccess(w, req)
}

type submitResponseBody struct {
	Validator ids.NodeID `json:"validator"`
	Result    []byte     `json:"result"`
	Receipt   ids.ID     `json:"receipt"`
	Success   bool       `json:"success"`
	Cost      uint64     `json:"cost"`
}

func (s *Server) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		_ = WriteError(w, http.StatusMethodNotAllowed, ErrBadRequest)
		return
	}
	requestID, err := pathUint64(r.URL.Path, "/responses/")
	if err != nil {
		_ = WriteError(w, http.StatusBadRequest, err)
		return
	}
	var body submitResponseBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		_ = WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.SubmitResponse(r.Context(), requestID, body.Validator, body.Result, body.Receipt, body.Success, body.Cost); err != nil {
		_ = WriteError(w, statusFor(err), err)
		return
	}
	_ = WriteSuccess(w, nil)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		_ = WriteError(w, http.StatusMethodNotAllowed, ErrBadRequest)
		return
	}
	var body struct {
		Validator ids.NodeID `json:"validator"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		_ = WriteError(w, http.StatusBadRequest, err)
		return
	}
	s.members.Heartbeat(body.Validator)
	_ = WriteSuccess(w, nil)
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		_ = WriteError(w, http.StatusMethodNotAllowed, ErrBadRequest)
		return
	}
	var body struct {
		Validator ids.NodeID `json:"validator"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		_ = WriteError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := s.members.Claim(body.Validator)
	if err != nil {
		_ = WriteError(w, statusFor(err), err)
		return
	}
	_ = WriteSuccess(w, map[string]uint64{"amount": amount})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Path[len("/balance/"):]
	nodeID, err := parseNodeIDHex(raw)
	if err != nil {
		_ = WriteError(w, http.StatusBadRequest, err)
		return
	}
	_ = WriteSuccess(w, map[string]uint64{"balance": s.members.PendingBalance(nodeID)})
}

// parseNodeIDHex decodes a hex-encoded 20-byte validator identity, the
// same form agentnetd's validator config uses for its own identity and
// its peers'.
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

// handleEventsCreated and handleEventsFinalized are the long-poll
// fallback for an out-of-process runner that cannot hold a channel
// subscription (spec SPEC_FULL.md §10): the caller supplies the cursor
// returned by its previous poll (the number of events it has already
// seen, 0 at first) and the handler blocks briefly
// waiting for newer events before responding, so a runner can poll at
// a modest cadence without busy-waiting.
func (s *Server) handleEventsCreated(w http.ResponseWriter, r *http.Request) {
	since := queryInt(r, "since", 0)
	deadline := time.Now().Add(20 * time.Second)
	for {
		events, cursor := s.engine.Events().CreatedSince(since)
		if len(events) > 0 || time.Now().After(deadline) {
			_ = WriteSuccess(w, map[string]interface{}{"events": events, "cursor": cursor})
			return
		}
		select {
		case <-r.Context().Done():
			return
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func (s *Server) handleEventsFinalized(w http.ResponseWriter, r *http.Request) {
	since := queryInt(r, "since", 0)
	deadline := time.Now().Add(20 * time.Second)
	for {
		events, cursor := s.engine.Events().FinalizedSince(since)
		if len(events) > 0 || time.Now().After(deadline) {
			_ = WriteSuccess(w, map[string]interface{}{"events": events, "cursor": cursor})
			return
		}
		select {
		case <-r.Context().Done():
			return
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func pathUint64(path, prefix string) (uint64, error) {
	raw := path[len(prefix):]
	return strconv.ParseUint(raw, 10, 64)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
