// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/luxfi/agentnet/consensus"
	"github.com/luxfi/agentnet/ids"
)

// apiClient is the Validator Runner's HTTP client for the on-chain
// API (api.Server): submitting responses and long-polling for newly
// created requests, mirroring the envelope shape api/response.go
// writes.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *apiClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return err
	}
	if !env.Success {
		if env.Error != nil {
			return fmt.Errorf("api error %d: %s", env.Error.Code, env.Error.Message)
		}
		return fmt.Errorf("api error: status %d", resp.StatusCode)
	}
	if out != nil && len(env.Result) > 0 {
		return json.Unmarshal(env.Result, out)
	}
	return nil
}

// SubmitResponse implements runner.Submitter against the on-chain
// API's /responses/{id} route.
func (c *apiClient) SubmitResponse(ctx context.Context, requestID uint64, validator ids.NodeID, result []byte, receipt ids.ID, success bool, cost uint64) error {
	body := struct {
		Validator ids.NodeID `json:"validator"`
		Result    []byte     `json:"result"`
		Receipt   ids.ID     `json:"receipt"`
		Success   bool       `json:"success"`
		Cost      uint64     `json:"cost"`
	}{Validator: validator, Result: result, Receipt: receipt, Success: success, Cost: cost}
	return c.do(ctx, http.MethodPost, "/responses/"+strconv.FormatUint(requestID, 10), body, nil)
}

func (c *apiClient) Heartbeat(ctx context.Context, validator ids.NodeID) error {
	body := struct {
		Validator ids.NodeID `json:"validator"`
	}{Validator: validator}
	return c.do(ctx, http.MethodPost, "/heartbeat", body, nil)
}

type createdEventsResult struct {
	Events []consensus.RequestCreatedEvent `json:"events"`
	Cursor int                             `json:"cursor"`
}

// PollCreated long-polls /events/created since cursor and returns any
// newly observed events plus the advanced cursor. It decodes directly
// into consensus.RequestCreatedEvent, the same type the on-chain side
// publishes, so whatever JSON shape ids.ID/ids.NodeID produce is
// handled identically on both ends.
func (c *apiClient) PollCreated(ctx context.Context, since int) ([]consensus.RequestCreatedEvent, int, error) {
	var out createdEventsResult
	path := "/events/created?since=" + strconv.Itoa(since)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, since, err
	}
	return out.Events, out.Cursor, nil
}
