// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hostapi is the Validator Runner's client to the local
// container Host API (spec §5 "Host API"): load an agent's container
// image, invoke it with a request's payload, and remove it once the
// runner is done with it.
package hostapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/luxfi/agentnet/ids"
)

// ErrHostCallFailed wraps a non-success envelope returned by the host.
var ErrHostCallFailed = errors.New("host api call failed")

// InvokeResult is what the host returns for one agent invocation (spec
// §4.7: invoke returns {result, receipt, cost, success}). Receipt is
// the content-addressed id of the execution receipt the Host API
// recorded; it travels with the result all the way into the recorded
// ledger.Response so a later dispute can be checked against it.
type InvokeResult struct {
	Result  []byte `json:"result"`
	Receipt ids.ID `json:"receipt"`
	Success bool   `json:"success"`
	Cost    uint64 `json:"cost"`
}

// Client is the boundary the Validator Runner uses to run an agent's
// container. Implementations are expected to enforce their own
// resource and time limits; Invoke's ctx is a cooperative cancellation
// signal, not a substitute for that.
type Client interface {
	// Load pulls/starts containerImageURI if it is not already warm,
	// returning an opaque handle the runner passes to Invoke/Remove.
	Load(ctx context.Context, containerImageURI string) (string, error)

	// Invoke runs the loaded container against payload and returns its
	// quoted result.
	Invoke(ctx context.Context, handle string, payload []byte) (InvokeResult, error)

	// Remove tears down the container the handle refers to.
	Remove(ctx context.Context, handle string) error
}

// httpClient is the production Client: plain net/http against a local
// host daemon, using the same success/result/error JSON envelope the
// network's own API exposes.
type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a Client that talks to the Host API at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) Client {
	return &httpClient{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *httpClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
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
		return fmt.Errorf("decoding host api response: %w", err)
	}
	if !env.Success {
		msg := "unknown error"
		if env.Error != nil {
			msg = env.Error.Message
		}
		return fmt.Errorf("%w: %s", ErrHostCallFailed, msg)
	}
	if out != nil && env.Result != nil {
		return json.Unmarshal(env.Result, out)
	}
	return nil
}

func (c *httpClient) Load(ctx context.Context, containerImageURI string) (string, error) {
	var out struct {
		Handle string `json:"handle"`
	}
	body := map[string]string{"containerImageUri": containerImageURI}
	if err := c.do(ctx, http.MethodPost, "/containers", body, &out); err != nil {
		return "", err
	}
	return out.Handle, nil
}

func (c *httpClient) Invoke(ctx context.Context, handle string, payload []byte) (InvokeResult, error) {
	var out InvokeResult
	body := map[string]interface{}{"handle": handle, "payload": payload}
	if err := c.do(ctx, http.MethodPost, "/invoke", body, &out); err != nil {
		return InvokeResult{}, err
	}
	return out, nil
}

func (c *httpClient) Remove(ctx context.Context, handle string) error {
	body := map[string]string{"handle": handle}
	return c.do(ctx, http.MethodPost, "/containers/remove", body, nil)
}
