// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hostapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/agentnet/ids"
)

func TestHTTPClientLoadInvokeRemove(t *testing.T) {
	require := require.New(t)

	wantReceipt := ids.Hash256([]byte("receipt"))

	mux := http.NewServeMux()
	mux.HandleFunc("/containers", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(envelope{Success: true, Result: json.RawMessage(`{"handle":"h1"}`)})
	})
	mux.HandleFunc("/invoke", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := json.Marshal(InvokeResult{Result: []byte("foo"), Receipt: wantReceipt, Success: true, Cost: 42})
		_ = json.NewEncoder(w).Encode(envelope{Success: true, Result: raw})
	})
	mux.HandleFunc("/containers/remove", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(envelope{Success: true})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second)

	handle, err := client.Load(context.Background(), "oci://example/agent:latest")
	require.NoError(err)
	require.Equal("h1", handle)

	result, err := client.Invoke(context.Background(), handle, []byte("payload"))
	require.NoError(err)
	require.True(result.Success)
	require.Equal(uint64(42), result.Cost)
	require.Equal([]byte("foo"), result.Result)
	require.Equal(wantReceipt, result.Receipt)

	require.NoError(client.Remove(context.Background(), handle))
}

func TestHTTPClientPropagatesHostError(t *testing.T) {
	require := require.New(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/invoke", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: &struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}{Code: 500, Message: "container crashed"}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second)
	_, err := client.Invoke(context.Background(), "h1", nil)
	require.ErrorIs(err, ErrHostCallFailed)
}
