// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api exposes the network's operations (spec §6) over HTTP:
// one handler per createRequest/submitResponse/claim-style operation,
// a long-poll /events endpoint, and /healthz.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Response is the envelope every handler writes.
type Response struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error is the envelope's error shape.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewError constructs an Error.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// WriteError writes err wrapped in the envelope.
func WriteError(w http.ResponseWriter, status int, err error) error {
	return WriteJSON(w, status, Response{
		Success: false,
		Error:   &Error{Code: status, Message: err.Error()},
	})
}

// WriteSuccess writes result wrapped in the envelope with HTTP 200.
func WriteSuccess(w http.ResponseWriter, result interface{}) error {
	return WriteJSON(w, http.StatusOK, Response{Success: true, Result: result})
}

var (
	ErrNotFound            = errors.New("not found")
	ErrBadRequest          = errors.New("bad request")
	ErrInternalServerError = errors.New("internal server error")
)

// HTTPError pairs an error with the status code a handler should
// respond with.
type HTTPError struct {
	Status  int
	Message string
}

func (e HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// NewHTTPError constructs an HTTPError.
func NewHTTPError(status int, message string) HTTPError {
	return HTTPError{Status: status, Message: message}
}

// statusFor maps a domain error to the HTTP status a handler should
// respond with; unrecognized errors fall back to 500.
func statusFor(err error) int {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
