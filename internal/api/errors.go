// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the authenticated HTTP transport to the chat backend.
package api

import (
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// TransportError is any failure to complete a backend request: the network
// call failed (Status 0) or the backend answered with a non-2xx status.
type TransportError struct {
	// Status is the HTTP status code, or 0 when no response was received.
	Status int

	// Message is the backend's "error" field when it sent one.
	Message string

	Method string
	Path   string
	Cause  error
}

func (e *TransportError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Status == 0 && e.Cause != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Cause)
	case e.Status != 0:
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	default:
		return "request failed"
	}
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Sentinel errors for easy checking.
var (
	// ErrSessionExpired marks 401/403 answers. The stored credential has
	// already been cleared when it is returned.
	ErrSessionExpired = errors.New("login session expired")

	// ErrEmptyResponse means a 2xx answer had no usable data.
	ErrEmptyResponse = errors.New("empty response from backend")
)

// IsAuthExpired reports whether err came from a 401/403 answer.
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// IsNetwork reports whether err is a transport failure with no HTTP answer.
func IsNetwork(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Status == 0
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status
	}
	return 0
}

// BackendMessage returns the backend's own error text carried by err, if any.
func BackendMessage(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Message
	}
	return ""
}
