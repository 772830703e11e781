// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat keeps local chat state consistent with the backend while
// replies stream in.
package chat

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// Sentinel errors for easy checking.
var (
	ErrMissingRoleID   = errors.New("missing role id")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrSessionNotOpen  = errors.New("session is not open")
	ErrMessageNotFound = errors.New("message not found")
	ErrNotAssistant    = errors.New("only assistant messages can be retried")
	ErrProvisional     = errors.New("message is not saved yet")
)

// StreamError is returned when a reply stream broke after it started. The
// text already rendered stays in the timeline.
type StreamError struct {
	SessionID string
	Partial   string
	Err       error
}

func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("reply stream interrupted after %d chars: %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("reply stream interrupted: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// ReconciliationError means the exchange succeeded but the canonical
// session could not be fetched afterwards. Local recency data is stale.
type ReconciliationError struct {
	SessionID string
	Err       error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("refresh session %s: %v", e.SessionID, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// IsStreamInterrupted reports whether err is a *StreamError.
func IsStreamInterrupted(err error) bool {
	var se *StreamError
	return errors.As(err, &se)
}
