// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream turns a chunked NDJSON response body into chat events.
package stream

import (
	"encoding/json"
	"fmt"

	"github.com/jeranaias/rolechat/internal/util"
)

// =============================================================================
// EVENTS
// =============================================================================

// Event is one decoded stream record.
type Event struct {
	// Content is the next slice of the visible reply.
	Content string `json:"content,omitempty"`

	// Reasoning is the next slice of the model's reasoning side-channel.
	Reasoning string `json:"reasoning,omitempty"`

	// Done marks the backend's end-of-reply record. It is informational
	// only; completion is signalled by the end of the body.
	Done bool `json:"done,omitempty"`
}

// HasDelta reports whether applying the event would change anything.
func (e Event) HasDelta() bool {
	return e.Content != "" || e.Reasoning != ""
}

// TerminalOnly reports whether the event is a bare completion marker.
func (e Event) TerminalOnly() bool {
	return e.Done && !e.HasDelta()
}

// ParseError describes a record that could not be decoded. It is never
// fatal to the stream.
type ParseError struct {
	Record string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed stream record %q: %v", util.TruncateWidth(e.Record, 80), e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse decodes one record. Anything other than a JSON object is rejected.
func Parse(record string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(record), &ev); err != nil {
		return Event{}, &ParseError{Record: record, Err: err}
	}
	if len(record) == 0 || record[0] != '{' {
		return Event{}, &ParseError{Record: record, Err: fmt.Errorf("not a JSON object")}
	}
	return ev, nil
}
