// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream turns a chunked NDJSON response body into chat events.
package stream

import (
	"strings"
)

// Accumulator collects the text of a stream as it is delivered.
type Accumulator struct {
	content   strings.Builder
	reasoning strings.Builder
	events    int
}

// Add appends an event's deltas.
func (a *Accumulator) Add(ev Event) {
	a.content.WriteString(ev.Content)
	a.reasoning.WriteString(ev.Reasoning)
	if ev.HasDelta() {
		a.events++
	}
}

// Content returns the visible text so far.
func (a *Accumulator) Content() string {
	return a.content.String()
}

// Reasoning returns the reasoning text so far.
func (a *Accumulator) Reasoning() string {
	return a.reasoning.String()
}

// Events returns how many deltas were added.
func (a *Accumulator) Events() int {
	return a.events
}

// Callback returns a Callback that feeds the accumulator and then next.
func (a *Accumulator) Callback(next Callback) Callback {
	return func(ev Event) {
		a.Add(ev)
		if next != nil {
			next(ev)
		}
	}
}
