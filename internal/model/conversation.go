// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"encoding/json"
)

// =============================================================================
// SESSION VIEW
// =============================================================================

// SessionView is the canonical state of one session as returned by the
// backend: the session summary, its persona context and the full message list.
//
// Role and World are passed through untouched; this package never looks
// inside them.
type SessionView struct {
	Session  Session         `json:"session"`
	Role     json.RawMessage `json:"role,omitempty"`
	World    json.RawMessage `json:"world,omitempty"`
	Messages []*Message      `json:"messages"`
}

// LastMessage returns the final message of the view, or nil.
func (v *SessionView) LastMessage() *Message {
	if v == nil || len(v.Messages) == 0 {
		return nil
	}
	return v.Messages[len(v.Messages)-1]
}

// RoleName extracts a display name from the opaque role payload.
// Missing or malformed payloads yield "".
func (v *SessionView) RoleName() string {
	if v == nil || len(v.Role) == 0 {
		return ""
	}
	var role struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(v.Role, &role); err != nil {
		return ""
	}
	return role.Name
}

// =============================================================================
// SEND REQUEST
// =============================================================================

// SendRequest is the body of a post-message call.
type SendRequest struct {
	Content string          `json:"content"`
	Preset  json.RawMessage `json:"preset,omitempty"`
	Stream  bool            `json:"stream"`
}

// CloneMessages deep-copies a message slice.
func CloneMessages(msgs []*Message) []*Message {
	out := make([]*Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
