// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Character"
	case RoleSystem:
		return "Narrator"
	default:
		return string(r)
	}
}

// =============================================================================
// PROVISIONAL IDS
// =============================================================================

const (
	// ProvisionalPrefix marks ids that were minted locally and never
	// confirmed by the backend.
	ProvisionalPrefix = "tmp-"

	provisionalUser      = ProvisionalPrefix + "user-"
	provisionalAssistant = ProvisionalPrefix + "assistant-"
)

// IsProvisional reports whether id was minted locally.
func IsProvisional(id string) bool {
	return strings.HasPrefix(id, ProvisionalPrefix)
}

// NewProvisionalID returns a fresh local id for a message of the given role.
func NewProvisionalID(role Role) string {
	if role == RoleAssistant {
		return provisionalAssistant + shortuuid.New()
	}
	return provisionalUser + shortuuid.New()
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Metadata keys.
const (
	// MetadataReasoning holds accumulated reasoning text.
	MetadataReasoning = "reasoning_text"

	// MetadataInterrupted is set on a reply whose stream broke off.
	MetadataInterrupted = "interrupted"
)

// Message is a single entry of a session's conversation.
type Message struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"session_id"`
	Role        Role           `json:"role"`
	Content     string         `json:"content"`
	IsImportant bool           `json:"is_important"`
	CreatedAt   time.Time      `json:"created_at"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewPendingUserMessage builds the optimistic user entry rendered before the
// backend confirms the send.
func NewPendingUserMessage(sessionID, content string) *Message {
	return &Message{
		ID:        NewProvisionalID(RoleUser),
		SessionID: sessionID,
		Role:      RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// NewPlaceholder builds the empty assistant entry that streamed deltas are
// written into.
func NewPlaceholder(sessionID string) *Message {
	return &Message{
		ID:        NewProvisionalID(RoleAssistant),
		SessionID: sessionID,
		Role:      RoleAssistant,
		CreatedAt: time.Now(),
		Metadata:  map[string]any{},
	}
}

// Provisional reports whether the message has not been confirmed yet.
func (m *Message) Provisional() bool {
	return IsProvisional(m.ID)
}

// Reasoning returns the reasoning side-channel text, if any.
func (m *Message) Reasoning() string {
	if m.Metadata == nil {
		return ""
	}
	s, _ := m.Metadata[MetadataReasoning].(string)
	return s
}

// AppendReasoning appends delta to the reasoning side-channel.
func (m *Message) AppendReasoning(delta string) {
	if m.Metadata == nil {
		m.Metadata = map[string]any{}
	}
	m.Metadata[MetadataReasoning] = m.Reasoning() + delta
}

// MarkInterrupted flags the message as cut off mid-stream.
func (m *Message) MarkInterrupted() {
	if m.Metadata == nil {
		m.Metadata = map[string]any{}
	}
	m.Metadata[MetadataInterrupted] = true
}

// Interrupted reports whether the message was cut off mid-stream.
func (m *Message) Interrupted() bool {
	v, _ := m.Metadata[MetadataInterrupted].(bool)
	return v
}

// Clone returns a copy that shares no mutable state with m.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	if m.Metadata != nil {
		c.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
