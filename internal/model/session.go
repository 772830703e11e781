// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"time"
)

// =============================================================================
// SETTINGS
// =============================================================================

// Settings holds the generation knobs attached to a session.
type Settings struct {
	Temperature    float64 `json:"temperature"`
	MaxTokens      int     `json:"max_tokens"`
	NarrativeFocus string  `json:"narrative_focus"`
	ActionRichness string  `json:"action_richness"`
	SFWMode        bool    `json:"sfw_mode"`
	Immersive      bool    `json:"immersive"`
}

// DefaultSettings returns the settings a fresh session starts with.
func DefaultSettings() Settings {
	return Settings{
		Temperature:    0.7,
		MaxTokens:      512,
		NarrativeFocus: "balanced",
		ActionRichness: "medium",
		SFWMode:        true,
		Immersive:      true,
	}
}

// SettingsPatch is a partial settings update. Nil fields are left untouched
// by the backend and omitted on the wire.
type SettingsPatch struct {
	Mode           *string  `json:"mode,omitempty"`
	ModelKey       *string  `json:"model_key,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	MaxTokens      *int     `json:"max_tokens,omitempty"`
	NarrativeFocus *string  `json:"narrative_focus,omitempty"`
	ActionRichness *string  `json:"action_richness,omitempty"`
	SFWMode        *bool    `json:"sfw_mode,omitempty"`
	Immersive      *bool    `json:"immersive,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p SettingsPatch) Empty() bool {
	return p == SettingsPatch{}
}

// Apply returns a copy of s with the patch's settings fields applied.
// Mode and ModelKey live on the session and are ignored here.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.Temperature != nil {
		s.Temperature = *p.Temperature
	}
	if p.MaxTokens != nil {
		s.MaxTokens = *p.MaxTokens
	}
	if p.NarrativeFocus != nil {
		s.NarrativeFocus = *p.NarrativeFocus
	}
	if p.ActionRichness != nil {
		s.ActionRichness = *p.ActionRichness
	}
	if p.SFWMode != nil {
		s.SFWMode = *p.SFWMode
	}
	if p.Immersive != nil {
		s.Immersive = *p.Immersive
	}
	return s
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the summary of one conversation with a role.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	RoleID      string    `json:"role_id"`
	ModelKey    string    `json:"model_key"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	LastMessage string    `json:"last_message"`
	Mode        string    `json:"mode"`
	Status      string    `json:"status"`
	Settings    Settings  `json:"settings"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clone returns a copy of s. Sessions hold no reference types, so a value
// copy is enough; the method exists so callers never share a pointer.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// DisplayTitle returns the title, falling back to the id.
func (s *Session) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return s.ID
}

// CreateSessionRequest is the body of a create-session call.
type CreateSessionRequest struct {
	RoleID   string `json:"role_id"`
	ModelKey string `json:"model_key,omitempty"`
	Title    string `json:"title,omitempty"`
}
