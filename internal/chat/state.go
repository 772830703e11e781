// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat keeps local chat state consistent with the backend while
// replies stream in.
package chat

import (
	"encoding/json"

	"github.com/jeranaias/rolechat/internal/model"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the set of activity flags a UI shows next to the chat.
type Status struct {
	Loading          bool
	UpdatingSettings bool
	Sending          bool

	// LastError is the most recent failure worth showing. Credential
	// expiry is reported through the transport hook instead.
	LastError error
}

// =============================================================================
// STATE
// =============================================================================

// State is everything the controller knows about the user's chats. One
// instance is owned by a Controller and only touched under its lock.
type State struct {
	// Current is the open session, or nil.
	Current *model.Session

	// Role and World describe the open session's persona, verbatim.
	Role  json.RawMessage
	World json.RawMessage

	// Timeline holds the open session's messages; nil when none is open.
	Timeline *Timeline

	Registry Registry
	Models   []model.ChatModel

	status   Status
	inflight int

	// overtaken holds provisional ids of streamed exchanges that finished
	// after a newer send began and so skipped their refresh.
	overtaken []string
}

// isOpen reports whether sessionID is the open session.
func (s *State) isOpen(sessionID string) bool {
	return s.Timeline != nil && s.Timeline.SessionID() == sessionID
}

// open installs a canonical view as the open session.
func (s *State) open(view *model.SessionView) {
	cur := view.Session
	s.Current = &cur
	s.Role = append(json.RawMessage(nil), view.Role...)
	s.World = append(json.RawMessage(nil), view.World...)
	s.Timeline = NewTimeline(cur.ID, view.Messages)
	s.overtaken = nil
}

// close forgets the open session.
func (s *State) close() {
	s.Current = nil
	s.Role = nil
	s.World = nil
	s.Timeline = nil
	s.overtaken = nil
}

// sessionCopy returns the freshest local copy of a session: the open one if
// it matches, else the registry entry.
func (s *State) sessionCopy(sessionID string) *model.Session {
	if s.Current != nil && s.Current.ID == sessionID {
		return s.Current.Clone()
	}
	if r, ok := s.Registry.Get(sessionID); ok {
		return r.Clone()
	}
	return nil
}

func (s *State) beginSend() {
	s.inflight++
	s.status.Sending = true
}

func (s *State) endSend() {
	if s.inflight > 0 {
		s.inflight--
	}
	s.status.Sending = s.inflight > 0
}
