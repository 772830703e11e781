// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat keeps local chat state consistent with the backend while
// replies stream in.
package chat

import (
	"sort"

	"github.com/jeranaias/rolechat/internal/model"
)

// =============================================================================
// SESSION REGISTRY
// =============================================================================

// Registry is the sidebar list of sessions, most recently updated first.
// Equal timestamps keep the most recently inserted session first.
//
// Registry is not safe for concurrent use; the Controller guards it.
type Registry struct {
	sessions []*model.Session
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	return len(r.sessions)
}

// Get returns the session with id.
func (r *Registry) Get(id string) (*model.Session, bool) {
	if i := r.index(id); i >= 0 {
		return r.sessions[i], true
	}
	return nil, false
}

func (r *Registry) index(id string) int {
	for i, s := range r.sessions {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Upsert removes any entry with s's id, inserts a copy of s at the front and
// restores recency order. Upserting the same session twice is a no-op the
// second time.
func (r *Registry) Upsert(s *model.Session) {
	if s == nil {
		return
	}
	r.remove(s.ID)
	r.sessions = append([]*model.Session{s.Clone()}, r.sessions...)
	r.sort()
}

// Replace swaps the entry with s's id in place without reordering. The
// existing UpdatedAt is kept so the list stays sorted. It reports whether an
// entry was found.
func (r *Registry) Replace(s *model.Session) bool {
	if s == nil {
		return false
	}
	i := r.index(s.ID)
	if i < 0 {
		return false
	}
	c := s.Clone()
	c.UpdatedAt = r.sessions[i].UpdatedAt
	r.sessions[i] = c
	return true
}

// ReplaceAll swaps the list for sessions, sorted by recency. Earlier entries
// win ties, and later duplicates of an id are dropped.
func (r *Registry) ReplaceAll(sessions []*model.Session) {
	seen := make(map[string]struct{}, len(sessions))
	next := make([]*model.Session, 0, len(sessions))
	for _, s := range sessions {
		if s == nil {
			continue
		}
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		next = append(next, s.Clone())
	}
	r.sessions = next
	r.sort()
}

// Remove drops the session with id and reports whether it was present.
func (r *Registry) Remove(id string) bool {
	return r.remove(id)
}

func (r *Registry) remove(id string) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
	return true
}

func (r *Registry) sort() {
	sort.SliceStable(r.sessions, func(i, j int) bool {
		return r.sessions[i].UpdatedAt.After(r.sessions[j].UpdatedAt)
	})
}

// Snapshot returns copies of the sessions in order.
func (r *Registry) Snapshot() []*model.Session {
	out := make([]*model.Session, len(r.sessions))
	for i, s := range r.sessions {
		out[i] = s.Clone()
	}
	return out
}
