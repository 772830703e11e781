// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat keeps local chat state consistent with the backend while
// replies stream in.
package chat

import (
	"fmt"

	"github.com/jeranaias/rolechat/internal/model"
)

// =============================================================================
// MESSAGE TIMELINE
// =============================================================================

// Timeline is the ordered message list of the open session. It holds at
// most one message per id.
//
// Timeline is not safe for concurrent use; the Controller guards it.
type Timeline struct {
	sessionID string
	messages  []*model.Message
}

// NewTimeline returns a timeline for sessionID seeded with msgs.
func NewTimeline(sessionID string, msgs []*model.Message) *Timeline {
	t := &Timeline{sessionID: sessionID}
	t.ReplaceAll(msgs)
	return t
}

// SessionID returns the session the timeline belongs to.
func (t *Timeline) SessionID() string {
	return t.sessionID
}

// Len returns the number of messages.
func (t *Timeline) Len() int {
	return len(t.messages)
}

// Last returns the final message, or nil.
func (t *Timeline) Last() *model.Message {
	if len(t.messages) == 0 {
		return nil
	}
	return t.messages[len(t.messages)-1]
}

// Index returns the position of id, or -1.
func (t *Timeline) Index(id string) int {
	for i, m := range t.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// Contains reports whether any of ids is present.
func (t *Timeline) Contains(ids ...string) bool {
	for _, id := range ids {
		if t.Index(id) >= 0 {
			return true
		}
	}
	return false
}

// Find returns the message with id.
func (t *Timeline) Find(id string) (*model.Message, bool) {
	if i := t.Index(id); i >= 0 {
		return t.messages[i], true
	}
	return nil, false
}

// Append adds m at the end. An id already present is rejected.
func (t *Timeline) Append(m *model.Message) error {
	if m == nil || m.ID == "" {
		return fmt.Errorf("append: message without id")
	}
	if t.Index(m.ID) >= 0 {
		return fmt.Errorf("append: duplicate message id %q", m.ID)
	}
	t.messages = append(t.messages, m)
	return nil
}

// Update runs fn on the message with id in place. It reports whether the
// message was found.
func (t *Timeline) Update(id string, fn func(*model.Message)) bool {
	m, ok := t.Find(id)
	if ok {
		fn(m)
	}
	return ok
}

// Remove drops the messages with the given ids. Unknown ids are ignored.
// It returns how many were removed.
func (t *Timeline) Remove(ids ...string) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := t.messages[:0]
	for _, m := range t.messages {
		if _, ok := drop[m.ID]; !ok {
			kept = append(kept, m)
		}
	}
	removed := len(t.messages) - len(kept)
	for i := len(kept); i < len(t.messages); i++ {
		t.messages[i] = nil
	}
	t.messages = kept
	return removed
}

// Truncate drops every message at or after position n.
func (t *Timeline) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n >= len(t.messages) {
		return
	}
	for i := n; i < len(t.messages); i++ {
		t.messages[i] = nil
	}
	t.messages = t.messages[:n]
}

// Reconcile replaces the region touched by an exchange with authoritative
// messages. mark is the length the timeline had before the exchange began.
//
// The backend may answer with just the new messages or with the whole
// history. When the first authoritative message is already present before
// mark, replacement starts there instead, so the two shapes converge.
// Duplicate ids inside authoritative are collapsed, first one wins.
func (t *Timeline) Reconcile(mark int, authoritative []*model.Message) {
	if mark < 0 {
		mark = 0
	}
	if mark > len(t.messages) {
		mark = len(t.messages)
	}
	start := mark
	for _, m := range authoritative {
		if m == nil {
			continue
		}
		if k := t.Index(m.ID); k >= 0 && k < start {
			start = k
		}
		break
	}

	head := t.messages[:start]
	seen := make(map[string]struct{}, len(head)+len(authoritative))
	for _, m := range head {
		seen[m.ID] = struct{}{}
	}

	next := make([]*model.Message, 0, start+len(authoritative))
	next = append(next, head...)
	for _, m := range authoritative {
		if m == nil {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		next = append(next, m.Clone())
	}
	t.messages = next
}

// Splice replaces the message with id by msgs, keeping everything around
// it. Messages in msgs whose id is already elsewhere in the timeline are
// skipped. It reports whether id was found.
func (t *Timeline) Splice(id string, msgs []*model.Message) bool {
	i := t.Index(id)
	if i < 0 {
		return false
	}
	seen := make(map[string]struct{}, len(t.messages))
	for j, m := range t.messages {
		if j != i {
			seen[m.ID] = struct{}{}
		}
	}
	next := make([]*model.Message, 0, len(t.messages)+len(msgs))
	next = append(next, t.messages[:i]...)
	for _, m := range msgs {
		if m == nil {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		next = append(next, m.Clone())
	}
	next = append(next, t.messages[i+1:]...)
	t.messages = next
	return true
}

// ReplaceAll swaps the whole list, dropping duplicate ids.
func (t *Timeline) ReplaceAll(msgs []*model.Message) {
	t.messages = nil
	t.Reconcile(0, msgs)
}

// ProvisionalIDs lists ids that were never confirmed.
func (t *Timeline) ProvisionalIDs() []string {
	var ids []string
	for _, m := range t.messages {
		if m.Provisional() {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// Snapshot returns deep copies of the messages in order.
func (t *Timeline) Snapshot() []*model.Message {
	return model.CloneMessages(t.messages)
}
