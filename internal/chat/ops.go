// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat keeps local chat state consistent with the backend while
// replies stream in.
package chat

import (
	"context"
	"strings"

	"github.com/jeranaias/rolechat/internal/model"
	"github.com/jeranaias/rolechat/internal/util"
)

// =============================================================================
// SESSION LIST & MODELS
// =============================================================================

// ListSessions refreshes the sidebar from the backend.
func (c *Controller) ListSessions(ctx context.Context) ([]*model.Session, error) {
	c.setLoading(true)
	sessions, err := c.backend.ListSessions(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.status.Loading = false
	c.notify(Change{Kind: ChangeStatus})
	if err != nil {
		c.log.Error("list sessions failed", "error", err)
		c.fail(err)
		return nil, err
	}
	c.state.Registry.ReplaceAll(sessions)
	c.notify(Change{Kind: ChangeSessions})
	return c.state.Registry.Snapshot(), nil
}

// FetchModels refreshes the model list. It never fails the caller: on error
// the list is emptied and the error is recorded in Status.
func (c *Controller) FetchModels(ctx context.Context) []model.ChatModel {
	models, err := c.backend.ListModels(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.log.Warn("list models failed", "error", err)
		c.state.Models = nil
		c.fail(err)
	} else {
		c.state.Models = append([]model.ChatModel(nil), models...)
	}
	c.notify(Change{Kind: ChangeModels})
	return append([]model.ChatModel(nil), c.state.Models...)
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// CreateSession starts a session with a role and puts it at the top of the
// sidebar. It does not open it.
func (c *Controller) CreateSession(ctx context.Context, req model.CreateSessionRequest) (*model.Session, error) {
	req.RoleID = strings.TrimSpace(req.RoleID)
	if req.RoleID == "" {
		c.mu.Lock()
		c.fail(ErrMissingRoleID)
		c.mu.Unlock()
		return nil, ErrMissingRoleID
	}

	s, err := c.backend.CreateSession(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.log.Error("create session failed", "role_id", req.RoleID, "error", err)
		c.fail(err)
		return nil, err
	}
	c.state.Registry.Upsert(s)
	c.notify(Change{Kind: ChangeSessions, SessionID: s.ID})
	return s.Clone(), nil
}

// FetchSession loads the canonical view of id and makes it the open session.
// Sends still in flight on id are superseded.
func (c *Controller) FetchSession(ctx context.Context, id string) (*model.SessionView, error) {
	c.setLoading(true)
	view, err := c.backend.GetSession(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.status.Loading = false
	c.notify(Change{Kind: ChangeStatus})
	if err != nil {
		c.log.Error("fetch session failed", "session_id", id, "error", err)
		c.fail(err)
		return nil, err
	}

	c.bump(id)
	c.state.open(view)
	cur := c.state.Current
	if last := c.state.Timeline.Last(); last != nil {
		cur.LastMessage = util.Excerpt(last.Content, c.excerptWidth)
	}
	if prev, ok := c.state.Registry.Get(id); ok && prev.UpdatedAt.After(cur.UpdatedAt) {
		cur.UpdatedAt = prev.UpdatedAt
	}
	c.state.Registry.Upsert(cur)
	c.notify(Change{Kind: ChangeCurrent, SessionID: id})
	c.notify(Change{Kind: ChangeMessages, SessionID: id})
	c.notify(Change{Kind: ChangeSessions, SessionID: id})

	return &model.SessionView{
		Session:  *c.state.Current.Clone(),
		Role:     view.Role,
		World:    view.World,
		Messages: c.state.Timeline.Snapshot(),
	}, nil
}

// UpdateSettings applies a partial settings update. The open session and
// the sidebar entry take the returned session; the sidebar is not reordered.
func (c *Controller) UpdateSettings(ctx context.Context, id string, patch model.SettingsPatch) (*model.Session, error) {
	c.mu.Lock()
	c.state.status.UpdatingSettings = true
	c.notify(Change{Kind: ChangeStatus})
	c.mu.Unlock()

	s, err := c.backend.UpdateSettings(ctx, id, patch)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.status.UpdatingSettings = false
	c.notify(Change{Kind: ChangeStatus})
	if err != nil {
		c.log.Error("update settings failed", "session_id", id, "error", err)
		c.fail(err)
		return nil, err
	}

	if c.state.Current != nil && c.state.Current.ID == s.ID {
		c.state.Current = s.Clone()
		c.notify(Change{Kind: ChangeCurrent, SessionID: s.ID})
	}
	if c.state.Registry.Replace(s) {
		c.notify(Change{Kind: ChangeSessions, SessionID: s.ID})
	}
	return s.Clone(), nil
}

// DeleteSession removes a session. Deleting the open session closes it.
func (c *Controller) DeleteSession(ctx context.Context, id string) error {
	if err := c.backend.DeleteSession(ctx, id); err != nil {
		c.mu.Lock()
		c.fail(err)
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.bump(id)
	if c.state.Registry.Remove(id) {
		c.notify(Change{Kind: ChangeSessions, SessionID: id})
	}
	if c.state.isOpen(id) {
		c.state.close()
		c.notify(Change{Kind: ChangeCurrent, SessionID: id})
		c.notify(Change{Kind: ChangeMessages, SessionID: id})
	}
	return nil
}

// ClearSession wipes a session's history on the backend and locally.
func (c *Controller) ClearSession(ctx context.Context, id string) error {
	if err := c.backend.ClearMessages(ctx, id); err != nil {
		c.mu.Lock()
		c.fail(err)
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.bump(id)
	if c.state.isOpen(id) {
		c.state.Timeline.ReplaceAll(nil)
		c.state.overtaken = nil
		c.state.Current.LastMessage = ""
		c.notify(Change{Kind: ChangeMessages, SessionID: id})
	}
	if r, ok := c.state.Registry.Get(id); ok {
		r.LastMessage = ""
		c.notify(Change{Kind: ChangeSessions, SessionID: id})
	}
	return nil
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// RetryAssistantMessage regenerates an assistant reply of the open session
// and reconciles the timeline from that reply onwards. Session recency is
// left alone.
func (c *Controller) RetryAssistantMessage(ctx context.Context, messageID string) ([]*model.Message, error) {
	c.mu.Lock()
	sessionID, mark, gen, err := c.prepareRetry(messageID)
	if err != nil {
		c.fail(err)
		c.mu.Unlock()
		return nil, err
	}
	c.state.beginSend()
	c.notify(Change{Kind: ChangeStatus})
	c.mu.Unlock()

	msgs, err := c.backend.RetryMessage(ctx, messageID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.endSend()
	c.notify(Change{Kind: ChangeStatus})
	if err != nil {
		c.log.Error("retry failed", "message_id", messageID, "error", err)
		c.fail(err)
		return nil, err
	}

	if len(msgs) > 0 && c.current(sessionID, gen) && c.state.isOpen(sessionID) {
		c.state.Timeline.Reconcile(mark, msgs)
		c.notify(Change{Kind: ChangeMessages, SessionID: sessionID})
	}
	if c.state.isOpen(sessionID) {
		return c.state.Timeline.Snapshot(), nil
	}
	return model.CloneMessages(msgs), nil
}

// prepareRetry validates a retry target. Callers hold c.mu.
func (c *Controller) prepareRetry(messageID string) (sessionID string, mark int, gen uint64, err error) {
	tl := c.state.Timeline
	if tl == nil {
		return "", 0, 0, ErrSessionNotOpen
	}
	m, ok := tl.Find(messageID)
	switch {
	case !ok:
		return "", 0, 0, ErrMessageNotFound
	case m.Provisional():
		return "", 0, 0, ErrProvisional
	case m.Role != model.RoleAssistant:
		return "", 0, 0, ErrNotAssistant
	}
	sessionID = tl.SessionID()
	return sessionID, tl.Index(messageID), c.bump(sessionID), nil
}

// EditMessage replaces the content of a saved message.
func (c *Controller) EditMessage(ctx context.Context, messageID, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}
	if err := c.checkSaved(messageID); err != nil {
		return err
	}
	if err := c.backend.EditMessage(ctx, messageID, content); err != nil {
		c.mu.Lock()
		c.fail(err)
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Timeline != nil && c.state.Timeline.Update(messageID, func(m *model.Message) { m.Content = content }) {
		c.notify(Change{Kind: ChangeMessages, SessionID: c.state.Timeline.SessionID()})
	}
	return nil
}

// DeleteMessage removes a saved message.
func (c *Controller) DeleteMessage(ctx context.Context, messageID string) error {
	if err := c.checkSaved(messageID); err != nil {
		return err
	}
	if err := c.backend.DeleteMessage(ctx, messageID); err != nil {
		c.mu.Lock()
		c.fail(err)
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Timeline != nil && c.state.Timeline.Remove(messageID) > 0 {
		c.notify(Change{Kind: ChangeMessages, SessionID: c.state.Timeline.SessionID()})
	}
	return nil
}

func (c *Controller) checkSaved(messageID string) error {
	if model.IsProvisional(messageID) {
		return ErrProvisional
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Timeline == nil {
		return ErrSessionNotOpen
	}
	if _, ok := c.state.Timeline.Find(messageID); !ok {
		return ErrMessageNotFound
	}
	return nil
}

func (c *Controller) setLoading(v bool) {
	c.mu.Lock()
	c.state.status.Loading = v
	c.notify(Change{Kind: ChangeStatus})
	c.mu.Unlock()
}
