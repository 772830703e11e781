// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the authenticated HTTP transport to the chat backend.
package api

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/jeranaias/rolechat/internal/model"
)

// =============================================================================
// SESSIONS
// =============================================================================

// ListSessions returns the caller's sessions in backend order.
func (c *Client) ListSessions(ctx context.Context) ([]*model.Session, error) {
	var out []*model.Session
	if err := c.do(ctx, http.MethodGet, "/chat/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSession starts a new session with a role.
func (c *Client) CreateSession(ctx context.Context, req model.CreateSessionRequest) (*model.Session, error) {
	var out model.Session
	if err := c.do(ctx, http.MethodPost, "/chat/sessions", req, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &TransportError{Status: http.StatusOK, Method: http.MethodPost, Path: "/chat/sessions", Cause: ErrEmptyResponse}
	}
	return &out, nil
}

// GetSession fetches the canonical view of a session.
func (c *Client) GetSession(ctx context.Context, id string) (*model.SessionView, error) {
	path := "/chat/sessions/" + url.PathEscape(id)
	var out model.SessionView
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Session.ID == "" {
		return nil, &TransportError{Status: http.StatusOK, Method: http.MethodGet, Path: path, Cause: ErrEmptyResponse}
	}
	return &out, nil
}

// UpdateSettings applies a partial settings update and returns the session.
func (c *Client) UpdateSettings(ctx context.Context, id string, patch model.SettingsPatch) (*model.Session, error) {
	path := "/chat/sessions/" + url.PathEscape(id) + "/settings"
	var out model.Session
	if err := c.do(ctx, http.MethodPatch, path, patch, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &TransportError{Status: http.StatusOK, Method: http.MethodPatch, Path: path, Cause: ErrEmptyResponse}
	}
	return &out, nil
}

// DeleteSession removes a session and its messages.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/chat/sessions/"+url.PathEscape(id), nil, nil)
}

// ClearMessages wipes a session's history, keeping the session.
func (c *Client) ClearMessages(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/chat/sessions/"+url.PathEscape(id)+"/messages", nil, nil)
}

// ListModels returns the models sessions can use.
func (c *Client) ListModels(ctx context.Context) ([]model.ChatModel, error) {
	var out []model.ChatModel
	if err := c.do(ctx, http.MethodGet, "/chat/models", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// MESSAGES
// =============================================================================

// SendMessage posts a message without streaming and returns the messages
// the exchange produced.
func (c *Client) SendMessage(ctx context.Context, sessionID string, req model.SendRequest) ([]*model.Message, error) {
	req.Stream = false
	var out []*model.Message
	if err := c.do(ctx, http.MethodPost, "/chat/sessions/"+url.PathEscape(sessionID)+"/messages", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StreamMessage posts a message with streaming on and returns the NDJSON
// body. The caller must close it.
func (c *Client) StreamMessage(ctx context.Context, sessionID string, req model.SendRequest) (io.ReadCloser, error) {
	req.Stream = true
	return c.stream(ctx, http.MethodPost, "/chat/sessions/"+url.PathEscape(sessionID)+"/messages", req)
}

// RetryMessage regenerates an assistant message and returns the resulting
// messages.
func (c *Client) RetryMessage(ctx context.Context, messageID string) ([]*model.Message, error) {
	var out []*model.Message
	if err := c.do(ctx, http.MethodPost, "/chat/messages/"+url.PathEscape(messageID)+"/retry", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EditMessage replaces a message's content.
func (c *Client) EditMessage(ctx context.Context, messageID, content string) error {
	body := struct {
		Content string `json:"content"`
	}{content}
	return c.do(ctx, http.MethodPatch, "/chat/messages/"+url.PathEscape(messageID), body, nil)
}

// DeleteMessage removes one message.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	return c.do(ctx, http.MethodDelete, "/chat/messages/"+url.PathEscape(messageID), nil, nil)
}
