// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat keeps local chat state consistent with the backend while
// replies stream in.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jeranaias/rolechat/internal/logging"
	"github.com/jeranaias/rolechat/internal/model"
	"github.com/jeranaias/rolechat/internal/stream"
)

// =============================================================================
// SEND STATES
// =============================================================================

// SendState is the lifecycle position of one send.
type SendState int

const (
	StateIdle SendState = iota
	StateStreaming
	StateFinalizing
	StateReconciled
	StateFailed
	StateSuperseded
)

func (s SendState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateReconciled:
		return "reconciled"
	case StateFailed:
		return "failed"
	case StateSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// SendOptions tunes one send.
type SendOptions struct {
	// Preset is an opaque prompt preset forwarded to the backend.
	Preset json.RawMessage

	// Stream asks for an incremental reply.
	Stream bool
}

// SendResult describes how a send ended.
type SendResult struct {
	State SendState

	// Reply is the final assistant message as the timeline holds it, if any.
	Reply *model.Message

	// ReconcileErr is set when the reply arrived but the canonical session
	// could not be fetched. The send still counts as delivered.
	ReconcileErr error

	// Stats covers the stream, for streaming sends.
	Stats stream.Stats
}

// exchange is the bookkeeping for one in-flight send.
type exchange struct {
	sessionID     string
	gen           uint64
	mark          int
	userID        string
	placeholderID string
}

// =============================================================================
// SEND
// =============================================================================

// SendMessage sends content to the open session sessionID.
//
// The user message appears in the timeline at once with a provisional id,
// followed by an empty assistant placeholder when streaming. Stream deltas
// are written into the placeholder as they arrive. When the body ends the
// canonical session is fetched and the timeline tail, the open session and
// the sidebar are replaced with it.
//
// A failure before any reply data removes the optimistic entries and
// returns the transport error. A failure mid-stream keeps what was rendered
// and returns a *StreamError. A failed refresh after a complete reply is not
// an error; it is reported in SendResult.ReconcileErr.
//
// A streamed reply that finishes after a newer send began is overtaken: it
// skips its own refresh, and the last send to finish reconciles it.
func (c *Controller) SendMessage(ctx context.Context, sessionID, content string, opts SendOptions) (*SendResult, error) {
	if strings.TrimSpace(content) == "" {
		return &SendResult{State: StateIdle}, ErrEmptyMessage
	}

	ex, err := c.begin(sessionID, content, opts.Stream)
	if err != nil {
		return &SendResult{State: StateIdle}, err
	}

	log := c.log.With("session_id", sessionID, "generation", ex.gen)
	ctx = logging.WithLogger(ctx, log)

	req := model.SendRequest{Content: content, Preset: opts.Preset, Stream: opts.Stream}
	var res *SendResult
	if opts.Stream {
		res, err = c.sendStreaming(ctx, ex, req)
	} else {
		res, err = c.sendBlocking(ctx, ex, req)
	}

	var serr *StreamError
	if errors.As(err, &serr) {
		c.settle(ctx, sessionID, ex.userID, ex.placeholderID)
	} else {
		c.settle(ctx, sessionID)
	}
	return res, err
}

// begin appends the optimistic entries and opens a new generation.
func (c *Controller) begin(sessionID, content string, withPlaceholder bool) (*exchange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.isOpen(sessionID) {
		return nil, ErrSessionNotOpen
	}
	tl := c.state.Timeline
	ex := &exchange{
		sessionID: sessionID,
		gen:       c.bump(sessionID),
		mark:      tl.Len(),
	}

	user := model.NewPendingUserMessage(sessionID, content)
	if err := tl.Append(user); err != nil {
		return nil, err
	}
	ex.userID = user.ID

	if withPlaceholder {
		ph := model.NewPlaceholder(sessionID)
		if err := tl.Append(ph); err != nil {
			tl.Remove(user.ID)
			return nil, err
		}
		ex.placeholderID = ph.ID
	}

	c.state.beginSend()
	c.notify(Change{Kind: ChangeMessages, SessionID: sessionID})
	c.notify(Change{Kind: ChangeStatus})
	return ex, nil
}

// rollback removes the optimistic entries of ex and records err.
func (c *Controller) rollback(ex *exchange, err error, ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.isOpen(ex.sessionID) && c.state.Timeline.Remove(ids...) > 0 {
		c.notify(Change{Kind: ChangeMessages, SessionID: ex.sessionID})
	}
	c.state.endSend()
	c.fail(err)
	c.notify(Change{Kind: ChangeStatus})
}

// =============================================================================
// STREAMING PATH
// =============================================================================

func (c *Controller) sendStreaming(ctx context.Context, ex *exchange, req model.SendRequest) (*SendResult, error) {
	log := logging.FromContext(ctx, c.log)
	res := &SendResult{State: StateIdle}

	body, err := c.backend.StreamMessage(ctx, ex.sessionID, req)
	if err != nil {
		log.Error("send failed before streaming", "error", err)
		c.rollback(ex, err, ex.userID, ex.placeholderID)
		res.State = StateFailed
		return res, err
	}

	res.State = StateStreaming
	var acc stream.Accumulator
	reader := stream.NewReader(body, stream.WithLogger(log))
	err = reader.Process(ctx, acc.Callback(func(ev stream.Event) {
		c.applyDelta(ex, ev)
	}))
	body.Close()
	res.Stats = reader.Stats()

	if err != nil {
		serr := &StreamError{SessionID: ex.sessionID, Partial: acc.Content(), Err: err}
		log.Error("reply stream interrupted", "error", err, "partial_chars", len(serr.Partial))
		c.mu.Lock()
		if c.state.isOpen(ex.sessionID) {
			c.state.Timeline.Update(ex.placeholderID, func(m *model.Message) {
				m.MarkInterrupted()
			})
			c.notify(Change{Kind: ChangeMessages, SessionID: ex.sessionID})
		}
		c.state.endSend()
		c.fail(serr)
		res.Reply = c.lookup(ex.sessionID, ex.placeholderID)
		c.mu.Unlock()
		res.State = StateFailed
		return res, serr
	}

	res.State = StateFinalizing
	if c.superseded(ex) {
		log.Debug("newer send started, skipping refresh")
		res.State = StateSuperseded
		return res, nil
	}

	view, err := c.backend.GetSession(ctx, ex.sessionID)
	if err != nil {
		rerr := &ReconciliationError{SessionID: ex.sessionID, Err: err}
		log.Warn("could not refresh session after reply", "error", err)
		c.mu.Lock()
		c.state.endSend()
		c.fail(rerr)
		res.Reply = c.lookup(ex.sessionID, ex.placeholderID)
		c.mu.Unlock()
		res.State = StateFailed
		res.ReconcileErr = rerr
		return res, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.endSend()
	c.notify(Change{Kind: ChangeStatus})
	if !c.current(ex.sessionID, ex.gen) {
		if c.state.isOpen(ex.sessionID) {
			c.state.overtaken = append(c.state.overtaken, ex.userID, ex.placeholderID)
		}
		res.State = StateSuperseded
		return res, nil
	}
	if c.state.isOpen(ex.sessionID) {
		tl := c.state.Timeline
		tl.Reconcile(ex.mark, view.Messages)
		if len(c.state.overtaken) > 0 && c.state.inflight == 0 {
			if tl.Contains(c.state.overtaken...) {
				tl.ReplaceAll(view.Messages)
			}
			c.state.overtaken = nil
		}
		c.state.Role = append([]byte(nil), view.Role...)
		c.state.World = append([]byte(nil), view.World...)
		c.notify(Change{Kind: ChangeMessages, SessionID: ex.sessionID})
	}
	c.touch(&view.Session, view.LastMessage())
	res.State = StateReconciled
	res.Reply = view.LastMessage().Clone()
	return res, nil
}

// applyDelta writes one event into the placeholder.
func (c *Controller) applyDelta(ex *exchange, ev stream.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.isOpen(ex.sessionID) {
		return
	}
	ok := c.state.Timeline.Update(ex.placeholderID, func(m *model.Message) {
		m.Content += ev.Content
		if ev.Reasoning != "" {
			m.AppendReasoning(ev.Reasoning)
		}
	})
	if ok {
		c.notify(Change{Kind: ChangeMessages, SessionID: ex.sessionID})
	}
}

// superseded reports, and on true finishes the bookkeeping for, a send that
// a newer one on the same session has overtaken.
func (c *Controller) superseded(ex *exchange) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current(ex.sessionID, ex.gen) {
		return false
	}
	if c.state.isOpen(ex.sessionID) {
		c.state.overtaken = append(c.state.overtaken, ex.userID, ex.placeholderID)
	}
	c.state.endSend()
	c.notify(Change{Kind: ChangeStatus})
	return true
}

// settle refreshes the open session once no send is in flight and an
// overtaken exchange still holds provisional entries. The timeline takes
// the canonical messages; the entries named by keep stay at its end.
func (c *Controller) settle(ctx context.Context, sessionID string, keep ...string) {
	c.mu.Lock()
	pending := c.state.isOpen(sessionID) && c.state.inflight == 0 && len(c.state.overtaken) > 0
	gen := c.generations[sessionID]
	c.mu.Unlock()
	if !pending {
		return
	}

	log := logging.FromContext(ctx, c.log)
	view, err := c.backend.GetSession(ctx, sessionID)
	if err != nil {
		log.Warn("could not refresh session after overtaken send", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.isOpen(sessionID) || !c.current(sessionID, gen) || c.state.inflight > 0 {
		return
	}
	tl := c.state.Timeline
	var kept []*model.Message
	for _, id := range keep {
		if m, ok := tl.Find(id); ok {
			kept = append(kept, m.Clone())
		}
	}
	tl.ReplaceAll(view.Messages)
	for _, m := range kept {
		_ = tl.Append(m)
	}
	c.state.overtaken = nil
	c.state.Role = append([]byte(nil), view.Role...)
	c.state.World = append([]byte(nil), view.World...)
	c.notify(Change{Kind: ChangeMessages, SessionID: sessionID})
	c.touch(&view.Session, view.LastMessage())
	log.Debug("settled overtaken sends", "messages", tl.Len())
}

// lookup copies a timeline message. Callers hold c.mu.
func (c *Controller) lookup(sessionID, id string) *model.Message {
	if !c.state.isOpen(sessionID) {
		return nil
	}
	m, _ := c.state.Timeline.Find(id)
	return m.Clone()
}

// =============================================================================
// NON-STREAMING PATH
// =============================================================================

func (c *Controller) sendBlocking(ctx context.Context, ex *exchange, req model.SendRequest) (*SendResult, error) {
	log := logging.FromContext(ctx, c.log)
	res := &SendResult{State: StateFinalizing}

	msgs, err := c.backend.SendMessage(ctx, ex.sessionID, req)
	if err != nil {
		log.Error("send failed", "error", err)
		c.rollback(ex, err, ex.userID)
		res.State = StateFailed
		return res, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.endSend()
	c.notify(Change{Kind: ChangeStatus})

	var last *model.Message
	if len(msgs) > 0 {
		last = msgs[len(msgs)-1]
	}

	switch {
	case !c.state.isOpen(ex.sessionID):
	case c.current(ex.sessionID, ex.gen):
		c.state.Timeline.Reconcile(ex.mark, msgs)
		c.notify(Change{Kind: ChangeMessages, SessionID: ex.sessionID})
	default:
		// A newer send owns the tail; confirm ours where it stands.
		c.state.Timeline.Splice(ex.userID, msgs)
		c.notify(Change{Kind: ChangeMessages, SessionID: ex.sessionID})
		res.State = StateSuperseded
	}

	c.touch(c.state.sessionCopy(ex.sessionID), last)
	if res.State != StateSuperseded {
		res.State = StateReconciled
	}
	res.Reply = last.Clone()
	return res, nil
}
