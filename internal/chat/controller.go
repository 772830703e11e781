// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat keeps local chat state consistent with the backend while
// replies stream in.
package chat

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jeranaias/rolechat/internal/api"
	"github.com/jeranaias/rolechat/internal/logging"
	"github.com/jeranaias/rolechat/internal/model"
	"github.com/jeranaias/rolechat/internal/util"
)

// =============================================================================
// BACKEND
// =============================================================================

// Backend is the subset of the chat API the controller drives.
// *api.Client satisfies it.
type Backend interface {
	ListSessions(ctx context.Context) ([]*model.Session, error)
	ListModels(ctx context.Context) ([]model.ChatModel, error)
	CreateSession(ctx context.Context, req model.CreateSessionRequest) (*model.Session, error)
	GetSession(ctx context.Context, id string) (*model.SessionView, error)
	UpdateSettings(ctx context.Context, id string, patch model.SettingsPatch) (*model.Session, error)
	SendMessage(ctx context.Context, sessionID string, req model.SendRequest) ([]*model.Message, error)
	StreamMessage(ctx context.Context, sessionID string, req model.SendRequest) (io.ReadCloser, error)
	RetryMessage(ctx context.Context, messageID string) ([]*model.Message, error)
	EditMessage(ctx context.Context, messageID, content string) error
	DeleteMessage(ctx context.Context, messageID string) error
	DeleteSession(ctx context.Context, id string) error
	ClearMessages(ctx context.Context, id string) error
}

var _ Backend = (*api.Client)(nil)

// =============================================================================
// CHANGE NOTIFICATIONS
// =============================================================================

// ChangeKind says which part of the state moved.
type ChangeKind int

const (
	ChangeSessions ChangeKind = iota
	ChangeCurrent
	ChangeMessages
	ChangeModels
	ChangeStatus
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeSessions:
		return "sessions"
	case ChangeCurrent:
		return "current"
	case ChangeMessages:
		return "messages"
	case ChangeModels:
		return "models"
	case ChangeStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Change is one notification. Subscribers re-read snapshots on receipt.
type Change struct {
	Kind      ChangeKind
	SessionID string
}

// subscriberBuffer is the per-subscriber queue length. A subscriber that
// falls further behind misses notifications but never blocks the engine.
const subscriberBuffer = 256

// =============================================================================
// CONTROLLER
// =============================================================================

// Options configures a Controller.
type Options struct {
	// Logger receives engine diagnostics (default: discard)
	Logger *slog.Logger

	// ExcerptWidth bounds the sidebar preview in columns (default: 60)
	ExcerptWidth int

	// Now overrides the clock (default: time.Now)
	Now func() time.Time
}

// Controller owns the chat State and performs every operation that changes
// it. Network I/O runs outside the lock; each mutation is applied atomically
// under it.
//
// The Controller is safe for concurrent use.
type Controller struct {
	backend      Backend
	log          *slog.Logger
	excerptWidth int
	now          func() time.Time

	mu          sync.Mutex
	state       State
	generations map[string]uint64
	subs        []chan Change
}

// NewController creates a controller over backend.
func NewController(backend Backend, opts Options) *Controller {
	if opts.ExcerptWidth <= 0 {
		opts.ExcerptWidth = 60
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		backend:      backend,
		log:          logging.OrNop(opts.Logger),
		excerptWidth: opts.ExcerptWidth,
		now:          opts.Now,
		generations:  make(map[string]uint64),
	}
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// Sessions returns the sidebar list, most recent first.
func (c *Controller) Sessions() []*model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Registry.Snapshot()
}

// CurrentSession returns the open session, or nil.
func (c *Controller) CurrentSession() *model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Current.Clone()
}

// CurrentView returns the open session with its persona and messages, or nil.
func (c *Controller) CurrentView() *model.SessionView {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Current == nil || c.state.Timeline == nil {
		return nil
	}
	return &model.SessionView{
		Session:  *c.state.Current.Clone(),
		Role:     append([]byte(nil), c.state.Role...),
		World:    append([]byte(nil), c.state.World...),
		Messages: c.state.Timeline.Snapshot(),
	}
}

// Messages returns the open session's messages.
func (c *Controller) Messages() []*model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Timeline == nil {
		return nil
	}
	return c.state.Timeline.Snapshot()
}

// Models returns the last fetched model list.
func (c *Controller) Models() []model.ChatModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.ChatModel(nil), c.state.Models...)
}

// Status returns the activity flags.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.status
}

// ClearError resets Status.LastError.
func (c *Controller) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.status.LastError = nil
	c.notify(Change{Kind: ChangeStatus})
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe returns a channel of change notifications and a function that
// ends the subscription and closes the channel.
func (c *Controller) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, subscriberBuffer)

	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s == ch {
					c.subs = append(c.subs[:i], c.subs[i+1:]...)
					break
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// notify fans out a change without blocking. Callers hold c.mu.
func (c *Controller) notify(ch Change) {
	for _, s := range c.subs {
		select {
		case s <- ch:
		default:
		}
	}
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

// fail records err as the visible error unless it is a credential expiry,
// which the transport reports through its own hook. Callers hold c.mu.
func (c *Controller) fail(err error) {
	if err == nil || api.IsAuthExpired(err) {
		return
	}
	c.state.status.LastError = err
	c.notify(Change{Kind: ChangeStatus})
}

// bump starts a new exchange generation for sessionID. Callers hold c.mu.
func (c *Controller) bump(sessionID string) uint64 {
	c.generations[sessionID]++
	return c.generations[sessionID]
}

// current reports whether gen is still the latest for sessionID. Callers
// hold c.mu.
func (c *Controller) current(sessionID string, gen uint64) bool {
	return c.generations[sessionID] == gen
}

// touch marks a session as just used: UpdatedAt moves to now (never
// backwards) and LastMessage previews last. The result replaces the open
// session copy and is upserted into the registry. Callers hold c.mu.
func (c *Controller) touch(s *model.Session, last *model.Message) {
	if s == nil {
		return
	}
	s = s.Clone()
	if now := c.now(); now.After(s.UpdatedAt) {
		s.UpdatedAt = now
	}
	if last != nil {
		s.LastMessage = util.Excerpt(last.Content, c.excerptWidth)
	}
	if c.state.Current != nil && c.state.Current.ID == s.ID {
		c.state.Current = s.Clone()
		c.notify(Change{Kind: ChangeCurrent, SessionID: s.ID})
	}
	c.state.Registry.Upsert(s)
	c.notify(Change{Kind: ChangeSessions, SessionID: s.ID})
}
