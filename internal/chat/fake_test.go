// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/rolechat/internal/model"
)

var errNotStubbed = errors.New("not stubbed")

// fakeBackend is a scriptable Backend. Unset hooks fail with errNotStubbed.
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	listSessions   func() ([]*model.Session, error)
	listModels     func() ([]model.ChatModel, error)
	createSession  func(model.CreateSessionRequest) (*model.Session, error)
	getSession     func(id string) (*model.SessionView, error)
	updateSettings func(id string, p model.SettingsPatch) (*model.Session, error)
	send           func(id string, req model.SendRequest) ([]*model.Message, error)
	stream         func(ctx context.Context, id string, req model.SendRequest) (io.ReadCloser, error)
	retry          func(id string) ([]*model.Message, error)
	edit           func(id, content string) error
	deleteMessage  func(id string) error
	deleteSession  func(id string) error
	clear          func(id string) error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: map[string]int{}}
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) ListSessions(ctx context.Context) ([]*model.Session, error) {
	f.record("ListSessions")
	if f.listSessions == nil {
		return nil, errNotStubbed
	}
	return f.listSessions()
}

func (f *fakeBackend) ListModels(ctx context.Context) ([]model.ChatModel, error) {
	f.record("ListModels")
	if f.listModels == nil {
		return nil, errNotStubbed
	}
	return f.listModels()
}

func (f *fakeBackend) CreateSession(ctx context.Context, req model.CreateSessionRequest) (*model.Session, error) {
	f.record("CreateSession")
	if f.createSession == nil {
		return nil, errNotStubbed
	}
	return f.createSession(req)
}

func (f *fakeBackend) GetSession(ctx context.Context, id string) (*model.SessionView, error) {
	f.record("GetSession")
	if f.getSession == nil {
		return nil, errNotStubbed
	}
	return f.getSession(id)
}

func (f *fakeBackend) UpdateSettings(ctx context.Context, id string, p model.SettingsPatch) (*model.Session, error) {
	f.record("UpdateSettings")
	if f.updateSettings == nil {
		return nil, errNotStubbed
	}
	return f.updateSettings(id, p)
}

func (f *fakeBackend) SendMessage(ctx context.Context, id string, req model.SendRequest) ([]*model.Message, error) {
	f.record("SendMessage")
	if f.send == nil {
		return nil, errNotStubbed
	}
	return f.send(id, req)
}

func (f *fakeBackend) StreamMessage(ctx context.Context, id string, req model.SendRequest) (io.ReadCloser, error) {
	f.record("StreamMessage")
	if f.stream == nil {
		return nil, errNotStubbed
	}
	return f.stream(ctx, id, req)
}

func (f *fakeBackend) RetryMessage(ctx context.Context, id string) ([]*model.Message, error) {
	f.record("RetryMessage")
	if f.retry == nil {
		return nil, errNotStubbed
	}
	return f.retry(id)
}

func (f *fakeBackend) EditMessage(ctx context.Context, id, content string) error {
	f.record("EditMessage")
	if f.edit == nil {
		return errNotStubbed
	}
	return f.edit(id, content)
}

func (f *fakeBackend) DeleteMessage(ctx context.Context, id string) error {
	f.record("DeleteMessage")
	if f.deleteMessage == nil {
		return errNotStubbed
	}
	return f.deleteMessage(id)
}

func (f *fakeBackend) DeleteSession(ctx context.Context, id string) error {
	f.record("DeleteSession")
	if f.deleteSession == nil {
		return errNotStubbed
	}
	return f.deleteSession(id)
}

func (f *fakeBackend) ClearMessages(ctx context.Context, id string) error {
	f.record("ClearMessages")
	if f.clear == nil {
		return errNotStubbed
	}
	return f.clear(id)
}

// chunkBody serves chunks one Read at a time and calls beforeRead(i) before
// serving chunk i, so tests can observe state between deliveries. A non-nil
// failAfter error is returned once the chunks run out instead of io.EOF.
type chunkBody struct {
	chunks     []string
	next       int
	beforeRead func(i int)
	failAfter  error
	closed     bool
}

func (b *chunkBody) Read(p []byte) (int, error) {
	if b.beforeRead != nil {
		b.beforeRead(b.next)
	}
	if b.next >= len(b.chunks) {
		if b.failAfter != nil {
			return 0, b.failAfter
		}
		return 0, io.EOF
	}
	n := copy(p, b.chunks[b.next])
	if n < len(b.chunks[b.next]) {
		b.chunks[b.next] = b.chunks[b.next][n:]
		return n, nil
	}
	b.next++
	return n, nil
}

func (b *chunkBody) Close() error {
	b.closed = true
	return nil
}

// blockingBody returns its content only after release is closed.
type blockingBody struct {
	release <-chan struct{}
	r       io.Reader
}

func (b *blockingBody) Read(p []byte) (int, error) {
	<-b.release
	return b.r.Read(p)
}

func (b *blockingBody) Close() error { return nil }

func newBlockingBody(release <-chan struct{}, content string) *blockingBody {
	return &blockingBody{release: release, r: strings.NewReader(content)}
}

// fixtures

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func session(id string, updated time.Time) *model.Session {
	return &model.Session{ID: id, Title: "Session " + id, RoleID: "r1", Settings: model.DefaultSettings(), UpdatedAt: updated}
}

func msg(id string, role model.Role, content string) *model.Message {
	return &model.Message{ID: id, SessionID: "s1", Role: role, Content: content, CreatedAt: t0}
}

func ids(msgs []*model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func sessionIDs(sessions []*model.Session) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.ID
	}
	return out
}
