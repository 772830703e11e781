// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rolechat/internal/api"
	"github.com/jeranaias/rolechat/internal/chat"
	"github.com/jeranaias/rolechat/internal/model"
)

// =============================================================================
// FAKE BACKEND
// =============================================================================

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeBackend is a small in-memory chat backend.
type fakeBackend struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	messages map[string][]*model.Message
	nextID   int

	reply     string
	failSend  int    // status returned by the next message post, if set
	failBody  string // error text for failSend
	lastPatch map[string]any
	lastSend  model.SendRequest
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{
		sessions: map[string]*model.Session{
			"s1": {ID: "s1", RoleID: "r1", Title: "Tavern", UpdatedAt: t0, Settings: model.DefaultSettings()},
			"s2": {ID: "s2", RoleID: "r2", Title: "Harbor", UpdatedAt: t0.Add(time.Hour), Settings: model.DefaultSettings()},
		},
		messages: map[string][]*model.Message{},
		reply:    "Hello there, traveler.",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat/sessions", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		out := []*model.Session{fb.sessions["s1"], fb.sessions["s2"]}
		writeData(w, out)
	})
	mux.HandleFunc("POST /chat/sessions", func(w http.ResponseWriter, r *http.Request) {
		var req model.CreateSessionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		fb.mu.Lock()
		defer fb.mu.Unlock()
		s := &model.Session{ID: "s3", RoleID: req.RoleID, ModelKey: req.ModelKey, Title: req.Title, UpdatedAt: t0.Add(2 * time.Hour)}
		fb.sessions[s.ID] = s
		writeData(w, s)
	})
	mux.HandleFunc("GET /chat/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		s, ok := fb.sessions[r.PathValue("id")]
		if !ok {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeData(w, model.SessionView{
			Session:  *s,
			Role:     json.RawMessage(`{"name":"Aria"}`),
			Messages: append([]*model.Message{}, fb.messages[s.ID]...),
		})
	})
	mux.HandleFunc("PATCH /chat/sessions/{id}/settings", func(w http.ResponseWriter, r *http.Request) {
		var patch model.SettingsPatch
		body := map[string]any{}
		data := new(bytes.Buffer)
		_, _ = data.ReadFrom(r.Body)
		_ = json.Unmarshal(data.Bytes(), &body)
		_ = json.Unmarshal(data.Bytes(), &patch)
		fb.mu.Lock()
		defer fb.mu.Unlock()
		fb.lastPatch = body
		s := fb.sessions[r.PathValue("id")]
		s.Settings = patch.Apply(s.Settings)
		writeData(w, s)
	})
	mux.HandleFunc("DELETE /chat/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		delete(fb.sessions, r.PathValue("id"))
		writeData(w, map[string]bool{"ok": true})
	})
	mux.HandleFunc("DELETE /chat/sessions/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		delete(fb.messages, r.PathValue("id"))
		writeData(w, map[string]bool{"ok": true})
	})
	mux.HandleFunc("GET /chat/models", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []model.ChatModel{{ID: "lite", Name: "Lite", Provider: "openai"}, {ID: "pro", Name: "Pro", PriceCoins: 3}})
	})
	mux.HandleFunc("POST /chat/sessions/{id}/messages", fb.handleSend)
	mux.HandleFunc("POST /chat/messages/{id}/retry", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		for sid, msgs := range fb.messages {
			for i, m := range msgs {
				if m.ID == r.PathValue("id") {
					regen := &model.Message{ID: fb.id(), SessionID: sid, Role: model.RoleAssistant, Content: "A different answer."}
					fb.messages[sid] = append(msgs[:i:i], regen)
					writeData(w, []*model.Message{regen})
					return
				}
			}
		}
		writeError(w, http.StatusNotFound, "message not found")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) id() string {
	fb.nextID++
	return fmt.Sprintf("m%d", fb.nextID)
}

func (fb *fakeBackend) handleSend(w http.ResponseWriter, r *http.Request) {
	var req model.SendRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	sid := r.PathValue("id")

	fb.mu.Lock()
	fb.lastSend = req
	if fb.failSend != 0 {
		status, msg := fb.failSend, fb.failBody
		fb.failSend = 0
		fb.mu.Unlock()
		writeError(w, status, msg)
		return
	}
	user := &model.Message{ID: fb.id(), SessionID: sid, Role: model.RoleUser, Content: req.Content}
	asst := &model.Message{ID: fb.id(), SessionID: sid, Role: model.RoleAssistant, Content: fb.reply}
	reply := fb.reply
	fb.mu.Unlock()

	if req.Stream {
		flusher := w.(http.Flusher)
		half := len(reply) / 2
		for _, part := range []string{reply[:half], reply[half:]} {
			rec, _ := json.Marshal(map[string]string{"content": part})
			_, _ = w.Write(append(rec, '\n'))
			flusher.Flush()
		}
		_, _ = w.Write([]byte(`{"done":true}` + "\n"))
	}

	fb.mu.Lock()
	fb.messages[sid] = append(fb.messages[sid], user, asst)
	fb.sessions[sid].UpdatedAt = t0.Add(3 * time.Hour)
	fb.mu.Unlock()

	if !req.Stream {
		writeData(w, []*model.Message{user, asst})
	}
}

func writeData(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": v})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// =============================================================================
// HELPERS
// =============================================================================

type result struct {
	code int
	out  string
	err  string
}

// isolate points configuration at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ROLECHAT_HOME", dir)
	t.Setenv("NO_COLOR", "1")
	for _, k := range []string{"ROLECHAT_API_URL", "ROLECHAT_TOKEN", "ROLECHAT_STREAM", "ROLECHAT_LANG", "ROLECHAT_MODEL", "ROLECHAT_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	return dir
}

func run(t *testing.T, srv *httptest.Server, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	a := &App{Out: &out, Err: &errOut, In: strings.NewReader(stdin)}
	if srv != nil {
		args = append([]string{"--api-url", srv.URL, "--token", "tok", "--no-color"}, args...)
	}
	code := Execute(context.Background(), a, args)
	return result{code: code, out: out.String(), err: errOut.String()}
}

// =============================================================================
// TESTS
// =============================================================================

func TestSessions_TextAndJSON(t *testing.T) {
	isolate(t)
	_, srv := newFakeBackend(t)

	res := run(t, srv, "", "sessions")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Less(t, strings.Index(res.out, "s2"), strings.Index(res.out, "s1"), "most recent first")
	assert.Contains(t, res.out, "Harbor")

	res = run(t, srv, "", "--json", "sessions")
	require.Equal(t, ExitSuccess, res.code, res.err)
	var env struct {
		Success bool             `json:"success"`
		Command string           `json:"command"`
		Data    []*model.Session `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.out), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "sessions", env.Command)
	require.Len(t, env.Data, 2)
	assert.Equal(t, "s2", env.Data[0].ID)
}

func TestSend_Streaming(t *testing.T) {
	isolate(t)
	fb, srv := newFakeBackend(t)

	res := run(t, srv, "", "send", "s1", "Hello", "there")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Contains(t, res.out, "Hello there, traveler.")
	assert.Equal(t, 1, strings.Count(res.out, "Hello there, traveler."), "reply printed once")

	fb.mu.Lock()
	defer fb.mu.Unlock()
	assert.True(t, fb.lastSend.Stream)
	assert.Equal(t, "Hello there", fb.lastSend.Content)
	assert.Len(t, fb.messages["s1"], 2)
}

func TestSend_NoStreamFromStdinJSON(t *testing.T) {
	isolate(t)
	fb, srv := newFakeBackend(t)

	res := run(t, srv, "  from stdin \n", "--json", "send", "s1", "--no-stream", "--preset", `{"style":"noir"}`)
	require.Equal(t, ExitSuccess, res.code, res.err)

	var env struct {
		Success bool       `json:"success"`
		Data    sendOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.out), &env))
	assert.Equal(t, chat.StateReconciled.String(), env.Data.State)
	require.NotNil(t, env.Data.Reply)
	assert.Equal(t, "Hello there, traveler.", env.Data.Reply.Content)
	assert.False(t, env.Data.Reply.Provisional())

	fb.mu.Lock()
	defer fb.mu.Unlock()
	assert.False(t, fb.lastSend.Stream)
	assert.Equal(t, "from stdin", fb.lastSend.Content)
	assert.JSONEq(t, `{"style":"noir"}`, string(fb.lastSend.Preset))
}

func TestSend_BadPreset(t *testing.T) {
	isolate(t)
	_, srv := newFakeBackend(t)

	res := run(t, srv, "", "send", "s1", "hi", "--preset", "{nope")
	assert.Equal(t, ExitUsageError, res.code)
	assert.Contains(t, res.err, "--preset")
}

func TestSend_BackendErrorPassthrough(t *testing.T) {
	isolate(t)
	fb, srv := newFakeBackend(t)
	fb.failSend, fb.failBody = http.StatusPaymentRequired, "余额不足"

	res := run(t, srv, "", "--lang", "zh-Hans", "send", "s1", "hi")
	assert.Equal(t, ExitGeneralError, res.code)
	assert.Contains(t, res.err, "余额不足")
}

func TestSend_AuthExpired(t *testing.T) {
	isolate(t)
	fb, srv := newFakeBackend(t)
	fb.failSend, fb.failBody = http.StatusUnauthorized, "token expired"

	res := run(t, srv, "", "send", "s1", "hi")
	assert.Equal(t, ExitAuthError, res.code)
	assert.Contains(t, res.err, "Your login has expired")
	assert.Contains(t, res.err, "set-token")
}

func TestShow_UnknownSession(t *testing.T) {
	isolate(t)
	_, srv := newFakeBackend(t)

	res := run(t, srv, "", "show", "nope")
	assert.Equal(t, ExitNotFoundError, res.code)
	assert.Contains(t, res.err, "session not found")
}

func TestShow_Transcript(t *testing.T) {
	isolate(t)
	_, srv := newFakeBackend(t)
	require.Equal(t, ExitSuccess, run(t, srv, "", "send", "s1", "--no-stream", "Hi").code)

	res := run(t, srv, "", "show", "s1")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Contains(t, res.out, "Tavern")
	assert.Contains(t, res.out, "Aria")
	assert.Contains(t, res.out, "Hello there, traveler.")
}

func TestExport(t *testing.T) {
	isolate(t)
	_, srv := newFakeBackend(t)
	require.Equal(t, ExitSuccess, run(t, srv, "", "send", "s1", "--no-stream", "Hi").code)

	res := run(t, srv, "", "export", "s1", "--format", "txt", "--out", "-")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Contains(t, res.out, "You: Hi")
	assert.Contains(t, res.out, "Aria: Hello there, traveler.")

	dir := t.TempDir()
	res = run(t, srv, "", "--json", "export", "s1", "--out", dir)
	require.Equal(t, ExitSuccess, res.code, res.err)
	var env struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.out), &env))
	path := env.Data["path"]
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, ".md"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Tavern")

	res = run(t, srv, "", "export", "s1", "--format", "pdf")
	assert.Equal(t, ExitUsageError, res.code)
}

func TestNewAndModels(t *testing.T) {
	isolate(t)
	_, srv := newFakeBackend(t)

	res := run(t, srv, "", "new", "r9", "--model", "lite", "--title", "Forest")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Contains(t, res.out, "s3")

	res = run(t, srv, "", "new", " ")
	assert.Equal(t, ExitGeneralError, res.code)
	assert.Contains(t, res.err, "Missing role ID")

	res = run(t, srv, "", "models")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Contains(t, res.out, "Lite (openai, Free)")
	assert.Contains(t, res.out, "Pro (3 coins)")
}

func TestSettings_Patch(t *testing.T) {
	isolate(t)
	fb, srv := newFakeBackend(t)

	res := run(t, srv, "", "settings", "s1", "--temperature", "1.2", "--sfw=false")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Contains(t, res.out, "1.20")

	fb.mu.Lock()
	assert.Equal(t, map[string]any{"temperature": 1.2, "sfw_mode": false}, fb.lastPatch)
	fb.mu.Unlock()

	res = run(t, srv, "", "settings", "s1", "--temperature", "5")
	assert.Equal(t, ExitUsageError, res.code)
}

func TestRetry_LastReply(t *testing.T) {
	isolate(t)
	_, srv := newFakeBackend(t)
	require.Equal(t, ExitSuccess, run(t, srv, "", "send", "s1", "--no-stream", "Hi").code)

	res := run(t, srv, "", "retry", "s1")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Contains(t, res.out, "A different answer.")
	assert.NotContains(t, res.out, "Hello there, traveler.")
}

func TestDeleteAndClear(t *testing.T) {
	isolate(t)
	fb, srv := newFakeBackend(t)
	require.Equal(t, ExitSuccess, run(t, srv, "", "send", "s1", "--no-stream", "Hi").code)

	require.Equal(t, ExitSuccess, run(t, srv, "", "clear", "s1").code)
	require.Equal(t, ExitSuccess, run(t, srv, "", "delete", "s2").code)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	assert.Empty(t, fb.messages["s1"])
	assert.NotContains(t, fb.sessions, "s2")
}

func TestChat_REPL(t *testing.T) {
	isolate(t)
	fb, srv := newFakeBackend(t)

	input := "Hello\n/history 1\n/stream off\n/bogus\nSecond\n/quit\n"
	res := run(t, srv, input, "chat", "s1")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Contains(t, res.out, "Tavern with Aria")
	assert.Contains(t, res.out, "Unknown command: /bogus")
	assert.GreaterOrEqual(t, strings.Count(res.out, "Hello there, traveler."), 2)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	assert.Len(t, fb.messages["s1"], 4)
	assert.False(t, fb.lastSend.Stream, "/stream off applies to later sends")
}

func TestChat_DefaultsToMostRecent(t *testing.T) {
	isolate(t)
	fb, srv := newFakeBackend(t)

	res := run(t, srv, "Hi\n", "chat")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Contains(t, res.out, "Harbor")

	fb.mu.Lock()
	defer fb.mu.Unlock()
	assert.Len(t, fb.messages["s2"], 2)
}

func TestConfig_SetTokenAndShow(t *testing.T) {
	dir := isolate(t)

	res := run(t, nil, "", "config", "set-token", "abcd1234wxyz5678")
	require.Equal(t, ExitSuccess, res.code, res.err)

	data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "abcd1234wxyz5678")

	res = run(t, nil, "", "config", "show")
	require.Equal(t, ExitSuccess, res.code, res.err)
	assert.Contains(t, res.out, "abcd...5678")
	assert.NotContains(t, res.out, "abcd1234wxyz5678")

	res = run(t, nil, "", "config", "init")
	assert.Equal(t, ExitUsageError, res.code, "init refuses to overwrite")
}

func TestConfig_InvalidFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[log]\nlevel = \"loud\"\n"), 0600))

	res := run(t, nil, "", "sessions")
	assert.Equal(t, ExitConfigError, res.code)
	assert.Contains(t, res.err, "log.level")
}

func TestUsageErrors(t *testing.T) {
	isolate(t)

	assert.Equal(t, ExitUsageError, run(t, nil, "", "frobnicate").code)
	assert.Equal(t, ExitUsageError, run(t, nil, "", "show").code)
	assert.Equal(t, ExitUsageError, run(t, nil, "", "sessions", "--bogus").code)
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", NewUsageError("bad"), ExitUsageError},
		{"config", &ConfigError{Err: fmt.Errorf("x")}, ExitConfigError},
		{"cancelled", fmt.Errorf("wrap: %w", context.Canceled), ExitInterrupted},
		{"auth", &api.TransportError{Status: 401, Cause: api.ErrSessionExpired}, ExitAuthError},
		{"network", &api.TransportError{Cause: fmt.Errorf("dial")}, ExitNetworkError},
		{"not found", &api.TransportError{Status: 404}, ExitNotFoundError},
		{"local not found", chat.ErrMessageNotFound, ExitNotFoundError},
		{"other", fmt.Errorf("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.err))
		})
	}
}

func TestMessageText(t *testing.T) {
	got, err := messageText(strings.NewReader("ignored"), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "a b", got)

	got, err = messageText(strings.NewReader(" piped \n"), []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, "piped", got)
}
