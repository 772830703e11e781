// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the authenticated HTTP transport to the chat backend.
package api

import (
	"sync"
)

// Credentials supplies the bearer token for each request. Issuing and
// storing tokens happens elsewhere; the client only reads the current value
// and clears it when the backend rejects it.
type Credentials interface {
	Token() string
	Expire()
}

// StaticToken is an in-memory Credentials holder.
type StaticToken struct {
	mu    sync.RWMutex
	token string
}

// NewStaticToken returns a holder seeded with token.
func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: token}
}

// Token returns the current token.
func (s *StaticToken) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Set replaces the token, e.g. after the config file was reloaded.
func (s *StaticToken) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Expire clears the token.
func (s *StaticToken) Expire() {
	s.Set("")
}
