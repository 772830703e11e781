// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the authenticated HTTP transport to the chat backend.
//
// Every request carries the bearer token from a Credentials value, a fresh
// X-Request-ID and passes a client-side rate limiter. Successful answers are
// unwrapped from {"data": ...}; failures become *TransportError carrying the
// backend's {"error": ...} text when present.
//
// # Key Types
//
//   - Client: the transport plus one method per chat endpoint
//   - Credentials, StaticToken: bearer token source
//   - TransportError: status, backend message and cause of a failure
//
// # Usage
//
//	token := api.NewStaticToken(cfg.API.Token)
//	client := api.NewClient(&api.ClientConfig{BaseURL: cfg.API.BaseURL}, token,
//	    api.OnAuthExpired(func() { fmt.Println("please log in again") }))
//	sessions, err := client.ListSessions(ctx)
//
// A 401 or 403 answer clears the token before the error is returned; test
// for it with IsAuthExpired.
package api
