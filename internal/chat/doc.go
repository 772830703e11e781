// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat keeps local chat state consistent with the backend while
// replies stream in.
//
// A Controller owns one State: the sidebar Registry, the open session and
// its Timeline, the model list and the status flags. Every operation talks to
// a Backend outside the lock and applies its result under the lock, so
// snapshot readers never see a half-applied update.
//
// # Sending
//
// SendMessage renders the user's message at once under a provisional
// "tmp-" id. With streaming on, an empty assistant placeholder follows and
// each stream delta is appended to it as it arrives. When the stream ends
// the canonical session is fetched and the timeline tail, the open session
// and the sidebar are replaced with the backend's version.
//
//	send: Idle -> Streaming -> Finalizing -> Reconciled
//	                   |             |
//	                   v             v
//	                 Failed     Failed (refresh only) / Superseded
//
// A failure before the stream starts removes the optimistic entries. A
// failure mid-stream keeps the partial reply. Each send on a session opens
// a new generation; when a newer send starts first, the older one skips its
// refresh and ends Superseded.
//
// # Key Types
//
//   - Controller: operations, snapshots and change subscriptions
//   - Timeline: ordered messages of the open session with tail reconciliation
//   - Registry: sessions ordered by recency
//   - StreamError, ReconciliationError: mid-stream and post-stream failures
//
// # Usage
//
//	ctrl := chat.NewController(client, chat.Options{Logger: log})
//	changes, stop := ctrl.Subscribe()
//	defer stop()
//	if _, err := ctrl.FetchSession(ctx, id); err != nil {
//	    return err
//	}
//	res, err := ctrl.SendMessage(ctx, id, "Hello", chat.SendOptions{Stream: true})
//	fmt.Println(chat.Describe(err, chat.ParseLanguage("en")))
package chat
