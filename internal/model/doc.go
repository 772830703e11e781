// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// These are the wire shapes exchanged with the role-play backend plus the
// helpers the chat engine needs to mint and recognize optimistic entries.
//
// # Key Types
//
//   - Session: summary of one conversation, ordered by UpdatedAt in lists
//   - Message: one conversation entry; provisional while its id starts with "tmp-"
//   - SessionView: canonical session + messages returned by the backend
//   - Settings, SettingsPatch: generation knobs and partial updates to them
//   - ChatModel: a backend model offering
//
// # Usage
//
//	user := model.NewPendingUserMessage(sessionID, "Hello")
//	placeholder := model.NewPlaceholder(sessionID)
//	placeholder.Content += "Hi"
//	placeholder.AppendReasoning("thinking...")
//	model.IsProvisional(user.ID) // true
package model
