// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across rolechat packages.
//
// # Key Functions
//
//   - Excerpt: single-line, width-bounded preview of a message
//   - TruncateWidth, StringWidth: display-width aware truncation (CJK safe)
//   - AtomicWriteFile: crash-safe file replacement
//
// # Usage
//
//	session.LastMessage = util.Excerpt(reply.Content, 60)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
