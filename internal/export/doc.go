// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes session transcripts to files.
//
// # Supported Formats
//
//   - Markdown: human-readable, with optional YAML frontmatter
//   - JSON: the canonical session view, unmodified
//   - Text: plain "Speaker: line" transcript
//
// # Usage
//
//	exporter, err := export.ForFormat("md", export.DefaultOptions())
//	path, err := export.ExportToFile(view, exporter, export.DefaultOptions())
package export
