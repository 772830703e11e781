// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the rolechat command line.
//
// Every command shares one App: configuration is loaded once (file, .env,
// environment, then flags), and the API client and chat controller are built
// from it before the command runs.
//
// # Commands
//
//   - sessions, new, show, settings, delete, clear: session management
//   - send, retry, edit, forget: message operations
//   - export: write a transcript as Markdown, JSON or text
//   - models: the model catalog
//   - chat: interactive REPL with streaming replies
//   - config: show, path, init, set-token, set-url
//
// # Output
//
// Text output is styled with lipgloss when stdout is a terminal and replies
// are rendered with glamour. --json switches every command to a JSON
// envelope (see JSONResponse). Errors are localized with chat.Describe.
//
// # Usage
//
//	os.Exit(cli.Execute(ctx, cli.NewApp(), os.Args[1:]))
package cli
