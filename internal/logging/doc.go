// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the structured logger shared by every package.
//
// Loggers are plain *slog.Logger values. Libraries accept one through their
// options and default to Nop, so nothing is printed unless the CLI wires a
// real handler.
//
// # Usage
//
//	log := logging.New(logging.Options{Level: "debug", Format: logging.FormatJSON})
//	ctx = logging.WithLogger(ctx, log.With("session_id", id))
//	logging.FromContext(ctx, log).Warn("skipping malformed record")
package logging
