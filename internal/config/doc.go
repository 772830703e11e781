// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for rolechat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: main configuration structure
//   - APIConfig: backend URL, token, timeouts and rate limit
//   - ChatConfig: streaming default, sidebar excerpt width, message language
//   - Watcher: reloads the file when it changes on disk
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (ROLECHAT_*), optionally from .env files
//   - ~/.rolechat/config.toml
//   - ~/.rolechat/config.json
//   - Built-in defaults
//
// ROLECHAT_HOME moves the configuration directory.
//
// # Usage
//
//	cfg, path, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := api.NewClient(cfg.ClientConfig(), api.NewStaticToken(cfg.API.Token))
package config
