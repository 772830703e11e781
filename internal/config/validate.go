// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[/path]", c.API.BaseURL),
		})
	}
	if c.API.TimeoutSecs < 1 || c.API.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "api.timeout_secs",
			Message: fmt.Sprintf("timeout %d out of range 1-600", c.API.TimeoutSecs),
		})
	}
	if c.API.MaxRetries < 0 || c.API.MaxRetries > 10 {
		errs = append(errs, ValidationError{
			Field:   "api.max_retries",
			Message: fmt.Sprintf("max_retries %d out of range 0-10", c.API.MaxRetries),
		})
	}
	if c.API.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{
			Field:   "api.requests_per_second",
			Message: "must not be negative",
		})
	}
	if c.Chat.ExcerptWidth < 10 || c.Chat.ExcerptWidth > 400 {
		errs = append(errs, ValidationError{
			Field:   "chat.excerpt_width",
			Message: fmt.Sprintf("width %d out of range 10-400", c.Chat.ExcerptWidth),
		})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("invalid format '%s', must be text or json", c.Log.Format),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero-value fields with defaults.
func (c *Config) SetDefaults() {
	d := Default()
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = d.API.TimeoutSecs
	}
	if c.API.Burst == 0 {
		c.API.Burst = d.API.Burst
	}
	if c.Chat.ExcerptWidth == 0 {
		c.Chat.ExcerptWidth = d.Chat.ExcerptWidth
	}
	if c.Chat.Language == "" {
		c.Chat.Language = d.Chat.Language
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies ROLECHAT_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	// ROLECHAT_API_URL
	if v := os.Getenv("ROLECHAT_API_URL"); v != "" {
		c.API.BaseURL = v
	}

	// ROLECHAT_TOKEN
	if v := os.Getenv("ROLECHAT_TOKEN"); v != "" {
		c.API.Token = v
	}

	// ROLECHAT_STREAM
	if v := os.Getenv("ROLECHAT_STREAM"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Chat.Stream = b
		}
	}

	// ROLECHAT_LANG
	if v := os.Getenv("ROLECHAT_LANG"); v != "" {
		c.Chat.Language = v
	}

	// ROLECHAT_MODEL
	if v := os.Getenv("ROLECHAT_MODEL"); v != "" {
		c.Chat.DefaultModel = v
	}

	// ROLECHAT_LOG_LEVEL
	if v := os.Getenv("ROLECHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}
