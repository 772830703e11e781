// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error reporting and exit codes for the rolechat CLI.
//
// Commands return errors; Execute prints them once, in the user's language,
// and picks the exit code.

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/rolechat/internal/api"
	"github.com/jeranaias/rolechat/internal/chat"
	"github.com/jeranaias/rolechat/internal/config"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates the login session expired
	ExitAuthError = 4
	// ExitNetworkError indicates network or connectivity error
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitInterrupted indicates the user cancelled the operation
	ExitInterrupted = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports invalid arguments.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// NewUsageError creates a UsageError with a formatted message.
func NewUsageError(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// ConfigError wraps a configuration failure.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// ExitCodeFor maps an error to a process exit code.
func ExitCodeFor(err error) int {
	var (
		usage *UsageError
		cfg   *ConfigError
		verrs config.ValidateErrors
	)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &cfg), errors.As(err, &verrs):
		return ExitConfigError
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case api.IsAuthExpired(err):
		return ExitAuthError
	case api.IsNetwork(err):
		return ExitNetworkError
	case api.StatusCode(err) == 404, errors.Is(err, chat.ErrMessageNotFound):
		return ExitNotFoundError
	default:
		return ExitGeneralError
	}
}

// describe renders err for the user. Local usage and config errors keep
// their own text; everything from the engine is localized.
func (a *App) describe(err error) string {
	var (
		usage *UsageError
		cfg   *ConfigError
	)
	if errors.As(err, &usage) || errors.As(err, &cfg) {
		return err.Error()
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	return chat.Describe(err, a.lang)
}
