// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat keeps local chat state consistent with the backend while
// replies stream in.
package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// ChangeMsg wraps a Change for a Bubble Tea program.
type ChangeMsg struct {
	Change
}

// SendDoneMsg reports the end of a send started with SendCmd.
type SendDoneMsg struct {
	SessionID string
	Result    *SendResult
	Err       error
}

// WaitForChange returns a command that blocks for the next notification on
// ch. Re-issue it from Update after each ChangeMsg. It yields nil once the
// subscription is cancelled.
func WaitForChange(ch <-chan Change) tea.Cmd {
	return func() tea.Msg {
		change, ok := <-ch
		if !ok {
			return nil
		}
		return ChangeMsg{Change: change}
	}
}

// SendCmd runs SendMessage in a command. Progress arrives as ChangeMsg
// through a subscription; the outcome arrives as SendDoneMsg.
func (c *Controller) SendCmd(ctx context.Context, sessionID, content string, opts SendOptions) tea.Cmd {
	return func() tea.Msg {
		res, err := c.SendMessage(ctx, sessionID, content, opts)
		return SendDoneMsg{SessionID: sessionID, Result: res, Err: err}
	}
}
