// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForChange(t *testing.T) {
	ch := make(chan Change, 1)
	ch <- Change{Kind: ChangeMessages, SessionID: "s1"}

	msg := WaitForChange(ch)()
	cm, ok := msg.(ChangeMsg)
	require.True(t, ok)
	assert.Equal(t, ChangeMessages, cm.Kind)
	assert.Equal(t, "messages", cm.Kind.String())

	close(ch)
	assert.Nil(t, WaitForChange(ch)())
}

func TestSendCmd(t *testing.T) {
	c := NewController(newFakeBackend(), Options{})
	msg := c.SendCmd(context.Background(), "s1", "hi", SendOptions{})()

	done, ok := msg.(SendDoneMsg)
	require.True(t, ok)
	assert.ErrorIs(t, done.Err, ErrSessionNotOpen)
	assert.Equal(t, "s1", done.SessionID)
}
