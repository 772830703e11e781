// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Text rendering of sessions, messages and models.

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/rolechat/internal/model"
	"github.com/jeranaias/rolechat/internal/util"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

var (
	markdownRenderer     *glamour.TermRenderer
	markdownRendererOnce sync.Once
)

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails or renderer is unavailable.
func renderMarkdown(content string) string {
	markdownRendererOnce.Do(func() {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(GetTerminalWidth()-4),
		)
		if err == nil {
			markdownRenderer = r
		}
	})
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// useMarkdown reports whether w is an interactive stdout that can take
// glamour's escape sequences.
func useMarkdown(w io.Writer) bool {
	return w == io.Writer(os.Stdout) && IsStdoutTTY() && ColorsEnabled()
}

// writeReply prints a finished character reply.
func writeReply(w io.Writer, content string) {
	if useMarkdown(w) {
		fmt.Fprint(w, renderMarkdown(content))
		return
	}
	fmt.Fprintln(w, content)
}

// =============================================================================
// SESSIONS
// =============================================================================

// writeSessions prints the sidebar list, most recent first.
func writeSessions(w io.Writer, sessions []*model.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No sessions yet. Start one with: rolechat new <role-id>"))
		return
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s  %s  %s\n",
			TitleStyle.Render(s.ID),
			ValueStyle.Render(util.TruncateWidth(s.DisplayTitle(), 32)),
			DimStyle.Render(s.UpdatedAt.Local().Format("2006-01-02 15:04")))
		if s.LastMessage != "" {
			fmt.Fprintf(w, "    %s\n", DimStyle.Render(s.LastMessage))
		}
	}
}

// writeSession prints one session's details.
func writeSession(w io.Writer, s *model.Session) {
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "%s%s\n", RenderLabel(label), ValueStyle.Render(value))
		}
	}
	fmt.Fprintln(w, TitleStyle.Render(s.DisplayTitle()))
	row("ID", s.ID)
	row("Role", s.RoleID)
	row("Model", s.ModelKey)
	row("Mode", s.Mode)
	row("Status", s.Status)
	row("Updated", s.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	writeSettings(w, s.Settings)
}

// writeSettings prints generation settings.
func writeSettings(w io.Writer, st model.Settings) {
	fmt.Fprintf(w, "%s%.2f\n", RenderLabel("Temperature"), st.Temperature)
	fmt.Fprintf(w, "%s%d\n", RenderLabel("Max tokens"), st.MaxTokens)
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Focus"), st.NarrativeFocus)
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Action"), st.ActionRichness)
	fmt.Fprintf(w, "%s%t\n", RenderLabel("SFW"), st.SFWMode)
	fmt.Fprintf(w, "%s%t\n", RenderLabel("Immersive"), st.Immersive)
}

// =============================================================================
// MESSAGES
// =============================================================================

// speaker returns the styled name for a message's role.
func speaker(m *model.Message, character string) string {
	switch m.Role {
	case model.RoleUser:
		return UserStyle.Render(m.Role.DisplayName())
	case model.RoleAssistant:
		if character != "" {
			return CharacterStyle.Render(character)
		}
		return CharacterStyle.Render(m.Role.DisplayName())
	default:
		return DimStyle.Render(m.Role.DisplayName())
	}
}

// writeTranscript prints messages in order.
func writeTranscript(w io.Writer, msgs []*model.Message, character string) {
	for _, m := range msgs {
		header := speaker(m, character)
		if m.Interrupted() {
			header += " " + WarningStyle.Render("(interrupted)")
		}
		fmt.Fprintf(w, "%s %s\n", header, DimStyle.Render("["+m.ID+"]"))
		if r := m.Reasoning(); r != "" {
			fmt.Fprintln(w, DimStyle.Render(indent(r, "  > ")))
		}
		fmt.Fprintln(w, indent(m.Content, "  "))
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// MODELS
// =============================================================================

// writeModels prints the model catalog.
func writeModels(w io.Writer, models []model.ChatModel) {
	if len(models) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No models available."))
		return
	}
	for _, m := range models {
		fmt.Fprintf(w, "%s  %s\n", TitleStyle.Render(m.ID), ValueStyle.Render(m.Summary()))
		if m.Description != "" {
			fmt.Fprintf(w, "    %s\n", DimStyle.Render(util.TruncateWidth(util.SingleLine(m.Description), 72)))
		}
	}
}
