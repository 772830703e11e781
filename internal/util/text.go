// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across rolechat packages.
package util

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// Ellipsis is appended to truncated text.
const Ellipsis = "..."

// SingleLine collapses every run of whitespace, newlines included, into one
// space and trims the ends.
func SingleLine(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// TruncateWidth cuts s to at most maxWidth terminal columns, counting
// East Asian wide characters as two. Truncated text ends with Ellipsis.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, Ellipsis)
}

// StringWidth returns the display width of s in terminal columns.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Excerpt turns a message body into a sidebar preview: one line, at most
// maxWidth columns.
func Excerpt(s string, maxWidth int) string {
	return TruncateWidth(SingleLine(s), maxWidth)
}
