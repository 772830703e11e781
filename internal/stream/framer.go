// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream turns a chunked NDJSON response body into chat events.
package stream

import (
	"strings"
)

// =============================================================================
// LINE FRAMER
// =============================================================================

// Framer splits decoded text into newline-delimited records. The text after
// the last newline is kept as residual until more text arrives.
type Framer struct {
	residual strings.Builder
}

// Feed appends text and returns every record completed by it, trimmed of
// surrounding whitespace. Whitespace-only records are dropped.
func (f *Framer) Feed(text string) []string {
	if text == "" {
		return nil
	}
	if !strings.Contains(text, "\n") {
		f.residual.WriteString(text)
		return nil
	}

	f.residual.WriteString(text)
	buf := f.residual.String()
	f.residual.Reset()

	last := strings.LastIndexByte(buf, '\n')
	f.residual.WriteString(buf[last+1:])

	var records []string
	for _, line := range strings.Split(buf[:last], "\n") {
		if rec := strings.TrimSpace(line); rec != "" {
			records = append(records, rec)
		}
	}
	return records
}

// Residual returns the buffered, not yet terminated text.
func (f *Framer) Residual() string {
	return f.residual.String()
}

// Close ends the stream. Any unterminated residual is dropped and returned
// (trimmed) so callers can report it. The framer is reset.
func (f *Framer) Close() string {
	rest := strings.TrimSpace(f.residual.String())
	f.residual.Reset()
	return rest
}
