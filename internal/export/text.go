// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/jeranaias/rolechat/internal/model"
)

// TextExporter writes a plain transcript, one "Speaker: text" block per
// message.
type TextExporter struct {
	options *Options
}

// NewTextExporter creates a new plain text exporter.
func NewTextExporter(opts *Options) *TextExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &TextExporter{options: opts}
}

// Export converts a session to plain text.
func (e *TextExporter) Export(view *model.SessionView) ([]byte, error) {
	if view == nil {
		return nil, ErrNilSession
	}

	character := view.RoleName()
	var sb strings.Builder
	if e.options.IncludeMetadata {
		fmt.Fprintf(&sb, "%s\n%s\n\n", view.Session.DisplayTitle(), strings.Repeat("=", 40))
	}
	for _, msg := range view.Messages {
		if e.options.IncludeTimestamps && !msg.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "[%s] ", formatTimestamp(msg.CreatedAt))
		}
		fmt.Fprintf(&sb, "%s: %s\n\n", speakerName(msg, character), strings.TrimSpace(msg.Content))
	}
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for text.
func (e *TextExporter) FileExtension() string {
	return ".txt"
}

// MimeType returns the MIME type for text.
func (e *TextExporter) MimeType() string {
	return "text/plain"
}
