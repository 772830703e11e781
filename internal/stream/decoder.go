// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream turns a chunked NDJSON response body into chat events.
package stream

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// =============================================================================
// CHUNK DECODER
// =============================================================================

// Decoder converts raw byte chunks into UTF-8 text. A multi-byte sequence cut
// by a chunk boundary is held back until the rest of it arrives, so the
// output is identical no matter how the input was split.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	t       transform.Transformer
	pending []byte
}

// NewDecoder returns a decoder with no buffered bytes.
func NewDecoder() *Decoder {
	return &Decoder{t: unicode.UTF8.NewDecoder()}
}

// Decode returns the text that can be produced from the bytes seen so far.
// Invalid bytes become U+FFFD; an incomplete trailing sequence is retained.
func (d *Decoder) Decode(p []byte) string {
	if len(p) == 0 && len(d.pending) == 0 {
		return ""
	}
	src := make([]byte, 0, len(d.pending)+len(p))
	src = append(src, d.pending...)
	src = append(src, p...)
	return d.run(src, false)
}

// Flush drains any retained bytes. A dangling partial sequence is emitted as
// U+FFFD. The decoder is reset and can be reused.
func (d *Decoder) Flush() string {
	if len(d.pending) == 0 {
		d.t.Reset()
		return ""
	}
	out := d.run(d.pending, true)
	d.pending = nil
	d.t.Reset()
	return out
}

// Pending reports how many bytes are waiting for the rest of a sequence.
func (d *Decoder) Pending() int {
	return len(d.pending)
}

func (d *Decoder) run(src []byte, atEOF bool) string {
	// Each invalid byte may expand to the 3-byte replacement character.
	dst := make([]byte, 3*len(src)+utf8.UTFMax)
	nDst, nSrc, err := d.t.Transform(dst, src, atEOF)
	if err != nil && !errors.Is(err, transform.ErrShortSrc) {
		// dst is sized for the worst case, so anything else means the
		// transformer rejected the input outright; keep what it produced.
		nSrc = len(src)
	}
	if nSrc < len(src) {
		d.pending = append([]byte(nil), src[nSrc:]...)
	} else {
		d.pending = nil
	}
	return string(dst[:nDst])
}
