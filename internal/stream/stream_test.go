// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/iotest"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// DECODER TESTS
// =============================================================================

func TestDecoder_SplitMultibyte(t *testing.T) {
	input := []byte("你好, world ✓")
	for split := 0; split <= len(input); split++ {
		d := NewDecoder()
		got := d.Decode(input[:split]) + d.Decode(input[split:]) + d.Flush()
		if got != string(input) {
			t.Fatalf("split at %d: got %q", split, got)
		}
	}
}

func TestDecoder_HoldsIncompleteSequence(t *testing.T) {
	d := NewDecoder()
	euro := []byte("€") // 3 bytes
	assert.Equal(t, "", d.Decode(euro[:2]))
	assert.Equal(t, 2, d.Pending())
	assert.Equal(t, "€", d.Decode(euro[2:]))
	assert.Equal(t, 0, d.Pending())
}

func TestDecoder_FlushDanglingSequence(t *testing.T) {
	d := NewDecoder()
	assert.Equal(t, "a", d.Decode([]byte{'a', 0xE2, 0x82}))
	assert.Contains(t, d.Flush(), "\uFFFD")
	assert.Equal(t, 0, d.Pending())
}

// =============================================================================
// FRAMER TESTS
// =============================================================================

func TestFramer_Feed(t *testing.T) {
	var f Framer
	assert.Empty(t, f.Feed(`{"content":"a"`))
	assert.Equal(t, []string{`{"content":"a"}`}, f.Feed("}\n  \n\t\n"))
	assert.Equal(t, []string{"x", "y"}, f.Feed(" x \ny\nz"))
	assert.Equal(t, "z", f.Residual())
	assert.Equal(t, "z", f.Close())
	assert.Equal(t, "", f.Residual())
}

func TestFramer_CarriageReturns(t *testing.T) {
	var f Framer
	assert.Equal(t, []string{"a", "b"}, f.Feed("a\r\nb\r\n"))
}

// =============================================================================
// PARSER TESTS
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		record  string
		want    Event
		wantErr bool
	}{
		{"content", `{"content":"Hi","reasoning":""}`, Event{Content: "Hi"}, false},
		{"reasoning", `{"reasoning":"hmm"}`, Event{Reasoning: "hmm"}, false},
		{"done", `{"done":true}`, Event{Done: true}, false},
		{"done with content", `{"content":"!","done":true}`, Event{Content: "!", Done: true}, false},
		{"unknown keys", `{"other":1}`, Event{}, false},
		{"garbage", `not json`, Event{}, true},
		{"truncated", `{"content":"x`, Event{}, true},
		{"wrong type", `{"content":5}`, Event{}, true},
		{"array", `[1,2]`, Event{}, true},
		{"null", `null`, Event{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.record)
			if tt.wantErr {
				var pe *ParseError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, tt.record, pe.Record)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseError_TruncatesOnCharacterBoundary(t *testing.T) {
	record := `{"content":"` + strings.Repeat("你好", 40)
	_, err := Parse(record)
	require.Error(t, err)

	msg := err.Error()
	assert.True(t, utf8.ValidString(msg))
	assert.NotContains(t, msg, `\x`)
	assert.Contains(t, msg, "你好...")
	assert.Less(t, len(msg), len(record))
}

func TestEvent_TerminalOnly(t *testing.T) {
	assert.True(t, Event{Done: true}.TerminalOnly())
	assert.False(t, Event{Done: true, Content: "x"}.TerminalOnly())
	assert.False(t, Event{}.HasDelta())
}

// =============================================================================
// PIPELINE TESTS
// =============================================================================

const sampleStream = "{\"content\":\"你好\",\"reasoning\":\"\"}\n" +
	"garbage line\n" +
	"{\"content\":\" ✓ there\",\"reasoning\":\"思考\"}\n" +
	"\n" +
	"{\"done\":true}\n"

func collect(chunks [][]byte) (content, reasoning string, skipped int, discarded string) {
	p := NewPipeline()
	var c, r strings.Builder
	for _, chunk := range chunks {
		events, errs := p.Feed(chunk)
		skipped += len(errs)
		for _, ev := range events {
			c.WriteString(ev.Content)
			r.WriteString(ev.Reasoning)
		}
	}
	discarded = p.Close()
	return c.String(), r.String(), skipped, discarded
}

func TestPipeline_ChunkBoundaryIndependence(t *testing.T) {
	data := []byte(sampleStream)
	wantC, wantR, wantSkipped, _ := collect([][]byte{data})
	require.Equal(t, "你好 ✓ there", wantC)
	require.Equal(t, "思考", wantR)
	require.Equal(t, 1, wantSkipped)

	// Every two-way split.
	for i := 0; i <= len(data); i++ {
		c, r, s, _ := collect([][]byte{data[:i], data[i:]})
		if c != wantC || r != wantR || s != wantSkipped {
			t.Fatalf("split at %d: content=%q reasoning=%q skipped=%d", i, c, r, s)
		}
	}

	// One byte at a time.
	var single [][]byte
	for i := range data {
		single = append(single, data[i:i+1])
	}
	c, r, s, _ := collect(single)
	assert.Equal(t, wantC, c)
	assert.Equal(t, wantR, r)
	assert.Equal(t, wantSkipped, s)
}

func TestPipeline_DiscardsUnterminatedTail(t *testing.T) {
	c, _, _, discarded := collect([][]byte{[]byte("{\"content\":\"a\"}\n{\"content\":\"b\"}")})
	assert.Equal(t, "a", c)
	assert.Equal(t, `{"content":"b"}`, discarded)
}

// =============================================================================
// READER TESTS
// =============================================================================

func TestReader_Process(t *testing.T) {
	var logBuf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var acc Accumulator
	r := NewReader(iotest.OneByteReader(strings.NewReader(sampleStream+`{"content":"lost"}`)), WithLogger(log))
	require.NoError(t, r.Process(context.Background(), acc.Callback(nil)))

	assert.Equal(t, "你好 ✓ there", acc.Content())
	assert.Equal(t, "思考", acc.Reasoning())
	assert.Equal(t, 2, acc.Events())

	stats := r.Stats()
	assert.Equal(t, 2, stats.Events)
	assert.Equal(t, 1, stats.Skipped)
	assert.True(t, stats.SawDone)
	assert.Equal(t, `{"content":"lost"}`, stats.Discarded)
	assert.Contains(t, logBuf.String(), "skipping malformed stream record")
	assert.Contains(t, logBuf.String(), "discarding unterminated stream record")
}

func TestReader_DoneDoesNotStopReading(t *testing.T) {
	var acc Accumulator
	r := NewReader(strings.NewReader("{\"done\":true}\n{\"content\":\"late\"}\n"))
	require.NoError(t, r.Process(context.Background(), acc.Callback(nil)))
	assert.Equal(t, "late", acc.Content())
}

func TestReader_ReadErrorKeepsDeliveredEvents(t *testing.T) {
	boom := errors.New("connection reset")
	body := io.MultiReader(strings.NewReader("{\"content\":\"part\"}\n"), iotest.ErrReader(boom))

	var acc Accumulator
	err := NewReader(body).Process(context.Background(), acc.Callback(nil))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "part", acc.Content())
}

func TestReader_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewReader(strings.NewReader("{\"content\":\"x\"}\n")).Process(ctx, func(Event) { called = true })
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
