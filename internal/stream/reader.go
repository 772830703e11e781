// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream turns a chunked NDJSON response body into chat events.
package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/jeranaias/rolechat/internal/logging"
)

// =============================================================================
// PIPELINE
// =============================================================================

// Pipeline chains decoder, framer and parser. Feed it byte chunks exactly as
// they come off the wire.
type Pipeline struct {
	dec    *Decoder
	framer Framer
}

// NewPipeline returns an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{dec: NewDecoder()}
}

// Feed consumes one chunk and returns the events it completed along with
// parse failures for the records that were skipped.
func (p *Pipeline) Feed(chunk []byte) ([]Event, []*ParseError) {
	return parseAll(p.framer.Feed(p.dec.Decode(chunk)))
}

// Close flushes the decoder and reports the unterminated residual that was
// discarded, if any. Incomplete trailing records are never parsed.
func (p *Pipeline) Close() (discarded string) {
	p.framer.Feed(p.dec.Flush())
	return p.framer.Close()
}

func parseAll(records []string) ([]Event, []*ParseError) {
	var (
		events []Event
		errs   []*ParseError
	)
	for _, rec := range records {
		ev, err := Parse(rec)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				errs = append(errs, pe)
			}
			continue
		}
		events = append(events, ev)
	}
	return events, errs
}

// =============================================================================
// STREAM READER
// =============================================================================

// Callback receives each event with a delta, in wire order.
type Callback func(Event)

// Stats summarizes one processed stream.
type Stats struct {
	Bytes        int64
	Events       int
	Skipped      int
	SawDone      bool
	Discarded    string
	FirstEventIn time.Duration
	Duration     time.Duration
}

// Reader drives a Pipeline from an io.Reader.
type Reader struct {
	r        io.Reader
	pipeline *Pipeline
	log      *slog.Logger
	bufSize  int
	stats    Stats
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithLogger sets the logger used for skipped and discarded records.
func WithLogger(l *slog.Logger) ReaderOption {
	return func(r *Reader) { r.log = logging.OrNop(l) }
}

// WithBufferSize sets the read size per chunk.
func WithBufferSize(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.bufSize = n
		}
	}
}

// NewReader wraps r.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	sr := &Reader{
		r:        r,
		pipeline: NewPipeline(),
		log:      logging.Nop(),
		bufSize:  4096,
	}
	for _, opt := range opts {
		opt(sr)
	}
	return sr
}

// Process reads until EOF, calling callback for every event that carries a
// delta. Bare done markers are counted but not delivered. Blocks until the
// stream ends, fails, or ctx is cancelled; on failure the events already
// delivered stand.
func (s *Reader) Process(ctx context.Context, callback Callback) error {
	start := time.Now()
	defer func() { s.stats.Duration = time.Since(start) }()

	buf := make([]byte, s.bufSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := s.r.Read(buf)
		if n > 0 {
			s.stats.Bytes += int64(n)
			events, errs := s.pipeline.Feed(buf[:n])
			for _, pe := range errs {
				s.stats.Skipped++
				s.log.Warn("skipping malformed stream record", "record", pe.Record, "error", pe.Err)
			}
			for _, ev := range events {
				s.deliver(ev, start, callback)
			}
		}

		if readErr == nil {
			continue
		}
		if errors.Is(readErr, io.EOF) {
			if rest := s.pipeline.Close(); rest != "" {
				s.stats.Discarded = rest
				s.log.Debug("discarding unterminated stream record", "residual", rest)
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return readErr
	}
}

func (s *Reader) deliver(ev Event, start time.Time, callback Callback) {
	if ev.Done {
		s.stats.SawDone = true
	}
	if !ev.HasDelta() {
		return
	}
	if s.stats.Events == 0 {
		s.stats.FirstEventIn = time.Since(start)
	}
	s.stats.Events++
	if callback != nil {
		callback(ev)
	}
}

// Stats returns the counters collected so far.
func (s *Reader) Stats() Stats {
	return s.stats
}
