// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream turns a chunked NDJSON response body into chat events.
//
// The backend answers a streaming send with newline-delimited JSON objects:
//
//	{"content":"Hi","reasoning":""}
//	{"content":" there","reasoning":""}
//	{"done":true}
//
// Bytes pass through three stages. Decoder produces UTF-8 text and holds back
// multi-byte characters split across chunks. Framer cuts the text into
// records and buffers an unterminated tail. Parse decodes each record into an
// Event; malformed records yield a *ParseError and are skipped.
//
// # Key Types
//
//   - Reader: drives the stages from an io.Reader and invokes a callback
//   - Pipeline: the same stages fed chunk by chunk
//   - Accumulator: collects delivered text
//
// # Usage
//
//	var acc stream.Accumulator
//	r := stream.NewReader(resp.Body, stream.WithLogger(log))
//	if err := r.Process(ctx, acc.Callback(render)); err != nil {
//	    return err
//	}
//	fmt.Println(acc.Content())
//
// The end of the body, not the done record, completes a stream. A trailing
// record without a newline is discarded.
package stream
