// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// printer.go - Live printing of a streaming reply.

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jeranaias/rolechat/internal/chat"
	"github.com/jeranaias/rolechat/internal/model"
)

// replyPrinter follows the controller while a streamed reply arrives and
// writes each new piece of the placeholder's content as it lands.
type replyPrinter struct {
	w         io.Writer
	ctrl      *chat.Controller
	sessionID string
	from      int // timeline length before the send

	mu        sync.Mutex
	printed   string
	reasoning bool

	cancel func()
	done   chan struct{}
}

// startReplyPrinter subscribes before the send so no delta is missed.
func startReplyPrinter(w io.Writer, ctrl *chat.Controller, sessionID string) *replyPrinter {
	ch, cancel := ctrl.Subscribe()
	p := &replyPrinter{
		w:         w,
		ctrl:      ctrl,
		sessionID: sessionID,
		from:      len(ctrl.Messages()),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go p.run(ch)
	return p
}

func (p *replyPrinter) run(ch <-chan chat.Change) {
	defer close(p.done)
	for change := range ch {
		if change.Kind != chat.ChangeMessages || change.SessionID != p.sessionID {
			continue
		}
		p.update()
	}
}

// placeholder returns the provisional assistant entry of this send.
func (p *replyPrinter) placeholder() *model.Message {
	msgs := p.ctrl.Messages()
	for i := p.from; i < len(msgs); i++ {
		if m := msgs[i]; m.Role == model.RoleAssistant && m.Provisional() {
			return m
		}
	}
	return nil
}

func (p *replyPrinter) update() {
	m := p.placeholder()
	if m == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.reasoning && m.Reasoning() != "" {
		p.reasoning = true
		fmt.Fprintln(p.w, DimStyle.Render("(thinking...)"))
	}
	if strings.HasPrefix(m.Content, p.printed) && len(m.Content) > len(p.printed) {
		fmt.Fprint(p.w, m.Content[len(p.printed):])
		p.printed = m.Content
	}
}

// finish stops following and prints whatever of final was not shown yet.
// When the canonical reply differs from what streamed, it is printed in
// full on a fresh line.
func (p *replyPrinter) finish(final *model.Message) {
	p.cancel()
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case final == nil:
	case strings.HasPrefix(final.Content, p.printed):
		fmt.Fprint(p.w, final.Content[len(p.printed):])
	default:
		fmt.Fprintln(p.w)
		fmt.Fprint(p.w, final.Content)
	}
	fmt.Fprintln(p.w)
}

// stop ends following without a final reply (failed sends).
func (p *replyPrinter) stop() {
	p.finish(nil)
}
