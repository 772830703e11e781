// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command for the rolechat CLI.
//
// Command: chat [SESSION_ID]
// Short:   Talk to a character interactively
//
// Examples:
//   rolechat chat                 Continue the most recent session
//   rolechat chat s-42            Continue session s-42
//   rolechat chat --no-stream     Wait for whole replies
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /retry, /r          Regenerate the last reply
//   /history [N]        Show the last N messages (default 10)
//   /session            Show session details and settings
//   /stream on|off      Toggle streaming
//   /clear              Delete every message of the session
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel the current reply
//   Ctrl+D              Exit chat

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rolechat/internal/chat"
	"github.com/jeranaias/rolechat/internal/config"
	"github.com/jeranaias/rolechat/internal/model"
)

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads one line of user input.
type lineReader interface {
	ReadInput(prompt string) (string, error)
	Close()
}

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	c := &ChatCLI{line: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
	return c
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and closes the liner.
func (c *ChatCLI) Close() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// plainReader reads lines from a non-terminal input.
type plainReader struct {
	out     io.Writer
	scanner *bufio.Scanner
}

func (r *plainReader) ReadInput(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *plainReader) Close() {}

// newLineReader picks liner for an interactive terminal.
func (a *App) newLineReader() lineReader {
	if a.In == io.Reader(os.Stdin) && IsTTY() {
		return NewChatCLI()
	}
	return &plainReader{out: a.Out, scanner: bufio.NewScanner(a.In)}
}

// =============================================================================
// SESSION STATE
// =============================================================================

// chatSession holds the state of one interactive run.
type chatSession struct {
	app       *App
	sessionID string
	character string
	opts      chat.SendOptions
}

// =============================================================================
// COMMAND
// =============================================================================

func newChatCmd(a *App) *cobra.Command {
	var (
		flags   sendFlags
		history int
	)
	cmd := &cobra.Command{
		Use:   "chat [SESSION_ID]",
		Short: "Talk to a character interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(a)
			if err != nil {
				return err
			}
			sessionID, err := a.pickSession(cmd.Context(), args)
			if err != nil {
				return err
			}
			view, err := a.ctrl.FetchSession(cmd.Context(), sessionID)
			if err != nil {
				return err
			}

			stopWatch := a.watchToken()
			defer stopWatch()

			cs := &chatSession{app: a, sessionID: sessionID, character: view.RoleName(), opts: opts}
			cs.printWelcome(view, history)
			return cs.run(cmd.Context())
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&history, "history", 6, "messages of context to show on start")
	return cmd
}

// pickSession returns the explicit session id or the most recent one.
func (a *App) pickSession(ctx context.Context, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	sessions, err := a.ctrl.ListSessions(ctx)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "", NewUsageError("no sessions yet; start one with: rolechat new <role-id>")
	}
	return sessions[0].ID, nil
}

// watchToken follows the config file so a token refreshed by another tool
// is used without restarting. It returns the stop function.
func (a *App) watchToken() func() {
	if a.cfgPath == "" {
		return func() {}
	}
	w, err := config.NewWatcher(a.cfgPath, 0, func(cfg *config.Config, err error) {
		if err != nil {
			a.log.Warn("config reload failed", "path", a.cfgPath, "error", err)
			return
		}
		if cfg.API.Token != a.creds.Token() {
			a.creds.Set(cfg.API.Token)
			a.log.Info("token reloaded", "path", a.cfgPath)
		}
	})
	if err == nil {
		err = w.Watch()
	}
	if err != nil {
		a.log.Warn("config watch unavailable", "path", a.cfgPath, "error", err)
		if w != nil {
			w.Close()
		}
		return func() {}
	}
	return func() { w.Close() }
}

// =============================================================================
// REPL
// =============================================================================

func (cs *chatSession) printWelcome(view *model.SessionView, history int) {
	out := cs.app.Out
	title := view.Session.DisplayTitle()
	if cs.character != "" {
		title += " with " + cs.character
	}
	fmt.Fprintln(out, TitleStyle.Render(title))
	fmt.Fprintln(out, DimStyle.Render("Type /help for commands, Ctrl+D to exit."))
	if msgs := view.Messages; len(msgs) > 0 && history > 0 {
		if len(msgs) > history {
			msgs = msgs[len(msgs)-history:]
		}
		fmt.Fprintln(out, RenderSeparator())
		writeTranscript(out, msgs, cs.character)
	}
	fmt.Fprintln(out, RenderSeparator())
}

func (cs *chatSession) run(ctx context.Context) error {
	in := cs.app.newLineReader()
	defer in.Close()

	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := in.ReadInput(PromptStyle.Render("you> "))
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D and end of input all exit
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(cs.app.Out)
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if !cs.handleSlashCommand(ctx, input) {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		cs.processMessage(ctx, input)
	}
}

// processMessage sends one message. Ctrl+C cancels the reply but not the chat.
func (cs *chatSession) processMessage(ctx context.Context, input string) {
	sendCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprint(cs.app.Out, speaker(&model.Message{Role: model.RoleAssistant}, cs.character)+" ")
	_, err := cs.app.send(sendCtx, cs.sessionID, input, cs.opts, true)
	if err != nil {
		cs.report(err)
	}
}

// report prints an error without leaving the chat.
func (cs *chatSession) report(err error) {
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(cs.app.Err, WarningStyle.Render("[Cancelled]"))
		return
	}
	fmt.Fprintf(cs.app.Err, "%s %s\n", ErrorStyle.Render("[Error]"), cs.app.describe(err))
	cs.app.ctrl.ClearError()
}

// handleSlashCommand runs a /command. It returns false to end the chat.
func (cs *chatSession) handleSlashCommand(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	name, args := strings.ToLower(fields[0]), fields[1:]
	out := cs.app.Out

	switch name {
	case "/quit", "/q", "/exit":
		return false

	case "/help", "/h":
		fmt.Fprintln(out, `Commands:
  /retry, /r          Regenerate the last reply
  /history [N]        Show the last N messages (default 10)
  /session            Show session details and settings
  /stream on|off      Toggle streaming
  /clear              Delete every message of the session
  /quit, /q           Exit chat`)

	case "/retry", "/r":
		last := lastAssistant(cs.app.ctrl.Messages())
		if last == nil {
			fmt.Fprintln(out, DimStyle.Render("Nothing to retry yet."))
			break
		}
		msgs, err := cs.app.ctrl.RetryAssistantMessage(ctx, last.ID)
		if err != nil {
			cs.report(err)
			break
		}
		if m := lastAssistant(msgs); m != nil {
			writeReply(out, m.Content)
		}

	case "/history":
		n := 10
		if len(args) > 0 {
			if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
				n = v
			}
		}
		msgs := cs.app.ctrl.Messages()
		if len(msgs) > n {
			msgs = msgs[len(msgs)-n:]
		}
		writeTranscript(out, msgs, cs.character)

	case "/session":
		if s := cs.app.ctrl.CurrentSession(); s != nil {
			writeSession(out, s)
		}

	case "/stream":
		switch {
		case len(args) == 0:
			fmt.Fprintf(out, "streaming is %s\n", onOff(cs.opts.Stream))
		case args[0] == "on":
			cs.opts.Stream = true
		case args[0] == "off":
			cs.opts.Stream = false
		default:
			fmt.Fprintln(out, DimStyle.Render("Usage: /stream on|off"))
		}

	case "/clear":
		if err := cs.app.ctrl.ClearSession(ctx, cs.sessionID); err != nil {
			cs.report(err)
			break
		}
		fmt.Fprintln(out, SuccessStyle.Render("Cleared."))

	default:
		fmt.Fprintf(out, "%s %s\n", WarningStyle.Render("Unknown command:"), name)
	}
	return true
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
