// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// messages_cmd.go - Commands that send and change messages.
//
//   rolechat send SESSION_ID [TEXT...]           Send a message (stdin when TEXT is omitted or "-")
//   rolechat retry SESSION_ID [MESSAGE_ID]       Regenerate a reply (default: the last one)
//   rolechat edit SESSION_ID MESSAGE_ID TEXT...  Rewrite a saved message
//   rolechat forget SESSION_ID MESSAGE_ID        Delete one saved message

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rolechat/internal/chat"
	"github.com/jeranaias/rolechat/internal/model"
)

// sendFlags are shared by send and chat.
type sendFlags struct {
	noStream bool
	preset   string
}

func (f *sendFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noStream, "no-stream", false, "wait for the whole reply instead of streaming it")
	cmd.Flags().StringVar(&f.preset, "preset", "", "prompt preset as a JSON object")
}

// options resolves the send options against the configuration.
func (f *sendFlags) options(a *App) (chat.SendOptions, error) {
	opts := chat.SendOptions{Stream: a.cfg.Chat.Stream && !f.noStream}
	if f.preset != "" {
		if !json.Valid([]byte(f.preset)) {
			return opts, NewUsageError("--preset is not valid JSON")
		}
		opts.Preset = json.RawMessage(f.preset)
	}
	return opts, nil
}

// sendOutput is the --json payload of send.
type sendOutput struct {
	State     string         `json:"state"`
	Reply     *model.Message `json:"reply,omitempty"`
	Events    int            `json:"events,omitempty"`
	Skipped   int            `json:"skipped,omitempty"`
	Reconcile string         `json:"reconcile_error,omitempty"`
}

func newSendCmd(a *App) *cobra.Command {
	var flags sendFlags
	cmd := &cobra.Command{
		Use:   "send SESSION_ID [TEXT...]",
		Short: "Send a message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(a)
			if err != nil {
				return err
			}
			content, err := messageText(a.In, args[1:])
			if err != nil {
				return err
			}
			if _, err := a.ctrl.FetchSession(cmd.Context(), args[0]); err != nil {
				return err
			}

			res, err := a.send(cmd.Context(), args[0], content, opts, !a.flags.json)
			if err != nil {
				return err
			}
			out := sendOutput{
				State:   res.State.String(),
				Reply:   res.Reply,
				Events:  res.Stats.Events,
				Skipped: res.Stats.Skipped,
			}
			if res.ReconcileErr != nil {
				out.Reconcile = a.describe(res.ReconcileErr)
			}
			return a.emit(cmd, out, func() {})
		},
	}
	flags.register(cmd)
	return cmd
}

// messageText joins args, or reads stdin when they are empty or "-".
func messageText(in io.Reader, args []string) (string, error) {
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return strings.Join(args, " "), nil
}

// send runs one exchange against the open session. With show set the reply
// is printed as it arrives, or once complete when not streaming.
func (a *App) send(ctx context.Context, sessionID, content string, opts chat.SendOptions, show bool) (*chat.SendResult, error) {
	var printer *replyPrinter
	if show && opts.Stream {
		printer = startReplyPrinter(a.Out, a.ctrl, sessionID)
	}

	res, err := a.ctrl.SendMessage(ctx, sessionID, content, opts)

	var streamErr *chat.StreamError
	switch {
	case err != nil && printer != nil:
		printer.stop()
	case err != nil:
	case printer != nil:
		printer.finish(res.Reply)
	case show && res.Reply != nil:
		writeReply(a.Out, res.Reply.Content)
	}
	if errors.As(err, &streamErr) && show && printer == nil && streamErr.Partial != "" {
		fmt.Fprintln(a.Out, streamErr.Partial)
	}
	if err != nil {
		return nil, err
	}

	if show {
		if res.State == chat.StateSuperseded {
			fmt.Fprintln(a.Err, DimStyle.Render("(superseded by a newer request)"))
		}
		a.warn(res.ReconcileErr)
	}
	return res, nil
}

func newRetryCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "retry SESSION_ID [MESSAGE_ID]",
		Short: "Regenerate a character reply (default: the last one)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := a.ctrl.FetchSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			messageID := ""
			if len(args) == 2 {
				messageID = args[1]
			} else if m := lastAssistant(view.Messages); m != nil {
				messageID = m.ID
			} else {
				return NewUsageError("session %s has no character reply to retry", args[0])
			}

			mark := 0
			for i, m := range view.Messages {
				if m.ID == messageID {
					mark = i
				}
			}

			msgs, err := a.ctrl.RetryAssistantMessage(cmd.Context(), messageID)
			if err != nil {
				return err
			}
			if mark < len(msgs) {
				msgs = msgs[mark:]
			}
			return a.emit(cmd, msgs, func() {
				for _, m := range msgs {
					if m.Role == model.RoleAssistant {
						writeReply(a.Out, m.Content)
					}
				}
			})
		},
	}
}

// lastAssistant returns the final assistant message of msgs, or nil.
func lastAssistant(msgs []*model.Message) *model.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleAssistant {
			return msgs[i]
		}
	}
	return nil
}

func newEditCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit SESSION_ID MESSAGE_ID TEXT...",
		Short: "Rewrite a saved message",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.ctrl.FetchSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			content := strings.Join(args[2:], " ")
			if err := a.ctrl.EditMessage(cmd.Context(), args[1], content); err != nil {
				return err
			}
			return a.emit(cmd, map[string]string{"edited": args[1]}, func() {
				fmt.Fprintf(a.Out, "%s %s\n", SuccessStyle.Render("Edited"), args[1])
			})
		},
	}
}

func newForgetCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "forget SESSION_ID MESSAGE_ID",
		Short: "Delete one saved message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.ctrl.FetchSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			if err := a.ctrl.DeleteMessage(cmd.Context(), args[1]); err != nil {
				return err
			}
			return a.emit(cmd, map[string]string{"deleted": args[1]}, func() {
				fmt.Fprintf(a.Out, "%s %s\n", SuccessStyle.Render("Deleted"), args[1])
			})
		},
	}
}
