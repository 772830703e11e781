// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions_cmd.go - Session management commands.
//
//   rolechat sessions                      List sessions, most recent first
//   rolechat new ROLE_ID [--model KEY]     Start a session with a role
//   rolechat show SESSION_ID               Show a session and its transcript
//   rolechat settings SESSION_ID [flags]   Show or change generation settings
//   rolechat delete SESSION_ID             Delete a session
//   rolechat clear SESSION_ID              Delete a session's messages

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rolechat/internal/model"
)

func newSessionsCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"ls"},
		Short:   "List chat sessions, most recent first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := a.ctrl.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(cmd, sessions, func() { writeSessions(a.Out, sessions) })
		},
	}
}

func newNewCmd(a *App) *cobra.Command {
	var modelKey, title string
	cmd := &cobra.Command{
		Use:   "new ROLE_ID",
		Short: "Start a new session with a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelKey == "" {
				modelKey = a.cfg.Chat.DefaultModel
			}
			s, err := a.ctrl.CreateSession(cmd.Context(), model.CreateSessionRequest{
				RoleID:   args[0],
				ModelKey: modelKey,
				Title:    title,
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, s, func() {
				fmt.Fprintf(a.Out, "%s %s\n", SuccessStyle.Render("Created"), s.ID)
			})
		},
	}
	cmd.Flags().StringVarP(&modelKey, "model", "m", "", "model key (default from config)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "session title")
	return cmd
}

func newShowCmd(a *App) *cobra.Command {
	var tail int
	cmd := &cobra.Command{
		Use:   "show SESSION_ID",
		Short: "Show a session and its transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := a.ctrl.FetchSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.emit(cmd, view, func() {
				writeSession(a.Out, &view.Session)
				fmt.Fprintln(a.Out, RenderSeparator())
				msgs := view.Messages
				if tail > 0 && len(msgs) > tail {
					msgs = msgs[len(msgs)-tail:]
				}
				writeTranscript(a.Out, msgs, view.RoleName())
			})
		},
	}
	cmd.Flags().IntVarP(&tail, "tail", "n", 0, "only show the last N messages")
	return cmd
}

func newSettingsCmd(a *App) *cobra.Command {
	var (
		mode, modelKey, focus, action string
		temperature                   float64
		maxTokens                     int
		sfw, immersive                bool
	)
	cmd := &cobra.Command{
		Use:   "settings SESSION_ID",
		Short: "Show or change a session's generation settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			var patch model.SettingsPatch
			if f.Changed("mode") {
				patch.Mode = &mode
			}
			if f.Changed("model") {
				patch.ModelKey = &modelKey
			}
			if f.Changed("temperature") {
				if temperature < 0 || temperature > 2 {
					return NewUsageError("temperature must be between 0 and 2")
				}
				patch.Temperature = &temperature
			}
			if f.Changed("max-tokens") {
				if maxTokens <= 0 {
					return NewUsageError("max-tokens must be positive")
				}
				patch.MaxTokens = &maxTokens
			}
			if f.Changed("focus") {
				patch.NarrativeFocus = &focus
			}
			if f.Changed("action") {
				patch.ActionRichness = &action
			}
			if f.Changed("sfw") {
				patch.SFWMode = &sfw
			}
			if f.Changed("immersive") {
				patch.Immersive = &immersive
			}

			var (
				s   *model.Session
				err error
			)
			if patch.Empty() {
				var view *model.SessionView
				if view, err = a.ctrl.FetchSession(cmd.Context(), args[0]); err == nil {
					s = &view.Session
				}
			} else {
				s, err = a.ctrl.UpdateSettings(cmd.Context(), args[0], patch)
			}
			if err != nil {
				return err
			}
			return a.emit(cmd, s, func() { writeSession(a.Out, s) })
		},
	}
	f := cmd.Flags()
	f.StringVar(&mode, "mode", "", "chat mode")
	f.StringVar(&modelKey, "model", "", "model key")
	f.Float64Var(&temperature, "temperature", 0.7, "sampling temperature (0-2)")
	f.IntVar(&maxTokens, "max-tokens", 512, "reply length limit")
	f.StringVar(&focus, "focus", "", "narrative focus")
	f.StringVar(&action, "action", "", "action richness")
	f.BoolVar(&sfw, "sfw", true, "safe-for-work mode")
	f.BoolVar(&immersive, "immersive", true, "immersive mode")
	return cmd
}

func newDeleteCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete SESSION_ID",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ctrl.DeleteSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.emit(cmd, map[string]string{"deleted": args[0]}, func() {
				fmt.Fprintf(a.Out, "%s %s\n", SuccessStyle.Render("Deleted"), args[0])
			})
		},
	}
}

func newClearCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear SESSION_ID",
		Short: "Delete every message of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ctrl.ClearSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.emit(cmd, map[string]string{"cleared": args[0]}, func() {
				fmt.Fprintf(a.Out, "%s %s\n", SuccessStyle.Render("Cleared"), args[0])
			})
		},
	}
}

func newModelsCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models sessions can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			models := a.ctrl.FetchModels(cmd.Context())
			a.warn(a.ctrl.Status().LastError)
			return a.emit(cmd, models, func() { writeModels(a.Out, models) })
		},
	}
}
