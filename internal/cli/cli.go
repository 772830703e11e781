// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Root command and shared wiring for the rolechat CLI.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/jeranaias/rolechat/internal/api"
	"github.com/jeranaias/rolechat/internal/chat"
	"github.com/jeranaias/rolechat/internal/config"
	"github.com/jeranaias/rolechat/internal/logging"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// APP
// =============================================================================

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	apiURL     string
	token      string
	lang       string
	logLevel   string
	json       bool
	noColor    bool
}

// App carries the wiring every command needs. It is built once per run in
// the root command's PersistentPreRunE.
type App struct {
	Out io.Writer
	Err io.Writer
	In  io.Reader

	// ClientOptions are appended to the API client options.
	ClientOptions []api.Option

	flags   globalFlags
	cfg     *config.Config
	cfgPath string
	log     *slog.Logger
	lang    language.Tag
	creds   *api.StaticToken
	client  *api.Client
	ctrl    *chat.Controller
}

// NewApp creates an App writing to the process's standard streams.
func NewApp() *App {
	return &App{Out: os.Stdout, Err: os.Stderr, In: os.Stdin}
}

// setup loads configuration and builds the client and controller.
func (a *App) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return &ConfigError{Err: err}
	}

	var err error
	if a.flags.configPath != "" {
		a.cfgPath = a.flags.configPath
		a.cfg, err = config.LoadFromPath(a.flags.configPath)
	} else {
		a.cfg, a.cfgPath, err = config.Load()
	}
	if err != nil {
		return &ConfigError{Path: a.cfgPath, Err: err}
	}

	a.applyFlags(cmd)
	if err := a.cfg.Validate(); err != nil {
		return &ConfigError{Err: err}
	}

	if a.flags.noColor {
		ForceColorsEnabled(false)
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	opts := a.cfg.LogOptions()
	opts.Output = a.Err
	a.log = logging.New(opts).With("component", "cli")
	a.lang = chat.ParseLanguage(a.cfg.Chat.Language)

	a.creds = api.NewStaticToken(a.cfg.API.Token)
	clientOpts := append([]api.Option{
		api.WithLogger(a.log),
		api.OnAuthExpired(a.onAuthExpired),
	}, a.ClientOptions...)
	a.client = api.NewClient(a.cfg.ClientConfig(), a.creds, clientOpts...)
	a.ctrl = chat.NewController(a.client, chat.Options{
		Logger:       a.log,
		ExcerptWidth: a.cfg.Chat.ExcerptWidth,
	})
	return nil
}

// applyFlags lets explicit flags win over file and environment values.
func (a *App) applyFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("api-url") {
		a.cfg.API.BaseURL = a.flags.apiURL
	}
	if f.Changed("token") {
		a.cfg.API.Token = a.flags.token
	}
	if f.Changed("lang") {
		a.cfg.Chat.Language = a.flags.lang
	}
	if f.Changed("log-level") {
		a.cfg.Log.Level = a.flags.logLevel
	}
	a.cfg.SetDefaults()
}

// onAuthExpired runs when the backend rejects the token.
func (a *App) onAuthExpired() {
	fmt.Fprintln(a.Err, WarningStyle.Render(chat.Describe(api.ErrSessionExpired, a.lang)))
	fmt.Fprintln(a.Err, DimStyle.Render("Update the token with: rolechat config set-token <token>"))
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCmd builds the command tree bound to a.
func NewRootCmd(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "rolechat",
		Short:         "Chat with role-play characters from the terminal",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(a.Out)
	root.SetErr(a.Err)
	root.SetIn(a.In)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "config file (default ~/.rolechat/config.toml)")
	pf.StringVar(&a.flags.apiURL, "api-url", "", "backend API root (overrides config)")
	pf.StringVar(&a.flags.token, "token", "", "bearer token (overrides config)")
	pf.StringVar(&a.flags.lang, "lang", "", "language for messages: en, zh-Hans")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "debug, info, warn or error")
	pf.BoolVar(&a.flags.json, "json", false, "print results as JSON")
	pf.BoolVar(&a.flags.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newSessionsCmd(a),
		newModelsCmd(a),
		newNewCmd(a),
		newShowCmd(a),
		newSendCmd(a),
		newRetryCmd(a),
		newEditCmd(a),
		newForgetCmd(a),
		newSettingsCmd(a),
		newDeleteCmd(a),
		newClearCmd(a),
		newExportCmd(a),
		newChatCmd(a),
		newConfigCmd(a),
	)
	return root
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(ctx context.Context, a *App, args []string) int {
	root := NewRootCmd(a)
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return ExitSuccess
	}
	if cmd == nil {
		cmd = root
	}

	// cobra reports bad flags and arguments before setup has run
	if a.cfg == nil && !isConfigError(err) {
		err = &UsageError{Message: err.Error()}
	}

	msg := a.describe(err)
	if a.flags.json {
		_ = NewJSONErrorResponse(cmd.Name(), msg).Write(a.Out)
	} else {
		fmt.Fprintf(a.Err, "%s %s\n", ErrorStyle.Render("Error:"), msg)
	}
	return ExitCodeFor(err)
}

func isConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

// emit prints data as a JSON envelope in --json mode, otherwise calls text.
func (a *App) emit(cmd *cobra.Command, data any, text func()) error {
	if a.flags.json {
		return NewJSONResponse(cmd.Name(), data).Write(a.Out)
	}
	text()
	return nil
}

// warn prints a non-fatal problem.
func (a *App) warn(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(a.Err, WarningStyle.Render("Warning: "+a.describe(err)))
}
