// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration commands.
//
//   rolechat config show           Print the effective configuration (token masked)
//   rolechat config path           Print the configuration file path
//   rolechat config init           Write a default config file if none exists
//   rolechat config set-token TOK  Store the bearer token
//   rolechat config set-url URL    Store the backend API root

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rolechat/internal/config"
)

func newConfigCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.emit(cmd, a.cfg.Redacted(), func() {
					fmt.Fprint(a.Out, a.cfg.String())
				})
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := a.writablePath()
				if err != nil {
					return err
				}
				return a.emit(cmd, map[string]string{"path": path}, func() {
					fmt.Fprintln(a.Out, path)
				})
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write a default configuration file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := a.writablePath()
				if err != nil {
					return err
				}
				if _, err := os.Stat(path); err == nil {
					return NewUsageError("%s already exists", path)
				}
				if err := config.SaveTOML(config.Default(), path); err != nil {
					return &ConfigError{Path: path, Err: err}
				}
				return a.emit(cmd, map[string]string{"path": path}, func() {
					fmt.Fprintf(a.Out, "%s %s\n", SuccessStyle.Render("Wrote"), path)
				})
			},
		},
		a.setCmd("set-token TOKEN", "Store the bearer token", func(c *config.Config, v string) {
			c.API.Token = v
		}),
		a.setCmd("set-url URL", "Store the backend API root", func(c *config.Config, v string) {
			c.API.BaseURL = v
		}),
	)
	return cmd
}

// setCmd builds a command that stores one value in the config file.
func (a *App) setCmd(use, short string, set func(*config.Config, string)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.writablePath()
			if err != nil {
				return err
			}
			if err := config.Update(path, func(c *config.Config) { set(c, args[0]) }); err != nil {
				return &ConfigError{Path: path, Err: err}
			}
			return a.emit(cmd, map[string]string{"path": path}, func() {
				fmt.Fprintf(a.Out, "%s %s\n", SuccessStyle.Render("Updated"), path)
			})
		},
	}
}

// writablePath is the file that was loaded, or the default TOML location.
func (a *App) writablePath() (string, error) {
	if a.cfgPath != "" {
		return a.cfgPath, nil
	}
	path, err := config.ConfigPathTOML()
	if err != nil {
		return "", &ConfigError{Err: err}
	}
	return path, nil
}
