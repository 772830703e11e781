// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rolechat/internal/export"
)

// newExportCmd writes a session transcript to a file, or to stdout with
// --out -.
func newExportCmd(a *App) *cobra.Command {
	var (
		format, out string
		reasoning   bool
	)
	cmd := &cobra.Command{
		Use:   "export SESSION_ID",
		Short: "Export a session transcript (md, json, txt)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := export.DefaultOptions()
			opts.OutputDir = out
			opts.IncludeReasoning = reasoning
			exporter, err := export.ForFormat(format, opts)
			if err != nil {
				return NewUsageError("%s", err.Error())
			}

			view, err := a.ctrl.FetchSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if out == "-" {
				data, err := exporter.Export(view)
				if err != nil {
					return err
				}
				_, err = a.Out.Write(data)
				return err
			}

			path, err := export.ExportToFile(view, exporter, opts)
			if err != nil {
				return err
			}
			return a.emit(cmd, map[string]string{"path": path, "format": format}, func() {
				fmt.Fprintf(a.Out, "%s %s\n", SuccessStyle.Render("Exported"), path)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "output format: md, json or txt")
	cmd.Flags().StringVarP(&out, "out", "o", ".", "output directory, or - for stdout")
	cmd.Flags().BoolVar(&reasoning, "reasoning", false, "include the character's reasoning (markdown only)")
	return cmd
}
