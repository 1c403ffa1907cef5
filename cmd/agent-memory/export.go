package main

import (
	"context"
	"fmt"
	"path/filepath"

	amserver "github.com/HendryAvila/agent-memory/internal/server"
	"github.com/spf13/cobra"
)

func newExportCmd(opts *options) *cobra.Command {
	export := &cobra.Command{
		Use:   "export",
		Short: "Render stored knowledge as Markdown",
	}
	export.AddCommand(
		exportSubcommand(opts, "architecture", "Render the architecture graph as ARCHITECTURE.md",
			func(ctx context.Context, c *amserver.Components, path string) (string, error) {
				return c.Graph.ExportArchitecture(ctx, path)
			}),
		exportSubcommand(opts, "agent-md", "Render the documentation sections as AGENT.md",
			func(ctx context.Context, c *amserver.Components, path string) (string, error) {
				return c.Docs.GenerateAgentMD(ctx, path)
			}),
	)
	return export
}

type exportFunc func(ctx context.Context, c *amserver.Components, path string) (string, error)

func exportSubcommand(opts *options, use, short string, render exportFunc) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, closeAll, err := opts.components()
			if err != nil {
				return err
			}
			defer closeAll()

			path := output
			if path != "" && !filepath.IsAbs(path) {
				path = filepath.Join(c.Config.WorkDir, path)
			}
			doc, err := render(cmd.Context(), c, path)
			if err != nil {
				return err
			}
			if path == "" {
				fmt.Fprint(cmd.OutOrStdout(), doc)
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default: print to stdout)")
	return cmd
}
