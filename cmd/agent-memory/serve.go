package main

import (
	"fmt"

	amserver "github.com/HendryAvila/agent-memory/internal/server"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closeLog, err := opts.load()
			if err != nil {
				return err
			}
			defer closeLog()

			s, cleanup, err := amserver.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			// ServeStdio handles SIGINT and SIGTERM itself.
			return server.ServeStdio(s)
		},
	}
}
