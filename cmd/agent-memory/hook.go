package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/HendryAvila/agent-memory/internal/briefing"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// hookTimeout bounds the briefing so a slow embedder never stalls the host.
const hookTimeout = 10 * time.Second

func newHookCmd(opts *options) *cobra.Command {
	hook := &cobra.Command{
		Use:   "hook",
		Short: "Commands meant to be run by AI tool hooks",
	}
	hook.AddCommand(&cobra.Command{
		Use:   "session-start",
		Short: "Print the project briefing for a new session",
		Long: "Prints recent sessions, decisions and open tasks wrapped in a <memory-context> block.\n" +
			"The hook payload on stdin is read and ignored. The command always exits 0.",
		RunE: func(cmd *cobra.Command, args []string) error {
			drainStdin(cmd.InOrStdin())
			ctx, cancel := context.WithTimeout(cmd.Context(), hookTimeout)
			defer cancel()
			if err := sessionStart(ctx, opts, cmd.OutOrStdout()); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "<!-- agent-memory: context unavailable: %v -->\n", err)
			}
			return nil
		},
	})
	return hook
}

func sessionStart(ctx context.Context, opts *options, out io.Writer) error {
	c, logger, closeAll, err := opts.components()
	if err != nil {
		return err
	}
	defer closeAll()

	if _, err := os.Stat(c.Config.NamespaceDir()); errors.Is(err, os.ErrNotExist) {
		logger.Debug("no memory stored yet", "project", c.Config.Project)
		return nil
	}
	body, err := c.Briefing.Build(ctx)
	if err != nil {
		return err
	}
	if body == "" {
		return nil
	}
	logger.Info("session briefing", "project", c.Config.Project, "bytes", len(body))
	_, err = io.WriteString(out, briefing.Wrap(body))
	return err
}

// drainStdin consumes the hook payload so the host never blocks writing it.
// An interactive terminal is left alone.
func drainStdin(in io.Reader) {
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return
	}
	_, _ = io.Copy(io.Discard, in)
}
