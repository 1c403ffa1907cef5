package main

import (
	"fmt"
	"os"

	"github.com/HendryAvila/agent-memory/internal/config"
	"github.com/HendryAvila/agent-memory/internal/logging"
	amserver "github.com/HendryAvila/agent-memory/internal/server"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const longRoot = `agent-memory gives AI coding agents a memory that survives the session.

Every project gets its own namespace holding memories, session summaries,
tasks, an architecture graph and documentation sections. The namespace is
picked from --project, AGENT_PROJECT_ID, a .agent-project file, the git
repository name or the working directory name, in that order.

Add it to your AI tool's MCP config:

  {
    "mcpServers": {
      "agent-memory": {
        "command": "agent-memory",
        "args": ["serve"]
      }
    }
  }`

// options are the persistent flags shared by every subcommand.
type options struct {
	v       *viper.Viper
	dir     string
	cfgFile string
}

func newRootCmd() *cobra.Command {
	opts := &options{v: config.New()}

	root := &cobra.Command{
		Use:           "agent-memory",
		Short:         "Persistent project memory MCP server for AI coding agents",
		Long:          longRoot,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("project", "", "project namespace (default: detected from the working directory)")
	flags.StringVar(&opts.dir, "dir", "", "working directory (default: current directory)")
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default: ~/.agent-memory-mcp/config/config.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	_ = opts.v.BindPFlag(config.KeyProjectID, flags.Lookup("project"))
	_ = opts.v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))

	root.AddCommand(
		newServeCmd(opts),
		newHookCmd(opts),
		newExportCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load resolves configuration and the logger for a subcommand. The returned
// func closes the log file.
func (o *options) load() (*config.Config, *log.Logger, func(), error) {
	dir := o.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("getting working directory: %w", err)
		}
		dir = wd
	}
	if err := config.ReadFile(o.v, o.cfgFile); err != nil {
		return nil, nil, nil, err
	}
	cfg, err := config.Load(o.v, dir)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, closeLog, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, func() { _ = closeLog() }, nil
}

// components loads configuration and builds the namespace services.
func (o *options) components() (*amserver.Components, *log.Logger, func(), error) {
	cfg, logger, closeLog, err := o.load()
	if err != nil {
		return nil, nil, nil, err
	}
	c, err := amserver.Build(cfg, logger)
	if err != nil {
		closeLog()
		return nil, nil, nil, err
	}
	return c, logger, func() { c.Close(); closeLog() }, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "agent-memory v%s\n", amserver.Version)
		},
	}
}
