// Package cli implements the oxygraph command-line interface.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Carmen-Shannon/oxy-graph/engine/config"
	"github.com/Carmen-Shannon/oxy-graph/engine/logging"
)

const appName = "oxygraph"

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	out        io.Writer
	verbose    bool
	configPath string
}

// New creates a CLI writing command output to out and logs to errOut.
//
// Parameters:
//   - out: the command output writer
//   - errOut: the log writer
//
// Returns:
//   - *CLI: the new CLI
func New(out, errOut io.Writer) *CLI {
	return &CLI{
		Logger: logging.New(errOut, log.InfoLevel),
		out:    out,
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "oxygraph runs render graphs",
		Long:         `oxygraph builds dependency-ordered render graphs, runs them sequentially or on a pool of recording workers, and inspects their topology.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.Logger.SetLevel(log.DebugLevel)
			}
			cmd.SetContext(logging.WithLogger(cmd.Context(), c.Logger))
			return nil
		},
	}
	root.SetOut(c.out)

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to a TOML or YAML configuration file")

	root.AddCommand(c.runCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.configCommand())

	return root
}

// loadConfig reads the configuration file given by --config, or the defaults. A configured log level applies
// unless --verbose was given.
func (c *CLI) loadConfig() (*config.Configuration, error) {
	cfg := config.Default()
	if c.configPath != "" {
		loaded, err := config.Load(c.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if !c.verbose {
		level, err := logging.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		c.Logger.SetLevel(level)
	}
	return cfg, nil
}
