package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Shivraj0199/Secure-multi-container-webapp/internal/config"
	"github.com/Shivraj0199/Secure-multi-container-webapp/internal/telemetry"
)

// cli carries flag values and the application context between cobra hooks.
type cli struct {
	cfgFile  string
	logLevel string

	// app is populated by PersistentPreRunE.
	app *AppContext
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "backend",
		Short: "Secure multi-container backend",
		Long: `Backend starts an HTTP server on PORT (default 5000) and connects to the
document database at MONGO_URI in the background. The server answers
whether or not the database is reachable.

Running without a subcommand is the same as "backend serve".`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		RunE:              c.runServer,
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "path to config file (YAML)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newServeCmd(c))
	root.AddCommand(newPingCmd(c))

	return root
}

// setup loads config, initialises logging and builds the application context.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	logOut := cmd.ErrOrStderr()
	initLogger(logOut, c.logLevel)

	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// --log-level flag takes precedence over the config value.
	if cmd.Flags().Changed("log-level") {
		cfg.Telemetry.LogLevel = c.logLevel
	} else if cfg.Telemetry.LogLevel != "" {
		initLogger(logOut, cfg.Telemetry.LogLevel)
	}

	c.app, err = buildAppContext(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("building app context: %w", err)
	}
	return nil
}

// Execute is the entry point called by main.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// initLogger sends logs to w, which is stderr unless a test overrides it, so
// stdout carries only command output such as the ping result.
func initLogger(w io.Writer, level string) {
	slog.SetDefault(telemetry.NewLogger(w, level))
}
