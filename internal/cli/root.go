// Package cli implements the dfjss command line: local simulation, batch
// evaluation, rule evolution and instance generation, the API server, and
// commands that talk to a running server.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/me/dfjss/internal/config"
	"github.com/me/dfjss/internal/logging"
	"github.com/me/dfjss/internal/scheduler"
)

var (
	flagConfig    string
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	cfg    config.Config
	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking DFJSS_SERVER env var first.
func defaultServer() string {
	if s := os.Getenv("DFJSS_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// NewRootCmd creates the root cobra command for the dfjss CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dfjss",
		Short: "dfjss: dynamic flexible job-shop scheduling simulator",
		Long: "dfjss simulates flexible job shops with breakdowns, job arrivals, cancellations\n" +
			"and extended precedence constraints under pluggable dispatching rules.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(flagConfig)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = flagLogLevel
			}
			if flagDebug {
				cfg.Log.Level = "debug"
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Log.Format = flagLogFormat
			}
			logger = logging.NewWithWriter(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, cmd.ErrOrStderr())
			client = NewClient(flagServer, logger)
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "dfjss server URL (or DFJSS_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newBenchCmd(),
		newEvolveCmd(),
		newGenerateCmd(),
		newRulesCmd(),
		newServeCmd(),
		newSubmitCmd(),
		newRunsCmd(),
	)

	return root
}

// engineOptions turns the engine section of the configuration into
// simulation options, with maxTime overriding the configured max time when positive.
func engineOptions(maxTime int) []scheduler.Option {
	if maxTime <= 0 {
		maxTime = cfg.Engine.MaxTime
	}
	return []scheduler.Option{
		scheduler.WithMaxTime(maxTime),
		scheduler.WithTimeCeiling(cfg.Engine.TimeCeiling),
		scheduler.WithLogger(logger),
	}
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
