// Command compliancesim runs the behavioral compliance simulation.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/talgya/compliance-sim/internal/config"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "compliancesim",
		Short:        "Simulate how agents comply with statutes, learn, and influence each other",
		Version:      version,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringP("config", "c", "", "YAML config file (env COMPLIANCESIM_* overrides)")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		newRunCmd(),
		newReportCmd(),
		newEstimateCmd(),
	)
	return cmd
}

// loadConfig reads the --config file and applies the --log-level override,
// then installs the log handler.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, fmt.Errorf("%w: log level %q", config.ErrInvalid, cfg.Log.Level)
	}
	setupLogging(level)
	return cfg, nil
}

func setupLogging(level slog.Level) {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		}),
	))
}
