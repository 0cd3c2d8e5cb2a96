// # cmd/contribs/main.go
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"contribs/internal/core/config"

	"github.com/spf13/cobra"
)

const VERSION = "1.0.0"

var (
	flagConfig      string
	flagVerbose     bool
	flagMetricsAddr string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "contribs",
		Short:         "Find where Python code uses the standard library",
		Long:          "contribs resolves every use of an imported Python standard-library name to its qualified identifier and line, for single files, local trees or crawled GitHub repositories.",
		Version:       VERSION,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(flagVerbose)
		},
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (default: ./"+config.DefaultFile+" when present)")
	root.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")
	root.PersistentFlags().StringVar(&flagMetricsAddr, "metrics-addr", "", "serve /metrics, /health and the read API on this address")

	root.AddCommand(
		newResolveCmd(),
		newScanCmd(),
		newCrawlCmd(),
		newWatchCmd(),
		newStatsCmd(),
		newShowCmd(),
		newServeCmd(),
		newStdlibCmd(),
	)
	return root
}

// setupLogging logs to stderr; stdout carries command output.
func setupLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}

// loadConfig reads --config, or ./contribs.toml when it exists, or falls
// back to defaults. Environment overrides apply last.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case flagConfig != "":
		cfg, err = config.Load(flagConfig)
	default:
		cfg, err = config.Load(config.DefaultFile)
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("no config file found, using defaults", "path", config.DefaultFile)
			cfg, err = config.Default(), nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	config.ApplyEnvOverrides(cfg)
	if flagMetricsAddr != "" {
		cfg.Observability.MetricsAddr = flagMetricsAddr
	}
	return cfg, nil
}
