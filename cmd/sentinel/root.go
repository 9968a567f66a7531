package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"zoi/sentinel/pkg/cli"
	"zoi/sentinel/pkg/config"
	"zoi/sentinel/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile      string
	logLevel     string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Sentinel - export compliance research and cache engine",
	Long: `Sentinel answers "is this product compliant for export along a trade route".

It serves records from a reference knowledge base and a compliance cache,
researches unknown or stale products through an AI research backend (Manus
or Anthropic), and corrects known-wrong answers against a regulatory
authority table before anything is cached.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the command's exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "sentinel.yaml", "config file path (missing file uses defaults)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", completeValues(string(cli.FormatText), string(cli.FormatJSON)))
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", completeValues("debug", "info", "warn", "error"))
}

// loadConfig loads the config file with environment overrides, applies the
// global flags, and installs the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", err)
	}
	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, cli.NewConfigError("", err)
	}
	if _, err := setupLogging(cfg); err != nil {
		return nil, err
	}
	config.Set(cfg)
	return cfg, nil
}

func setupLogging(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.Setup(cfg.Telemetry.Logging, os.Stderr)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err)
	}
	return logger, nil
}

func printer(cmd *cobra.Command) (*cli.Printer, error) {
	format, err := cli.ParseFormat(outputFormat)
	if err != nil {
		return nil, cli.NewConfigError("--output", err)
	}
	return cli.NewPrinter(cmd.OutOrStdout(), format), nil
}
