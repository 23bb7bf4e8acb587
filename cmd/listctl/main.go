package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vetrina/internal/cli"
	"vetrina/internal/config"
	applog "vetrina/internal/log"
)

var (
	logLevel  string
	logFormat string
	cfg       *config.Config
	logger    *applog.Logger

	rootCmd = &cobra.Command{
		Use:   "listctl",
		Short: "Inspect and load vetrina listings",
		Long: `listctl runs listing queries against the configured storage, shows the
category alias table and imports records from the configured spreadsheet.

Configuration is read from the environment and from a .env file, exactly as
the server reads it.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json); overrides LOG_FORMAT")

	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(aliasesCmd())
	rootCmd.AddCommand(importCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()
	cfg = config.Load()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, applog.ComponentCLI)
	cmd.SetContext(applog.NewContext(cmd.Context(), logger))
	return nil
}
