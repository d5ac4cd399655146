package cmd

import (
	"fmt"
	"os"

	"license-agent/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// configDir is where the optional .env file is looked up.
var configDir string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "license-agent",
	Short: "License reconciliation and booking agent",
	Long: `license-agent keeps the license inventory of a compute cluster accurate.
It queries the vendor license servers, books licenses for starting Slurm jobs
and reports one reconciled count per feature to the backend.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format with ISO8601 timestamps reads better on a terminal.
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directory holding the optional .env file")
}
