package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"FundFlow/internal/di"
	"FundFlow/internal/usecase"
	"FundFlow/pkg/config"

	"github.com/spf13/cobra"
)

var (
	configPath string

	uc      *usecase.FundFlowUseCase
	cleanup = func() {}
)

var rootCmd = &cobra.Command{
	Use:           "fundflow",
	Short:         "Stock fund flow tables and analysis",
	Long:          `Fetch the daily fund flow of an A-share stock, add moving averages, render it as a table and ask an LLM for an analysis.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithEnv(configPath)
		if err != nil {
			return err
		}
		// keep stdout for command output
		if cfg.Log.Output == "" || cfg.Log.Output == "stdout" {
			cfg.Log.Output = "stderr"
		}
		uc, cleanup, err = di.InitializeUseCase(cfg)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file path")
	rootCmd.AddCommand(infoCmd, tableCmd, analyzeCmd, historyCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cleanup()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
