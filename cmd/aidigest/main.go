package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"aidigest/internal/app"
	"aidigest/internal/config"
	"aidigest/internal/domain"
	"aidigest/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "aidigest",
	Short: "Daily RSS digest service with LLM summaries",
	Long:  `Fetches configured RSS feeds, summarizes recent articles with an LLM, and delivers the digest to Slack and optionally email.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP trigger surface and the daily timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(configPath)
		logger := logging.New(cfg.Logging.Level)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		application := app.New(cfg, logger)
		if err := application.Run(ctx); err != nil {
			logger.Error("application stopped", "error", err)
			return err
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a single digest run and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(configPath)
		logger := logging.New(cfg.Logging.Level)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		application := app.New(cfg, logger)
		result, err := application.RunOnce(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("run %s finished: %s (%d articles, %d summarized)\n",
			result.RunID, result.Status, len(result.Articles), result.SummarizedCount())
		if result.Status == domain.StatusFailure {
			return fmt.Errorf("digest run failed")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config (defaults to AIDIGEST_CONFIG)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
