package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"slack2dify/internal/app"
	"slack2dify/internal/config"
	"slack2dify/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "slack2dify",
	Short: "Pull Slack channel history into Dify batch by batch",
	Long:  `A resumable poller that drives a paginated Dify workflow over a Slack channel's history, checkpointing the pagination cursor to disk so an interrupted run picks up where it left off.`,
	RunE:  runLoop,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (optional)")

	// Workflow flags
	rootCmd.Flags().String("endpoint", "", "Dify workflow endpoint URL")
	rootCmd.Flags().String("api-key", "", "Dify API key")
	rootCmd.Flags().String("user", "", "Dify user identifier")
	rootCmd.Flags().String("channel", "", "Slack channel ID (required)")
	rootCmd.Flags().String("oldest-ts", "", "Oldest Slack timestamp bound")
	rootCmd.Flags().String("latest-ts", "", "Latest Slack timestamp bound")

	// Loop flags
	rootCmd.Flags().String("oldest-date", "", "Stop once the oldest fetched message is at or before this date (YYYY-MM-DD)")
	rootCmd.Flags().Float64("interval-min", 1, "Minutes to wait between batches")
	rootCmd.Flags().Int("limit", 5, "Messages per batch")
	rootCmd.Flags().Int("retries", 3, "Maximum retry attempts per batch")
	rootCmd.Flags().Int("retry-interval-sec", 5, "Seconds to wait between retries")
	rootCmd.Flags().String("state", "./cursor.state.json", "State file for the pagination cursor")
	rootCmd.Flags().String("journal", "", "SQLite batch journal file (empty disables)")
	rootCmd.Flags().String("metrics-addr", "", "Prometheus /metrics listen address (empty disables)")
	rootCmd.Flags().String("log-level", "info", "Log level (debug/info/warn/error)")
	rootCmd.Flags().Bool("once", false, "Run a single batch and exit")
}

func runLoop(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	poller, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create poller: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Received shutdown signal, saving state and stopping...")
		cancel()
	}()

	err = poller.Run(ctx)

	if closeErr := poller.Close(); closeErr != nil {
		log.Error("Error closing poller", zap.Error(closeErr))
	}

	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
