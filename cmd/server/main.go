package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mmynk/billspace/internal/app"
	"github.com/mmynk/billspace/internal/config"
	"github.com/mmynk/billspace/pkg/logging"
)

var (
	cfgFile string
	envFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "billspace-server",
		Short:        "Shared expense tracking server",
		SilenceUsage: true,
		RunE:         run,
	}
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile, envFile)
	if err != nil {
		return err
	}

	logger, err := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	store, err := app.OpenStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage initialized", "driver", cfg.Store.Driver)

	srv := app.NewServer(cfg, store, logger)
	logger.Info("Connect server starting", "address", cfg.Addr, "metrics", cfg.Metrics.Enabled)

	if err := srv.Run(cmd.Context(), cfg.Addr); err != nil {
		return err
	}
	slog.Info("Server stopped")
	return nil
}
