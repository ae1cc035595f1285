// Command spacectl administers a billspace store directly, without going
// through the RPC server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mmynk/billspace/internal/app"
	"github.com/mmynk/billspace/internal/config"
	"github.com/mmynk/billspace/internal/core"
	"github.com/mmynk/billspace/internal/storage"
	"github.com/mmynk/billspace/pkg/logging"
)

// env carries what the subcommands share once the root has loaded config.
type env struct {
	cfgFile string
	envFile string

	cfg   *config.Config
	store storage.Store
	core  *core.Service
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "spacectl",
		Short:         "Administer billspace users and spaces",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return e.close()
		},
	}
	root.PersistentFlags().StringVar(&e.cfgFile, "config", "", "config file (YAML)")
	root.PersistentFlags().StringVar(&e.envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(migrateCmd(e))
	root.AddCommand(userCmd(e))
	root.AddCommand(spaceCmd(e))
	return root
}

func (e *env) open() error {
	cfg, err := config.Load(e.cfgFile, e.envFile)
	if err != nil {
		return err
	}
	if _, err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	store, err := app.OpenStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	e.cfg = cfg
	e.store = store
	e.core = app.NewCore(cfg, store)
	return nil
}

func (e *env) close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}
