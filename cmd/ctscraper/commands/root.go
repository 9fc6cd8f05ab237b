package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"canadiantracker/internal/config"
	"canadiantracker/internal/store"
	"canadiantracker/lib/serviceutil"
	"canadiantracker/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	debug  bool
	dbPath string
	cfg    config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ctscraper",
	Short: "ctscraper tracks the inventory and prices of a canadian retailer.",
	Long: `ctscraper tracks the inventory and prices of a canadian retailer using the
internal API that powers its website. It does so in two steps:

  - scrape-inventory: list the products and their skus
  - scrape-prices: sample the current price of every known sku

prune-samples and vacuum keep the database small, migrate upgrades databases
made by older versions.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(debug)
		err := telemetry.SetupFromEnv(cmd.Context(), "ctscraper")
		if err != nil {
			slog.Warn("failed to setup telemetry", "err", err)
		}

		cfg, err = config.Load()
		if err != nil {
			serviceutil.Fatal("read config", err)
		}
		if dbPath != "" {
			cfg.Database.File = dbPath
			cfg.Database.Url = ""
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		err := telemetry.Shutdown(context.WithoutCancel(cmd.Context()))
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Set logging level to DEBUG.")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "Path to the sqlite database (overrides the config file).")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context) (*sql.DB, *store.Store) {
	database, s, err := cfg.OpenStore(ctx)
	if errors.Is(err, store.ErrWrongSchemaVersion) {
		slog.Error("make sure the database is at the latest version with `ctscraper migrate`", "db", cfg.Database.String())
	}
	if err != nil {
		serviceutil.Fatal("open store", err)
	}
	return database, s
}

// closeStore commits what is pending even if `ctx` was cancelled.
func closeStore(ctx context.Context, database *sql.DB, s *store.Store) {
	err := s.Close(context.WithoutCancel(ctx))
	if err != nil {
		slog.Error("failed to commit pending writes", "err", err)
	}
	database.Close()
}
