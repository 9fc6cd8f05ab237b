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
	Use:   "ctquery",
	Short: "ctquery shows what ctscraper collected.",
	Long: `ctquery shows what ctscraper collected:

  - price-history: the price history of a product
  - products: the known products, optionally only the stale ones
  - search: products by name`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(debug)

		var err error
		cfg, err = config.Load()
		if err != nil {
			serviceutil.Fatal("read config", err)
		}
		if dbPath != "" {
			cfg.Database.File = dbPath
			cfg.Database.Url = ""
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
