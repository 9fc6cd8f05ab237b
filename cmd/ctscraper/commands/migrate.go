package commands

import (
	"log/slog"

	"canadiantracker/internal/migrate"
	"canadiantracker/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database or upgrade it to the latest version.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		database, err := cfg.Database.OpenDB()
		if err != nil {
			serviceutil.Fatal("open database", err)
		}
		defer database.Close()

		migrator, err := migrate.NewMigrator(database)
		if err != nil {
			serviceutil.Fatal("create migrator", err)
		}
		result, err := migrator.Upgrade(ctx)
		if err != nil {
			serviceutil.Fatal("migrate", err)
		}

		slog.Info(
			"database is up to date",
			"db", cfg.Database.String(),
			"outcome", result.Outcome.String(),
			"products", result.Products,
			"skus", result.Skus,
			"samples", result.Samples,
			"recovered_skus", result.RecoveredSkus,
			"duplicate_skus", result.DuplicateSkus,
			"products_without_skus", result.ProductsNoSkus,
			"samples_without_sku", result.SamplesNoSku,
			"samples_from_price", result.SamplesFrom,
			"samples_orphan", result.SamplesOrphan,
			"samples_bad_price", result.SamplesBadPrice,
			"samples_bad_data", result.SamplesBadData,
		)
	},
}
