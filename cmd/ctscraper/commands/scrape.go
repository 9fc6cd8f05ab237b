package commands

import (
	"context"
	"errors"
	"log/slog"

	"canadiantracker/internal/ingest"
	"canadiantracker/internal/scrapers/triangle"
	"canadiantracker/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	categoryLevels []int
	maxPages       int
	discardEqual   bool
)

func init() {
	scrapeInventoryCmd.Flags().IntSliceVar(&categoryLevels, "category-level", nil, "Category level to list products of, can be repeated (default: one level picked from the day of the month).")
	scrapeInventoryCmd.Flags().IntVar(&maxPages, "max-pages", 0, "Stop listing a category after this many pages (0: no limit).")
	scrapePricesCmd.Flags().BoolVar(&discardEqual, "discard-equal", false, "Replace the latest sample of a sku when its price did not change.")

	rootCmd.AddCommand(scrapeInventoryCmd)
	rootCmd.AddCommand(scrapePricesCmd)
}

func newClient() *triangle.Client {
	client, err := triangle.NewClient(
		cfg.Triangle,
		triangle.WithCategoryLevels(categoryLevels...),
		triangle.WithMaxPages(maxPages),
	)
	if err != nil {
		serviceutil.Fatal("create triangle client", err)
	}
	return client
}

// finished logs how a scrape ended, an interrupted scrape keeps what it
// already ingested.
func finished(err error, msg string, args ...any) {
	if errors.Is(err, context.Canceled) {
		slog.Warn("interrupted, what was scraped so far is saved", args...)
		return
	}
	if err != nil {
		serviceutil.Fatal(msg, err)
	}
	slog.Info(msg+" done", args...)
}

var scrapeInventoryCmd = &cobra.Command{
	Use:   "scrape-inventory [--category-level N]...",
	Short: "List the products of the retailer and their skus.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		database, s := openStore(ctx)
		client := newClient()

		reconciler := ingest.NewReconciler(s)
		stats, err := reconciler.IngestListings(ctx, client)
		closeStore(ctx, database, s)

		finished(
			err, "scrape inventory",
			"products", stats.Products,
			"invalid_products", stats.InvalidProducts,
			"missing_products", stats.MissingProducts,
			"failed_products", stats.FailedProducts,
			"skus_created", stats.SkusCreated,
			"skus_reparented", stats.SkusReparented,
			"skus_unchanged", stats.SkusUnchanged,
			"invalid_skus", stats.InvalidSkus,
		)
	},
}

var scrapePricesCmd = &cobra.Command{
	Use:   "scrape-prices [--discard-equal]",
	Short: "Sample the current price of every known sku.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		database, s := openStore(ctx)
		client := newClient()

		reconciler := ingest.NewReconciler(
			s,
			ingest.WithDiscardEqual(discardEqual),
			ingest.WithPriceBatchSize(cfg.Triangle.PriceBatchSize),
		)
		stats, err := reconciler.IngestPrices(ctx, client)
		closeStore(ctx, database, s)

		finished(
			err, "scrape prices",
			"requested", stats.Requested,
			"samples", stats.Samples,
			"no_price", stats.NoPrice,
			"unknown_skus", stats.UnknownSkus,
			"invalid_prices", stats.InvalidPrices,
			"failed_batches", stats.FailedBatches,
		)
	},
}
