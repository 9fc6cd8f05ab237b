package commands

import (
	"os"
	"time"

	"canadiantracker/internal/query"
	"canadiantracker/internal/store"
	"canadiantracker/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	staleDays    int
	productsJSON bool
	searchLimit  int
)

func init() {
	productsCmd.Flags().IntVar(&staleDays, "stale-days", 0, "Only list the products that were not listed by an inventory scrape in this many days.")
	productsCmd.Flags().BoolVar(&productsJSON, "json", false, "Print the products as JSON.")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum number of results (0: no limit).")

	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(searchCmd)
}

var productsCmd = &cobra.Command{
	Use:   "products [--stale-days N]",
	Short: "List the known products.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		database, s := openStore(ctx)
		defer database.Close()

		cursor := s.Products(store.DefaultBatchSize)
		if staleDays > 0 {
			cursor = s.StaleProducts(time.Now().AddDate(0, 0, -staleDays), store.DefaultBatchSize)
		}

		var err error
		if productsJSON {
			err = query.WriteProductsJSON(ctx, os.Stdout, cursor)
		} else {
			_, err = query.RenderProducts(ctx, os.Stdout, cursor)
		}
		if err != nil {
			serviceutil.Fatal("list products", err)
		}
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search products by name.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		database, s := openStore(ctx)
		defer database.Close()

		term := args[0]
		for _, arg := range args[1:] {
			term += " " + arg
		}
		matches, err := query.Search(ctx, s, term, searchLimit)
		if err != nil {
			serviceutil.Fatal("search", err)
		}
		query.RenderMatches(os.Stdout, matches)
	},
}
