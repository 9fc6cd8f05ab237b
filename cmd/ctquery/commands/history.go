package commands

import (
	"errors"
	"fmt"
	"os"

	"canadiantracker/internal/query"
	"canadiantracker/internal/store"
	"canadiantracker/lib/serviceutil"

	"github.com/spf13/cobra"
)

var historyFormat string

func init() {
	priceHistoryCmd.Flags().StringVar(&historyFormat, "format", "json", "Output format, json or table.")
	rootCmd.AddCommand(priceHistoryCmd)
}

var priceHistoryCmd = &cobra.Command{
	Use:   "price-history <product code>",
	Short: "Print the price history of a product.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if historyFormat != "json" && historyFormat != "table" {
			serviceutil.Fatal("invalid flag", fmt.Errorf("unknown format `%s`", historyFormat))
		}

		ctx := cmd.Context()
		database, s := openStore(ctx)
		defer database.Close()

		product, err := query.FindProduct(ctx, s, args[0])
		if errors.Is(err, store.ErrUnknownProduct) {
			fmt.Fprintf(os.Stderr, "Error: no product with code %s\n", args[0])
			os.Exit(1)
		}
		if err != nil {
			serviceutil.Fatal("find product", err)
		}

		if historyFormat == "table" {
			err = query.RenderHistory(ctx, os.Stdout, s, product)
		} else {
			err = query.WriteHistoryJSON(ctx, os.Stdout, s, product.ID)
		}
		if err != nil {
			serviceutil.Fatal("price history", err)
		}
	},
}
