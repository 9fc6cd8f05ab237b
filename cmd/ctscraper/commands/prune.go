package commands

import (
	"log/slog"

	"canadiantracker/internal/prune"
	"canadiantracker/lib/serviceutil"

	"github.com/spf13/cobra"
)

var noVacuum bool

func init() {
	pruneCmd.Flags().BoolVar(&noVacuum, "no-vacuum", false, "Do not vacuum the database after pruning.")
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(vacuumCmd)
}

var pruneCmd = &cobra.Command{
	Use:   "prune-samples",
	Short: "Delete the samples that do not change the price history.",
	Long: `Delete every sample that is neither the first sample of a price (the price
differs from the previous sample of the same sku) nor the latest sample of its
sku. The price history is the same before and after.

Pruning can be interrupted with Ctrl+C, what was pruned so far is kept and the
next run carries on.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		database, s := openStore(ctx)
		defer closeStore(ctx, database, s)

		pruner := prune.NewPruner(
			s,
			prune.WithFlushEvery(cfg.Prune.FlushEvery),
			prune.WithBatchSize(cfg.Prune.BatchSize),
			prune.WithVacuum(!noVacuum && !cfg.Prune.NoVacuum),
		)
		result, err := pruner.Run(ctx)
		if err != nil {
			serviceutil.Fatal("prune samples", err)
		}

		msg := "pruning done"
		if result.Interrupted {
			msg = "pruning interrupted"
		}
		slog.Info(msg, "visited", result.Visited, "deleted", result.Deleted)
	},
}

var vacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Reclaim the space left by deleted samples.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		database, s := openStore(ctx)
		defer closeStore(ctx, database, s)

		err := s.Vacuum(ctx)
		if err != nil {
			serviceutil.Fatal("vacuum", err)
		}
		slog.Info("vacuum done", "db", cfg.Database.String())
	},
}
