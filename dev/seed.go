package main

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"canadiantracker/internal/components/chrono"
	"canadiantracker/internal/db"
	"canadiantracker/internal/ingest"
	"canadiantracker/internal/migrate"
	"canadiantracker/internal/price"
	"canadiantracker/internal/store"
	"canadiantracker/lib/testutil"
)

type seedParams struct {
	products int
	days     int
	seed     int64
}

var (
	brands = []string{"Mastercraft", "Yeti", "Coleman", "NOMA", "Motomaster", "Canvas", "Frigidaire", "Vermont Castings"}
	things = []string{"Cordless Drill", "Cooler", "Tent", "Snow Blower", "Battery Charger", "Area Rug", "Air Fryer", "BBQ Cover"}
	sizes  = []string{"", "Small", "Large", "45L", "20V", "8-ft"}
)

// seed creates a database at `path` filled with made up products that were
// sampled once a day for `params.days` days.
func seed(ctx context.Context, path string, params seedParams) error {
	database, err := db.OpenDB(path)
	if err != nil {
		return err
	}
	defer database.Close()

	wall, err := chrono.NewStandardImpl()
	if err != nil {
		return err
	}
	start := time.Now().In(wall.Location()).AddDate(0, 0, -params.days)
	clock := chrono.NewFakeClock(start, time.Second)

	migrator, err := migrate.NewMigrator(database, migrate.WithClock(clock))
	if err != nil {
		return err
	}
	_, err = migrator.Upgrade(ctx)
	if err != nil {
		return err
	}

	s, err := store.Open(ctx, database, store.WithClock(clock))
	if err != nil {
		return err
	}
	defer s.Close(context.WithoutCancel(ctx))

	rndm := rand.New(rand.NewSource(params.seed))
	reconciler := ingest.NewReconciler(s, ingest.WithDiscardEqual(false))

	var skuPrices [][]int64
	var skuCodes []string
	var listing ingest.ListingStats
	for i := 0; i < params.products; i++ {
		productNumber := 1_000_000 + i*10
		entry := ingest.ListingEntry{
			ProductCode: fmt.Sprintf("%07dP", productNumber),
			Name: strings.TrimSpace(fmt.Sprintf(
				"%s %s %s",
				brands[rndm.Intn(len(brands))],
				things[rndm.Intn(len(things))],
				sizes[rndm.Intn(len(sizes))],
			)),
		}
		for j := 1; j <= 1+rndm.Intn(3); j++ {
			code := fmt.Sprintf("%07d", productNumber+j)
			entry.Skus = append(entry.Skus, ingest.SkuEntry{
				Code:          code,
				FormattedCode: fmt.Sprintf("%s-%s-%d", code[0:3], code[3:7], rndm.Intn(10)),
			})
			skuCodes = append(skuCodes, code)
			skuPrices = append(skuPrices, testutil.RandomPrices(rndm, params.days))
		}
		err = reconciler.AddListing(ctx, entry, &listing)
		if err != nil {
			return err
		}
	}

	var stats ingest.PriceStats
	for day := 0; day < params.days; day++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		for i, code := range skuCodes {
			value := price.PriceFromCents(skuPrices[i][day])
			err = reconciler.AddPriceObservation(ctx, ingest.PriceObservation{
				SkuCode: code,
				Price:   &value,
				InPromo: rndm.Intn(20) == 0,
			}, &stats)
			if err != nil {
				return err
			}
		}
		clock.Advance(24 * time.Hour)
	}

	fmt.Printf(
		"created %s with %d products, %d skus and %d samples\n",
		path, listing.Products, len(skuCodes), stats.Samples,
	)
	return nil
}
