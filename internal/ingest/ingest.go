// Package ingest merges what is scraped from the retailer into a store.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"canadiantracker/internal/codes"
	"canadiantracker/internal/components/assert"
	"canadiantracker/internal/components/telemetry"
	"canadiantracker/internal/price"
	"canadiantracker/internal/store"

	"go.opentelemetry.io/otel"
)

const (
	report_ingest_product     = "ingest.product"
	report_ingest_sku         = "ingest.sku"
	report_ingest_price_batch = "ingest.price-batch"
	report_ingest_price       = "ingest.price"
	report_ingest_listed      = "ingest.listed-products"
	report_ingest_sampled     = "ingest.sampled-skus"

	DefaultPriceBatchSize = 50
)

// ErrNoSuchProduct is returned (wrapped) by sources for a product the retailer does not know.
var ErrNoSuchProduct = errors.New("no such product")

var meter = otel.Meter("canadiantracker/ingest")
var productsCounter, _ = meter.Int64Counter("ingest.products")
var samplesCounter, _ = meter.Int64Counter("ingest.samples")

type ListingStats struct {
	Products int64
	// skipped products
	InvalidProducts int64
	MissingProducts int64
	FailedProducts  int64

	SkusCreated    int64
	SkusReparented int64
	SkusUnchanged  int64
	InvalidSkus    int64
}

type PriceStats struct {
	Requested     int64
	Samples       int64
	NoPrice       int64
	UnknownSkus   int64
	InvalidPrices int64
	FailedBatches int64
}

type Reconciler struct {
	store          *store.Store
	discardEqual   bool
	priceBatchSize int
	tel            telemetry.API
}

type config struct {
	discardEqual   bool
	priceBatchSize int
	tel            telemetry.API
}

type Option func(cfg *config)

func WithTelemetryAPI(tel telemetry.API) Option {
	return func(cfg *config) {
		cfg.tel = tel
	}
}

// WithDiscardEqual makes price ingestion replace the latest sample of a sku
// when its price did not change.
func WithDiscardEqual(discardEqual bool) Option {
	return func(cfg *config) {
		cfg.discardEqual = discardEqual
	}
}

// WithPriceBatchSize sets the number of skus priced per request, it is
// capped by the source's MaxBatchSize.
func WithPriceBatchSize(n int) Option {
	return func(cfg *config) {
		cfg.priceBatchSize = n
	}
}

func NewReconciler(s *store.Store, options ...Option) Reconciler {
	assert.NotNil(s, "store")

	cfg := config{
		priceBatchSize: DefaultPriceBatchSize,
		tel:            telemetry.SlogAPI{},
	}
	for _, opt := range options {
		opt(&cfg)
	}
	assert.Positive(cfg.priceBatchSize, "priceBatchSize")

	return Reconciler{
		store:          s,
		discardEqual:   cfg.discardEqual,
		priceBatchSize: cfg.priceBatchSize,
		tel:            telemetry.NewScopedAPI("ingest", cfg.tel),
	}
}

// AddListing upserts the product of `entry`, then adds (or re-parents) each
// of its skus. Malformed codes are skipped and reported, other failures are
// returned.
func (r Reconciler) AddListing(ctx context.Context, entry ListingEntry, stats *ListingStats) error {
	_, err := r.store.AddProduct(ctx, store.AddProductParams{
		Code:          entry.ProductCode,
		Name:          entry.Name,
		IsInClearance: entry.IsInClearance,
		URL:           entry.URL,
	})
	if errors.Is(err, codes.ErrInvalidFormat) {
		stats.InvalidProducts++
		r.tel.ReportWarning(report_ingest_product, err)
		return nil
	}
	if err != nil {
		return err
	}
	stats.Products++
	productsCounter.Add(ctx, 1)

	for _, sku := range entry.Skus {
		formatted := sku.FormattedCode
		if formatted != "" {
			formatted, err = codes.NormalizeFormattedSkuCode(formatted)
			if err != nil {
				stats.InvalidSkus++
				r.tel.ReportWarning(report_ingest_sku, fmt.Errorf("product %s: %w", entry.ProductCode, err))
				continue
			}
		}
		err = codes.ValidateSkuCode(sku.Code)
		if err != nil {
			stats.InvalidSkus++
			r.tel.ReportWarning(report_ingest_sku, fmt.Errorf("product %s: %w", entry.ProductCode, err))
			continue
		}

		_, outcome, err := r.store.AddSku(ctx, store.AddSkuParams{
			ProductCode:   entry.ProductCode,
			Code:          sku.Code,
			FormattedCode: formatted,
		})
		if err != nil {
			return err
		}
		switch outcome {
		case store.SkuCreated:
			stats.SkusCreated++
		case store.SkuReparented:
			stats.SkusReparented++
		default:
			stats.SkusUnchanged++
		}
	}
	return nil
}

// IngestListings adds every product listed by `source`. Products whose skus
// cannot be fetched are still added, without skus.
func (r Reconciler) IngestListings(ctx context.Context, source ListingSource) (ListingStats, error) {
	var stats ListingStats
	err := source.ListProducts(ctx, func(entry ListingEntry) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if len(entry.Skus) == 0 {
			skus, err := source.ListSkus(ctx, entry.ProductCode)
			switch {
			case errors.Is(err, ErrNoSuchProduct):
				stats.MissingProducts++
				r.tel.ReportWarning(report_ingest_product, err)
				return nil
			case ctx.Err() != nil:
				return ctx.Err()
			case err != nil:
				stats.FailedProducts++
				r.tel.ReportWarning(report_ingest_product, fmt.Errorf("list skus of %s: %w", entry.ProductCode, err))
			default:
				entry.Skus = skus
			}
		}

		err := r.AddListing(ctx, entry, &stats)
		if err != nil {
			return err
		}
		if stats.Products%1000 == 0 {
			r.tel.ReportCount(report_ingest_listed, stats.Products)
		}
		return nil
	})
	r.tel.ReportCount(report_ingest_listed, stats.Products)
	return stats, err
}

// IngestPrices prices every sku of the store, `priceBatchSize` skus at a time.
// A batch the source fails to price is reported and skipped.
func (r Reconciler) IngestPrices(ctx context.Context, source PriceSource) (PriceStats, error) {
	batchSize := r.priceBatchSize
	if limit := source.MaxBatchSize(); limit > 0 && batchSize > limit {
		batchSize = limit
	}

	var stats PriceStats
	cursor := r.store.Skus(batchSize)
	for {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		page, err := cursor.Next(ctx)
		if err != nil {
			return stats, err
		}
		if len(page) == 0 {
			break
		}

		skuCodes := make([]string, len(page))
		for i, sku := range page {
			skuCodes[i] = sku.Code
		}
		err = r.ingestPriceBatch(ctx, source, skuCodes, &stats)
		if err != nil {
			return stats, err
		}
		r.tel.ReportCount(report_ingest_sampled, stats.Requested)
	}
	return stats, nil
}

func (r Reconciler) ingestPriceBatch(ctx context.Context, source PriceSource, skuCodes []string, stats *PriceStats) error {
	stats.Requested += int64(len(skuCodes))

	observations, err := source.GetPrices(ctx, skuCodes)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stats.FailedBatches++
		r.tel.ReportWarning(
			report_ingest_price_batch,
			fmt.Errorf("%d skus starting at %s: %w", len(skuCodes), skuCodes[0], err),
		)
		return nil
	}

	for _, observation := range observations {
		err = r.AddPriceObservation(ctx, observation, stats)
		if err != nil {
			return err
		}
	}
	return nil
}

// AddPriceObservation records one price. Observations without a price, for
// an unknown sku or with a sub-cent price are skipped and reported.
func (r Reconciler) AddPriceObservation(ctx context.Context, observation PriceObservation, stats *PriceStats) error {
	if observation.Price == nil {
		stats.NoPrice++
		r.tel.ReportDebug(report_ingest_price, observation.SkuCode, "no price")
		return nil
	}

	_, err := r.store.AddPriceSample(ctx, store.AddPriceSampleParams{
		SkuCode:      observation.SkuCode,
		Price:        *observation.Price,
		InPromo:      observation.InPromo,
		RawPayload:   observation.RawPayload,
		DiscardEqual: r.discardEqual,
	})
	switch {
	case errors.Is(err, store.ErrUnknownSku):
		stats.UnknownSkus++
		r.tel.ReportWarning(report_ingest_price, err)
		return nil
	case errors.Is(err, price.ErrSubCent):
		stats.InvalidPrices++
		r.tel.ReportWarning(report_ingest_price, fmt.Errorf("sku %s: %w", observation.SkuCode, err))
		return nil
	case err != nil:
		return err
	}
	stats.Samples++
	samplesCounter.Add(ctx, 1)
	return nil
}
