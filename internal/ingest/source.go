package ingest

import (
	"context"

	"github.com/shopspring/decimal"
)

type SkuEntry struct {
	Code          string
	FormattedCode string
}

// ListingEntry is a product as it shows up in the retailer's catalog.
type ListingEntry struct {
	ProductCode   string
	Name          string
	IsInClearance *bool
	URL           string
	Skus          []SkuEntry
}

// PriceObservation is the current price of a sku. Price is nil when the
// retailer does not give one (ex. "call for price").
type PriceObservation struct {
	SkuCode    string
	Price      *decimal.Decimal
	InPromo    bool
	RawPayload string
}

// ListingSource walks the retailer's catalog.
type ListingSource interface {
	// ListProducts calls fn for every listed product. SKUs of an entry may be
	// left empty, they are then fetched with ListSkus.
	ListProducts(ctx context.Context, fn func(ListingEntry) error) error
	// ListSkus returns the skus of a product, it returns an error wrapping
	// ErrNoSuchProduct if the retailer does not know the product.
	ListSkus(ctx context.Context, productCode string) ([]SkuEntry, error)
}

// PriceSource fetches current prices.
type PriceSource interface {
	// MaxBatchSize is the largest number of sku codes GetPrices accepts.
	MaxBatchSize() int
	// GetPrices returns the prices of the given skus, skus the retailer
	// could not price are left out.
	GetPrices(ctx context.Context, skuCodes []string) ([]PriceObservation, error)
}
