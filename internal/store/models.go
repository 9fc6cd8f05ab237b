package store

import (
	"database/sql"
	"time"

	"canadiantracker/internal/db"
	"canadiantracker/internal/price"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID   int64
	Code string
	Name string
	// IsInClearance is nil when the retailer did not say.
	IsInClearance *bool
	// LastListed is the zero time if the product was never seen in an inventory crawl.
	LastListed time.Time
	URL        string
}

type Sku struct {
	ID   int64
	Code string
	// FormattedCode is empty for skus that were recovered from old samples.
	FormattedCode string
	ProductID     int64
}

type Sample struct {
	ID         int64
	SkuID      int64
	Time       time.Time
	PriceCents int64
	InPromo    bool
	RawPayload string
}

func (s Sample) Price() decimal.Decimal {
	return price.PriceFromCents(s.PriceCents)
}

// HistoryEntry is a sample of one of the skus of a product.
type HistoryEntry struct {
	Sample
	SkuCode string
}

func toMicros(t time.Time) int64 {
	return t.UnixMicro()
}

func (s *Store) fromMicros(us int64) time.Time {
	return time.UnixMicro(us).In(s.clock.Location())
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *Store) productFromRow(row db.Product) Product {
	p := Product{
		ID:   row.ID,
		Code: row.Code,
		Name: row.Name,
		URL:  row.Url.String,
	}
	if row.IsInClearance.Valid {
		clearance := row.IsInClearance.Bool
		p.IsInClearance = &clearance
	}
	if row.LastListed.Valid {
		p.LastListed = s.fromMicros(row.LastListed.Int64)
	}
	return p
}

func skuFromRow(row db.Sku) Sku {
	return Sku{
		ID:            row.ID,
		Code:          row.Code,
		FormattedCode: row.FormattedCode.String,
		ProductID:     row.ProductID,
	}
}

func (s *Store) sampleFromRow(row db.Sample) Sample {
	return Sample{
		ID:         row.ID,
		SkuID:      row.SkuID,
		Time:       s.fromMicros(row.SampleTime),
		PriceCents: row.PriceCents,
		InPromo:    row.InPromo,
		RawPayload: row.RawPayload.String,
	}
}
