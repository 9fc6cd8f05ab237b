package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"canadiantracker/internal/codes"
	"canadiantracker/internal/db"
	"canadiantracker/internal/price"

	"github.com/shopspring/decimal"
)

const (
	report_legacy_duplicate_sku = "legacy.duplicate-sku"
	report_legacy_no_skus       = "legacy.no-skus"
	report_legacy_sample_skip   = "legacy.sample-skip"
	report_legacy_recovered_sku = "legacy.recovered-sku"
	report_legacy_progress      = "legacy.progress"
)

// legacy timestamps are naive wall clock times in the retailer's timezone
var legacyTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

type transplant struct {
	Migrator
	tx     *sql.Tx
	qry    *db.Queries
	result Result
	// internal sku code -> skus.id
	skuIDs map[string]int64
	// product code -> products.id
	productIDs map[string]int64
}

func (m Migrator) migrateLegacy(ctx context.Context) (Result, error) {
	qry, tx, discard, commit, err := m.makeTx(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("begin migration: %w", err)
	}
	defer discard()

	t := &transplant{
		Migrator:   m,
		tx:         tx,
		qry:        qry,
		result:     Result{Outcome: Migrated},
		skuIDs:     map[string]int64{},
		productIDs: map[string]int64{},
	}

	for _, column := range []string{"sku", "url"} {
		exists, err := legacyHasColumn(ctx, tx, "products_static", column)
		if err != nil {
			return Result{}, fmt.Errorf("inspect products_static: %w", err)
		}
		if !exists {
			return Result{}, fmt.Errorf("%w: products_static has no `%s` column", ErrUnknownLayout, column)
		}
	}

	_, err = tx.ExecContext(ctx, db.Schema)
	if err != nil {
		return Result{}, fmt.Errorf("create schema: %w", err)
	}

	err = t.products(ctx)
	if err != nil {
		return Result{}, err
	}
	err = t.samples(ctx)
	if err != nil {
		return Result{}, err
	}

	// products_dynamic references products_static, it must go first
	_, err = tx.ExecContext(ctx, dropLegacyTables)
	if err != nil {
		return Result{}, fmt.Errorf("drop legacy tables: %w", err)
	}
	err = qry.DeleteSchemaVersion(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("stamp schema version: %w", err)
	}
	err = qry.InsertSchemaVersion(ctx, db.SchemaVersion)
	if err != nil {
		return Result{}, fmt.Errorf("stamp schema version: %w", err)
	}

	err = commit()
	if err != nil {
		return Result{}, fmt.Errorf("commit migration: %w", err)
	}
	return t.result, nil
}

// products copies every product (keeping its id) and creates one sku per
// distinct internal code found in the sku lists. The first product listing
// a sku owns it, later listings of the same sku are dropped.
func (t *transplant) products(ctx context.Context) error {
	var after int64
	for {
		page, err := listLegacyProductsAfter(ctx, t.tx, after, t.batchSize)
		if err != nil {
			return fmt.Errorf("read products_static: %w", err)
		}
		if len(page) == 0 {
			return nil
		}
		after = page[len(page)-1].Index

		for _, p := range page {
			lastListed, err := t.legacyTime(p.LastListed)
			if err != nil {
				return fmt.Errorf("product %s: last_listed: %w", p.Code, err)
			}
			err = insertProductWithID(ctx, t.tx, p, lastListed)
			if err != nil {
				return fmt.Errorf("insert product %s: %w", p.Code, err)
			}
			t.productIDs[p.Code] = p.Index
			t.result.Products++

			if !p.SkuCodes.Valid || p.SkuCodes.String == "" {
				t.result.ProductsNoSkus++
				t.tel.ReportDebug(report_legacy_no_skus, p.Code)
				continue
			}

			for _, raw := range strings.Split(p.SkuCodes.String, "|") {
				// an unrecognized format means the upstream format changed,
				// this aborts the whole migration
				formatted, err := codes.NormalizeFormattedSkuCode(raw)
				if err != nil {
					return fmt.Errorf("product %s: %w", p.Code, err)
				}
				code, err := codes.SkuCodeFromFormatted(formatted)
				if err != nil {
					return fmt.Errorf("product %s: %w", p.Code, err)
				}

				if owner, ok := t.skuIDs[code]; ok {
					t.result.DuplicateSkus++
					t.tel.ReportWarning(
						report_legacy_duplicate_sku,
						fmt.Sprintf("sku %s (%s) is already owned by sku row #%d, ignoring it for product %s", code, formatted, owner, p.Code),
						fmt.Sprintf("product: index=%d name=%q sku list=%q", p.Index, p.Name, p.SkuCodes.String),
					)
					continue
				}

				id, err := t.qry.CreateSku(ctx, db.CreateSkuParams{
					Code:          code,
					FormattedCode: sql.NullString{String: formatted, Valid: true},
					ProductID:     p.Index,
				})
				if err != nil {
					return fmt.Errorf("insert sku %s: %w", code, err)
				}
				t.skuIDs[code] = id
				t.result.Skus++
			}
		}
	}
}

// samples moves every legacy sample that can be attached to a sku.
func (t *transplant) samples(ctx context.Context) error {
	total, err := countLegacy(ctx, t.tx)
	if err != nil {
		return fmt.Errorf("count products_dynamic: %w", err)
	}

	var after int64
	var visited int64
	for {
		page, err := listLegacySamplesAfter(ctx, t.tx, after, t.batchSize)
		if err != nil {
			return fmt.Errorf("read products_dynamic: %w", err)
		}
		if len(page) == 0 {
			return nil
		}
		after = page[len(page)-1].Index

		for _, s := range page {
			err = t.sample(ctx, s)
			if err != nil {
				return err
			}
		}
		visited += int64(len(page))
		t.tel.ReportDebug(report_legacy_progress, fmt.Sprintf("%d/%d", visited, total))
	}
}

func (t *transplant) skip(counter *int64, s legacySample, reason string) {
	*counter++
	t.tel.ReportWarning(
		report_legacy_sample_skip,
		fmt.Sprintf("dropping sample #%d of %s: %s", s.Index, s.Code, reason),
	)
}

func (t *transplant) sample(ctx context.Context, s legacySample) error {
	if !s.RawPayload.Valid {
		t.skip(&t.result.SamplesNoSku, s, "no raw payload")
		return nil
	}
	payload, err := parseLegacyPayload(s.RawPayload.String)
	if err != nil {
		t.skip(&t.result.SamplesBadData, s, err.Error())
		return nil
	}
	if !payload.HasSku {
		t.skip(&t.result.SamplesNoSku, s, "no sku in payload")
		return nil
	}
	// "price from" samples carry the lowest price of a range, not a real price
	if payload.PriceFrom == "Y" {
		t.result.SamplesFrom++
		t.tel.ReportDebug(report_legacy_sample_skip, s.Index, "price from")
		return nil
	}

	skuID, err := t.resolveSku(ctx, payload.Sku)
	if err != nil {
		return err
	}
	if skuID == 0 {
		t.skip(&t.result.SamplesOrphan, s, fmt.Sprintf("no sku nor product for sku code %s", payload.Sku))
		return nil
	}

	value, err := legacyPrice(s.Price)
	if err != nil {
		t.skip(&t.result.SamplesBadPrice, s, err.Error())
		return nil
	}
	cents, err := price.CentsFromPrice(value)
	if err != nil {
		t.skip(&t.result.SamplesBadPrice, s, err.Error())
		return nil
	}

	sampleTime, err := t.legacyTime(s.SampleTime)
	if err != nil {
		t.skip(&t.result.SamplesBadData, s, err.Error())
		return nil
	}
	if !sampleTime.Valid {
		t.skip(&t.result.SamplesBadData, s, "no sample time")
		return nil
	}

	_, err = t.qry.CreateSample(ctx, db.CreateSampleParams{
		SampleTime: sampleTime.Int64,
		SkuID:      skuID,
		PriceCents: cents,
		InPromo:    s.InPromo,
		RawPayload: s.RawPayload,
	})
	if err != nil {
		return fmt.Errorf("insert sample #%d: %w", s.Index, err)
	}
	t.result.Samples++
	return nil
}

// resolveSku returns the id of the sku with the given internal code. Skus
// that were never listed by their product are recovered from the product
// with the matching code, 0 is returned if there is no such product either.
func (t *transplant) resolveSku(ctx context.Context, code string) (int64, error) {
	if id, ok := t.skuIDs[code]; ok {
		return id, nil
	}

	productID, ok := t.productIDs[codes.ProductCodeFromSkuCode(code)]
	if !ok {
		return 0, nil
	}
	id, err := t.qry.CreateSku(ctx, db.CreateSkuParams{
		Code:      code,
		ProductID: productID,
	})
	if err != nil {
		return 0, fmt.Errorf("insert recovered sku %s: %w", code, err)
	}
	t.skuIDs[code] = id
	t.result.Skus++
	t.result.RecoveredSkus++
	t.tel.ReportDebug(report_legacy_recovered_sku, code, productID)
	return id, nil
}

// legacyPrice reads a NUMERIC column, which sqlite may hand back as a float,
// an integer or text.
func legacyPrice(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case float64:
		// NewFromFloat picks the shortest decimal that round trips, 12.99 stays 12.99
		return decimal.NewFromFloat(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case string:
		return price.Parse(v)
	case []byte:
		return price.Parse(string(v))
	case nil:
		return decimal.Decimal{}, errors.New("no price")
	default:
		return decimal.Decimal{}, fmt.Errorf("unexpected price type %T", value)
	}
}

// legacyTime converts a naive legacy timestamp to unix microseconds.
func (t *transplant) legacyTime(value any) (sql.NullInt64, error) {
	var wall time.Time
	switch v := value.(type) {
	case nil:
		return sql.NullInt64{}, nil
	case time.Time:
		wall = v
	case string:
		parsed, err := parseLegacyTime(v)
		if err != nil {
			return sql.NullInt64{}, err
		}
		wall = parsed
	case []byte:
		parsed, err := parseLegacyTime(string(v))
		if err != nil {
			return sql.NullInt64{}, err
		}
		wall = parsed
	default:
		return sql.NullInt64{}, fmt.Errorf("unexpected timestamp type %T", value)
	}

	local := time.Date(
		wall.Year(), wall.Month(), wall.Day(),
		wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(),
		t.clock.Location(),
	)
	return sql.NullInt64{Int64: local.UnixMicro(), Valid: true}, nil
}

func parseLegacyTime(value string) (time.Time, error) {
	for _, layout := range legacyTimeLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp `%s`", value)
}
