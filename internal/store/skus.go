package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"canadiantracker/internal/db"
)

// SkuOutcome tells what AddSku did.
type SkuOutcome int

const (
	SkuUnchanged SkuOutcome = iota
	SkuCreated
	// SkuReparented means the sku existed under another product and now
	// belongs to the given one.
	SkuReparented
)

func (o SkuOutcome) String() string {
	switch o {
	case SkuCreated:
		return "created"
	case SkuReparented:
		return "reparented"
	default:
		return "unchanged"
	}
}

type AddSkuParams struct {
	ProductCode   string
	Code          string
	FormattedCode string
}

// AddSku makes sure a sku with the given code exists under the given product.
//
// The retailer periodically moves skus to a different product (typically
// when a product is renamed), when that happens the existing sku is
// re-parented rather than duplicated.
func (s *Store) AddSku(ctx context.Context, params AddSkuParams) (Sku, SkuOutcome, error) {
	product, found, err := s.GetProductByCode(ctx, params.ProductCode)
	if err != nil {
		return Sku{}, SkuUnchanged, err
	}
	if !found {
		return Sku{}, SkuUnchanged, fmt.Errorf("%w: %s", ErrUnknownProduct, params.ProductCode)
	}

	q, err := s.writer(ctx)
	if err != nil {
		return Sku{}, SkuUnchanged, err
	}

	existing, err := q.GetSkuByCode(ctx, params.Code)
	if errors.Is(err, sql.ErrNoRows) {
		id, err := q.CreateSku(ctx, db.CreateSkuParams{
			Code:          params.Code,
			FormattedCode: nullString(params.FormattedCode),
			ProductID:     product.ID,
		})
		if err != nil {
			return Sku{}, SkuUnchanged, fmt.Errorf("create sku %s: %w", params.Code, err)
		}
		s.tel.ReportDebug("sku added", params.Code, params.ProductCode)
		sku := Sku{
			ID:            id,
			Code:          params.Code,
			FormattedCode: params.FormattedCode,
			ProductID:     product.ID,
		}
		return sku, SkuCreated, s.wrote(ctx)
	}
	if err != nil {
		return Sku{}, SkuUnchanged, fmt.Errorf("get sku %s: %w", params.Code, err)
	}

	sku := skuFromRow(existing)
	if existing.ProductID == product.ID {
		return sku, SkuUnchanged, nil
	}

	previous, err := q.GetProductByID(ctx, existing.ProductID)
	if err != nil {
		return Sku{}, SkuUnchanged, fmt.Errorf("get previous product of sku %s: %w", params.Code, err)
	}
	err = q.SetSkuProduct(ctx, db.SetSkuProductParams{
		ProductID: product.ID,
		ID:        existing.ID,
	})
	if err != nil {
		return Sku{}, SkuUnchanged, fmt.Errorf("re-parent sku %s: %w", params.Code, err)
	}
	s.tel.ReportInfo(
		report_sku_reparent,
		fmt.Sprintf("sku %s moved to a different product", params.Code),
		fmt.Sprintf("previous: %s (%s)", previous.Name, previous.Code),
		fmt.Sprintf("new: %s (%s)", product.Name, product.Code),
	)

	sku.ProductID = product.ID
	return sku, SkuReparented, s.wrote(ctx)
}

// GetSkuByCode returns the sku with the given internal code, `found` is false if there is none.
func (s *Store) GetSkuByCode(ctx context.Context, code string) (sku Sku, found bool, err error) {
	row, err := s.reader().GetSkuByCode(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return Sku{}, false, nil
	}
	if err != nil {
		return Sku{}, false, fmt.Errorf("get sku %s: %w", code, err)
	}
	return skuFromRow(row), true, nil
}

// GetSkuByFormattedCode returns the sku with the given formatted code (123-4567-8),
// `found` is false if there is none.
func (s *Store) GetSkuByFormattedCode(ctx context.Context, formattedCode string) (sku Sku, found bool, err error) {
	if formattedCode == "" {
		return Sku{}, false, nil
	}
	row, err := s.reader().GetSkuByFormattedCode(ctx, nullString(formattedCode))
	if errors.Is(err, sql.ErrNoRows) {
		return Sku{}, false, nil
	}
	if err != nil {
		return Sku{}, false, fmt.Errorf("get sku %s: %w", formattedCode, err)
	}
	return skuFromRow(row), true, nil
}

func (s *Store) SkusOfProduct(ctx context.Context, productID int64) ([]Sku, error) {
	rows, err := s.reader().ListSkusOfProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list skus of product #%d: %w", productID, err)
	}
	out := make([]Sku, len(rows))
	for i, r := range rows {
		out[i] = skuFromRow(r)
	}
	return out, nil
}

// Skus walks all skus, ordered by id.
func (s *Store) Skus(batchSize int) *Cursor[Sku] {
	var after int64
	return newCursor(batchSize, func(ctx context.Context, limit int64) ([]Sku, error) {
		rows, err := s.reader().ListSkusAfter(ctx, db.ListSkusAfterParams{
			AfterID: after,
			Limit:   limit,
		})
		if err != nil {
			return nil, fmt.Errorf("list skus: %w", err)
		}
		out := make([]Sku, len(rows))
		for i, r := range rows {
			out[i] = skuFromRow(r)
		}
		if len(rows) > 0 {
			after = rows[len(rows)-1].ID
		}
		return out, nil
	})
}
