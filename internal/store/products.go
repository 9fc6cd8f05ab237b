package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"canadiantracker/internal/codes"
	"canadiantracker/internal/db"
)

type AddProductParams struct {
	Code          string
	Name          string
	IsInClearance *bool
	URL           string
}

// AddProduct inserts the product or, if a product with that code exists,
// refreshes it: the name, url and clearance status always take the given
// values, and last listed is set to now in both cases.
func (s *Store) AddProduct(ctx context.Context, params AddProductParams) (Product, error) {
	err := codes.ValidateProductCode(params.Code)
	if err != nil {
		return Product{}, err
	}

	q, err := s.writer(ctx)
	if err != nil {
		return Product{}, err
	}
	now := s.clock.Now()
	lastListed := sql.NullInt64{Int64: toMicros(now), Valid: true}

	existing, err := q.GetProductByCode(ctx, params.Code)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id, err := q.CreateProduct(ctx, db.CreateProductParams{
			Code:          params.Code,
			Name:          params.Name,
			IsInClearance: nullBool(params.IsInClearance),
			LastListed:    lastListed,
			Url:           nullString(params.URL),
		})
		if err != nil {
			return Product{}, fmt.Errorf("create product %s: %w", params.Code, err)
		}
		s.tel.ReportDebug("product added", params.Code)
		existing = db.Product{ID: id, Code: params.Code}
	case err != nil:
		return Product{}, fmt.Errorf("get product %s: %w", params.Code, err)
	default:
		err = q.UpdateProductListing(ctx, db.UpdateProductListingParams{
			Name:          params.Name,
			IsInClearance: nullBool(params.IsInClearance),
			Url:           nullString(params.URL),
			LastListed:    lastListed,
			ID:            existing.ID,
		})
		if err != nil {
			return Product{}, fmt.Errorf("update product %s: %w", params.Code, err)
		}
		s.tel.ReportDebug("product refreshed", params.Code)
	}

	product := Product{
		ID:            existing.ID,
		Code:          params.Code,
		Name:          params.Name,
		IsInClearance: params.IsInClearance,
		LastListed:    s.fromMicros(lastListed.Int64),
		URL:           params.URL,
	}
	return product, s.wrote(ctx)
}

// GetProductByCode returns the product with the given code, `found` is false
// if there is none. A malformed code is an error wrapping codes.ErrInvalidFormat.
func (s *Store) GetProductByCode(ctx context.Context, code string) (product Product, found bool, err error) {
	err = codes.ValidateProductCode(code)
	if err != nil {
		return Product{}, false, err
	}
	row, err := s.reader().GetProductByCode(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, fmt.Errorf("get product %s: %w", code, err)
	}
	return s.productFromRow(row), true, nil
}

func (s *Store) GetProductByID(ctx context.Context, id int64) (product Product, found bool, err error) {
	row, err := s.reader().GetProductByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, fmt.Errorf("get product #%d: %w", id, err)
	}
	return s.productFromRow(row), true, nil
}

func (s *Store) CountProducts(ctx context.Context) (int64, error) {
	return s.reader().CountProducts(ctx)
}

// Products walks all products, ordered by id.
func (s *Store) Products(batchSize int) *Cursor[Product] {
	var after int64
	return newCursor(batchSize, func(ctx context.Context, limit int64) ([]Product, error) {
		rows, err := s.reader().ListProductsAfter(ctx, db.ListProductsAfterParams{
			AfterID: after,
			Limit:   limit,
		})
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		out := make([]Product, len(rows))
		for i, r := range rows {
			out[i] = s.productFromRow(r)
		}
		if len(rows) > 0 {
			after = rows[len(rows)-1].ID
		}
		return out, nil
	})
}

// StaleProducts walks the products that were not listed since `before`.
// Staleness is advisory, nothing is ever deleted because of it.
func (s *Store) StaleProducts(before time.Time, batchSize int) *Cursor[Product] {
	var after int64
	return newCursor(batchSize, func(ctx context.Context, limit int64) ([]Product, error) {
		rows, err := s.reader().ListStaleProductsAfter(ctx, db.ListStaleProductsAfterParams{
			AfterID: after,
			Before:  toMicros(before),
			Limit:   limit,
		})
		if err != nil {
			return nil, fmt.Errorf("list stale products: %w", err)
		}
		out := make([]Product, len(rows))
		for i, r := range rows {
			out[i] = s.productFromRow(r)
		}
		if len(rows) > 0 {
			after = rows[len(rows)-1].ID
		}
		return out, nil
	})
}
