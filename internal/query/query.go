// Package query renders what the store knows about products, for humans
// (tables) and for programs (JSON streamed one element at a time).
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"canadiantracker/internal/price"
	"canadiantracker/internal/store"
)

// FindProduct looks up a product by code, the retailer presents codes with
// various capitalizations so `code` is upper-cased first.
func FindProduct(ctx context.Context, s *store.Store, code string) (store.Product, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	product, found, err := s.GetProductByCode(ctx, code)
	if err != nil {
		return store.Product{}, err
	}
	if !found {
		return store.Product{}, fmt.Errorf("%w: %s", store.ErrUnknownProduct, code)
	}
	return product, nil
}

// writeJSONArray writes every element of `cursor` as a JSON array without
// ever holding more than a page of it.
func writeJSONArray[T any](ctx context.Context, w io.Writer, cursor *store.Cursor[T], convert func(T) any) error {
	_, err := io.WriteString(w, "[")
	if err != nil {
		return err
	}

	first := true
	err = cursor.ForEach(ctx, func(item T) error {
		if !first {
			_, err := io.WriteString(w, ", ")
			if err != nil {
				return err
			}
		}
		first = false

		encoded, err := json.Marshal(convert(item))
		if err != nil {
			return err
		}
		_, err = w.Write(encoded)
		return err
	})
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, "]\n")
	return err
}

type HistoryPoint struct {
	Datetime string `json:"datetime"`
	Price    string `json:"price"`
}

func NewHistoryPoint(t time.Time, cents int64) HistoryPoint {
	return HistoryPoint{
		Datetime: t.Format(time.RFC3339),
		Price:    price.Format(cents),
	}
}

func historyPoint(entry store.HistoryEntry) any {
	return NewHistoryPoint(entry.Time, entry.PriceCents)
}

// WriteHistoryJSON writes the price history of a product, oldest first, as
// `[{"datetime": "2024-03-01T12:00:00-05:00", "price": "12.99"}, ...]`.
func WriteHistoryJSON(ctx context.Context, w io.Writer, s *store.Store, productID int64) error {
	return writeJSONArray(ctx, w, s.ProductHistory(productID, store.DefaultBatchSize), historyPoint)
}

type ProductSummary struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	IsInClearance *bool  `json:"is_in_clearance,omitempty"`
	URL           string `json:"url,omitempty"`
}

func Summary(product store.Product) ProductSummary {
	return ProductSummary{
		Code:          product.Code,
		Name:          product.Name,
		IsInClearance: product.IsInClearance,
		URL:           product.URL,
	}
}

// WriteProductsJSON writes every product of `cursor` as a JSON array.
func WriteProductsJSON(ctx context.Context, w io.Writer, cursor *store.Cursor[store.Product]) error {
	return writeJSONArray(ctx, w, cursor, func(product store.Product) any {
		return Summary(product)
	})
}
