package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"canadiantracker/internal/db"
	"canadiantracker/internal/price"

	"github.com/shopspring/decimal"
)

type AddPriceSampleParams struct {
	SkuCode    string
	Price      decimal.Decimal
	InPromo    bool
	RawPayload string
	// DiscardEqual deletes the latest sample of the sku when it has the same
	// price as the new one, so back-to-back scrapes without a price change
	// only keep the transition points.
	DiscardEqual bool
}

// AddPriceSample records the current price of a sku. The sku must have been
// added beforehand, otherwise ErrUnknownSku is returned.
//
// The new sample is always the latest sample of its sku.
func (s *Store) AddPriceSample(ctx context.Context, params AddPriceSampleParams) (Sample, error) {
	cents, err := price.CentsFromPrice(params.Price)
	if err != nil {
		return Sample{}, err
	}

	q, err := s.writer(ctx)
	if err != nil {
		return Sample{}, err
	}

	sku, err := q.GetSkuByCode(ctx, params.SkuCode)
	if errors.Is(err, sql.ErrNoRows) {
		return Sample{}, fmt.Errorf("%w: %s", ErrUnknownSku, params.SkuCode)
	}
	if err != nil {
		return Sample{}, fmt.Errorf("get sku %s: %w", params.SkuCode, err)
	}

	sampleTime := toMicros(s.clock.Now())

	last, err := q.GetLatestSampleOfSku(ctx, sku.ID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.tel.ReportDebug("no previous sample", params.SkuCode)
	case err != nil:
		return Sample{}, fmt.Errorf("get latest sample of sku %s: %w", params.SkuCode, err)
	default:
		equal := last.PriceCents == cents
		s.tel.ReportDebug(
			"previous sample",
			params.SkuCode,
			fmt.Sprintf("last price=%s, new price=%s, equal=%v", price.Format(last.PriceCents), price.Format(cents), equal),
		)
		if params.DiscardEqual && equal {
			err = q.DeleteSample(ctx, last.ID)
			if err != nil {
				return Sample{}, fmt.Errorf("delete sample #%d: %w", last.ID, err)
			}
		}
		// keep samples of a sku strictly ordered even if the wall clock went back
		if sampleTime <= last.SampleTime {
			sampleTime = last.SampleTime + 1
		}
	}

	row := db.Sample{
		SampleTime: sampleTime,
		SkuID:      sku.ID,
		PriceCents: cents,
		InPromo:    params.InPromo,
		RawPayload: nullString(params.RawPayload),
	}
	row.ID, err = q.CreateSample(ctx, db.CreateSampleParams{
		SampleTime: row.SampleTime,
		SkuID:      row.SkuID,
		PriceCents: row.PriceCents,
		InPromo:    row.InPromo,
		RawPayload: row.RawPayload,
	})
	if err != nil {
		return Sample{}, fmt.Errorf("create sample for sku %s: %w", params.SkuCode, err)
	}

	return s.sampleFromRow(row), s.wrote(ctx)
}

// LatestSample returns the most recent sample of a sku, `found` is false if it has none.
func (s *Store) LatestSample(ctx context.Context, skuID int64) (sample Sample, found bool, err error) {
	row, err := s.reader().GetLatestSampleOfSku(ctx, skuID)
	if errors.Is(err, sql.ErrNoRows) {
		return Sample{}, false, nil
	}
	if err != nil {
		return Sample{}, false, fmt.Errorf("get latest sample of sku #%d: %w", skuID, err)
	}
	return s.sampleFromRow(row), true, nil
}

// DeleteSample deletes a sample as part of the pending writes.
func (s *Store) DeleteSample(ctx context.Context, id int64) error {
	q, err := s.writer(ctx)
	if err != nil {
		return err
	}
	err = q.DeleteSample(ctx, id)
	if err != nil {
		return fmt.Errorf("delete sample #%d: %w", id, err)
	}
	return s.wrote(ctx)
}

func (s *Store) CountSamples(ctx context.Context) (int64, error) {
	return s.reader().CountSamples(ctx)
}

// Samples walks every sample ordered by sku and then by time.
func (s *Store) Samples(batchSize int) *Cursor[Sample] {
	var after db.Sample
	return newCursor(batchSize, func(ctx context.Context, limit int64) ([]Sample, error) {
		rows, err := s.reader().ListSamplesAfter(ctx, db.ListSamplesAfterParams{
			SkuID:      after.SkuID,
			SampleTime: after.SampleTime,
			ID:         after.ID,
			Limit:      limit,
		})
		if err != nil {
			return nil, fmt.Errorf("list samples: %w", err)
		}
		out := make([]Sample, len(rows))
		for i, r := range rows {
			out[i] = s.sampleFromRow(r)
		}
		if len(rows) > 0 {
			after = rows[len(rows)-1]
		}
		return out, nil
	})
}

// ProductHistory walks the samples of all the skus of a product, ordered by time.
func (s *Store) ProductHistory(productID int64, batchSize int) *Cursor[HistoryEntry] {
	afterTime := int64(math.MinInt64)
	var afterID int64
	return newCursor(batchSize, func(ctx context.Context, limit int64) ([]HistoryEntry, error) {
		rows, err := s.reader().ListProductSamplesAfter(ctx, db.ListProductSamplesAfterParams{
			ProductID:  productID,
			SampleTime: afterTime,
			ID:         afterID,
			Limit:      limit,
		})
		if err != nil {
			return nil, fmt.Errorf("list samples of product #%d: %w", productID, err)
		}
		out := make([]HistoryEntry, len(rows))
		for i, r := range rows {
			out[i] = HistoryEntry{
				Sample:  s.sampleFromRow(r.Sample),
				SkuCode: r.SkuCode,
			}
		}
		if len(rows) > 0 {
			last := rows[len(rows)-1].Sample
			afterTime = last.SampleTime
			afterID = last.ID
		}
		return out, nil
	})
}
