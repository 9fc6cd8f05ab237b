package db

import (
	"context"
	"database/sql"
)

const countSamples = `-- name: CountSamples :one
SELECT COUNT(*) FROM samples
`

func (q *Queries) CountSamples(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countSamples)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createSample = `-- name: CreateSample :one
INSERT INTO samples (sample_time, sku_id, price_cents, in_promo, raw_payload)
VALUES (?, ?, ?, ?, ?)
RETURNING id
`

type CreateSampleParams struct {
	SampleTime int64
	SkuID      int64
	PriceCents int64
	InPromo    bool
	RawPayload sql.NullString
}

func (q *Queries) CreateSample(ctx context.Context, arg CreateSampleParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createSample,
		arg.SampleTime,
		arg.SkuID,
		arg.PriceCents,
		arg.InPromo,
		arg.RawPayload,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const deleteSample = `-- name: DeleteSample :exec
DELETE FROM samples
WHERE id = ?
`

func (q *Queries) DeleteSample(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteSample, id)
	return err
}

const getLatestSampleOfSku = `-- name: GetLatestSampleOfSku :one
SELECT id, sample_time, sku_id, price_cents, in_promo, raw_payload FROM samples
WHERE sku_id = ?
ORDER BY sample_time DESC, id DESC
LIMIT 1
`

func (q *Queries) GetLatestSampleOfSku(ctx context.Context, skuID int64) (Sample, error) {
	row := q.db.QueryRowContext(ctx, getLatestSampleOfSku, skuID)
	var i Sample
	err := row.Scan(
		&i.ID,
		&i.SampleTime,
		&i.SkuID,
		&i.PriceCents,
		&i.InPromo,
		&i.RawPayload,
	)
	return i, err
}

const listSamplesAfter = `-- name: ListSamplesAfter :many
SELECT id, sample_time, sku_id, price_cents, in_promo, raw_payload FROM samples
WHERE (sku_id, sample_time, id) > (?, ?, ?)
ORDER BY sku_id, sample_time, id
LIMIT ?
`

type ListSamplesAfterParams struct {
	SkuID      int64
	SampleTime int64
	ID         int64
	Limit      int64
}

// ListSamplesAfter pages through all samples ordered by (sku_id, sample_time),
// starting right after the given key.
func (q *Queries) ListSamplesAfter(ctx context.Context, arg ListSamplesAfterParams) ([]Sample, error) {
	rows, err := q.db.QueryContext(ctx, listSamplesAfter,
		arg.SkuID,
		arg.SampleTime,
		arg.ID,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Sample
	for rows.Next() {
		var i Sample
		if err := rows.Scan(
			&i.ID,
			&i.SampleTime,
			&i.SkuID,
			&i.PriceCents,
			&i.InPromo,
			&i.RawPayload,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listProductSamplesAfter = `-- name: ListProductSamplesAfter :many
SELECT samples.id, samples.sample_time, samples.sku_id, samples.price_cents, samples.in_promo, samples.raw_payload, skus.code
FROM samples
INNER JOIN skus ON skus.id = samples.sku_id
WHERE skus.product_id = ? AND (samples.sample_time, samples.id) > (?, ?)
ORDER BY samples.sample_time, samples.id
LIMIT ?
`

type ListProductSamplesAfterParams struct {
	ProductID  int64
	SampleTime int64
	ID         int64
	Limit      int64
}

type ListProductSamplesAfterRow struct {
	Sample  Sample
	SkuCode string
}

func (q *Queries) ListProductSamplesAfter(ctx context.Context, arg ListProductSamplesAfterParams) ([]ListProductSamplesAfterRow, error) {
	rows, err := q.db.QueryContext(ctx, listProductSamplesAfter,
		arg.ProductID,
		arg.SampleTime,
		arg.ID,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListProductSamplesAfterRow
	for rows.Next() {
		var i ListProductSamplesAfterRow
		if err := rows.Scan(
			&i.Sample.ID,
			&i.Sample.SampleTime,
			&i.Sample.SkuID,
			&i.Sample.PriceCents,
			&i.Sample.InPromo,
			&i.Sample.RawPayload,
			&i.SkuCode,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
