package migrate

import (
	"context"
	"database/sql"
)

// queries over the layout that predates skus, written by hand since the
// generated queries only know about the current schema.

const hasColumn = `
SELECT COUNT(*) > 0 FROM pragma_table_info(?) WHERE name = ?
`

func legacyHasColumn(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, hasColumn, table, column).Scan(&exists)
	return exists, err
}

type legacyProduct struct {
	Index         int64
	Name          string
	Code          string
	IsInClearance sql.NullBool
	LastListed    any
	Url           sql.NullString
	SkuCodes      sql.NullString
}

const selectLegacyProducts = `
SELECT "index", name, code, is_in_clearance, last_listed, url, sku FROM products_static
WHERE "index" > ?
ORDER BY "index"
LIMIT ?
`

func listLegacyProductsAfter(ctx context.Context, tx *sql.Tx, after int64, limit int) ([]legacyProduct, error) {
	rows, err := tx.QueryContext(ctx, selectLegacyProducts, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []legacyProduct
	for rows.Next() {
		var i legacyProduct
		if err := rows.Scan(
			&i.Index,
			&i.Name,
			&i.Code,
			&i.IsInClearance,
			&i.LastListed,
			&i.Url,
			&i.SkuCodes,
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

type legacySample struct {
	Index      int64
	SampleTime any
	Code       string
	Price      any
	InPromo    bool
	RawPayload sql.NullString
}

const selectLegacySamples = `
SELECT "index", sample_time, code, price, in_promo, raw_payload FROM products_dynamic
WHERE "index" > ?
ORDER BY "index"
LIMIT ?
`

func listLegacySamplesAfter(ctx context.Context, tx *sql.Tx, after int64, limit int) ([]legacySample, error) {
	rows, err := tx.QueryContext(ctx, selectLegacySamples, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []legacySample
	for rows.Next() {
		var i legacySample
		if err := rows.Scan(
			&i.Index,
			&i.SampleTime,
			&i.Code,
			&i.Price,
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

const countLegacySamples = `SELECT COUNT(*) FROM products_dynamic`

func countLegacy(ctx context.Context, tx *sql.Tx) (int64, error) {
	var count int64
	err := tx.QueryRowContext(ctx, countLegacySamples).Scan(&count)
	return count, err
}

const insertLegacyProduct = `
INSERT INTO products (id, code, name, is_in_clearance, last_listed, url)
VALUES (?, ?, ?, ?, ?, ?)
`

func insertProductWithID(ctx context.Context, tx *sql.Tx, p legacyProduct, lastListed sql.NullInt64) error {
	_, err := tx.ExecContext(ctx, insertLegacyProduct,
		p.Index,
		p.Code,
		p.Name,
		p.IsInClearance,
		lastListed,
		p.Url,
	)
	return err
}

const dropLegacyTables = `
DROP TABLE products_dynamic;
DROP TABLE products_static;
DROP TABLE IF EXISTS alembic_version;
`
