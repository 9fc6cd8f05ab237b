package db

import (
	"context"
	"database/sql"
)

const createSku = `-- name: CreateSku :one
INSERT INTO skus (code, formatted_code, product_id)
VALUES (?, ?, ?)
RETURNING id
`

type CreateSkuParams struct {
	Code          string
	FormattedCode sql.NullString
	ProductID     int64
}

func (q *Queries) CreateSku(ctx context.Context, arg CreateSkuParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createSku, arg.Code, arg.FormattedCode, arg.ProductID)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getSkuByCode = `-- name: GetSkuByCode :one
SELECT id, code, formatted_code, product_id FROM skus
WHERE code = ?
`

func (q *Queries) GetSkuByCode(ctx context.Context, code string) (Sku, error) {
	row := q.db.QueryRowContext(ctx, getSkuByCode, code)
	var i Sku
	err := row.Scan(
		&i.ID,
		&i.Code,
		&i.FormattedCode,
		&i.ProductID,
	)
	return i, err
}

const getSkuByFormattedCode = `-- name: GetSkuByFormattedCode :one
SELECT id, code, formatted_code, product_id FROM skus
WHERE formatted_code = ?
LIMIT 1
`

func (q *Queries) GetSkuByFormattedCode(ctx context.Context, formattedCode sql.NullString) (Sku, error) {
	row := q.db.QueryRowContext(ctx, getSkuByFormattedCode, formattedCode)
	var i Sku
	err := row.Scan(
		&i.ID,
		&i.Code,
		&i.FormattedCode,
		&i.ProductID,
	)
	return i, err
}

const setSkuProduct = `-- name: SetSkuProduct :exec
UPDATE skus SET product_id = ?
WHERE id = ?
`

type SetSkuProductParams struct {
	ProductID int64
	ID        int64
}

func (q *Queries) SetSkuProduct(ctx context.Context, arg SetSkuProductParams) error {
	_, err := q.db.ExecContext(ctx, setSkuProduct, arg.ProductID, arg.ID)
	return err
}

const listSkusAfter = `-- name: ListSkusAfter :many
SELECT id, code, formatted_code, product_id FROM skus
WHERE id > ?
ORDER BY id
LIMIT ?
`

type ListSkusAfterParams struct {
	AfterID int64
	Limit   int64
}

func (q *Queries) ListSkusAfter(ctx context.Context, arg ListSkusAfterParams) ([]Sku, error) {
	rows, err := q.db.QueryContext(ctx, listSkusAfter, arg.AfterID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Sku
	for rows.Next() {
		var i Sku
		if err := rows.Scan(
			&i.ID,
			&i.Code,
			&i.FormattedCode,
			&i.ProductID,
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

const listSkusOfProduct = `-- name: ListSkusOfProduct :many
SELECT id, code, formatted_code, product_id FROM skus
WHERE product_id = ?
ORDER BY code
`

func (q *Queries) ListSkusOfProduct(ctx context.Context, productID int64) ([]Sku, error) {
	rows, err := q.db.QueryContext(ctx, listSkusOfProduct, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Sku
	for rows.Next() {
		var i Sku
		if err := rows.Scan(
			&i.ID,
			&i.Code,
			&i.FormattedCode,
			&i.ProductID,
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
