package db

import (
	"context"
	"database/sql"
)

const countProducts = `-- name: CountProducts :one
SELECT COUNT(*) FROM products
`

func (q *Queries) CountProducts(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countProducts)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createProduct = `-- name: CreateProduct :one
INSERT INTO products (code, name, is_in_clearance, last_listed, url)
VALUES (?, ?, ?, ?, ?)
RETURNING id
`

type CreateProductParams struct {
	Code          string
	Name          string
	IsInClearance sql.NullBool
	LastListed    sql.NullInt64
	Url           sql.NullString
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createProduct,
		arg.Code,
		arg.Name,
		arg.IsInClearance,
		arg.LastListed,
		arg.Url,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getProductByCode = `-- name: GetProductByCode :one
SELECT id, code, name, is_in_clearance, last_listed, url FROM products
WHERE code = ?
`

func (q *Queries) GetProductByCode(ctx context.Context, code string) (Product, error) {
	row := q.db.QueryRowContext(ctx, getProductByCode, code)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Code,
		&i.Name,
		&i.IsInClearance,
		&i.LastListed,
		&i.Url,
	)
	return i, err
}

const getProductByID = `-- name: GetProductByID :one
SELECT id, code, name, is_in_clearance, last_listed, url FROM products
WHERE id = ?
`

func (q *Queries) GetProductByID(ctx context.Context, id int64) (Product, error) {
	row := q.db.QueryRowContext(ctx, getProductByID, id)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Code,
		&i.Name,
		&i.IsInClearance,
		&i.LastListed,
		&i.Url,
	)
	return i, err
}

const updateProductListing = `-- name: UpdateProductListing :exec
UPDATE products
SET name = ?, is_in_clearance = ?, url = ?, last_listed = ?
WHERE id = ?
`

type UpdateProductListingParams struct {
	Name          string
	IsInClearance sql.NullBool
	Url           sql.NullString
	LastListed    sql.NullInt64
	ID            int64
}

func (q *Queries) UpdateProductListing(ctx context.Context, arg UpdateProductListingParams) error {
	_, err := q.db.ExecContext(ctx, updateProductListing,
		arg.Name,
		arg.IsInClearance,
		arg.Url,
		arg.LastListed,
		arg.ID,
	)
	return err
}

const listProductsAfter = `-- name: ListProductsAfter :many
SELECT id, code, name, is_in_clearance, last_listed, url FROM products
WHERE id > ?
ORDER BY id
LIMIT ?
`

type ListProductsAfterParams struct {
	AfterID int64
	Limit   int64
}

func (q *Queries) ListProductsAfter(ctx context.Context, arg ListProductsAfterParams) ([]Product, error) {
	rows, err := q.db.QueryContext(ctx, listProductsAfter, arg.AfterID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		var i Product
		if err := rows.Scan(
			&i.ID,
			&i.Code,
			&i.Name,
			&i.IsInClearance,
			&i.LastListed,
			&i.Url,
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

const listStaleProductsAfter = `-- name: ListStaleProductsAfter :many
SELECT id, code, name, is_in_clearance, last_listed, url FROM products
WHERE id > ? AND (last_listed IS NULL OR last_listed < ?)
ORDER BY id
LIMIT ?
`

type ListStaleProductsAfterParams struct {
	AfterID int64
	Before  int64
	Limit   int64
}

func (q *Queries) ListStaleProductsAfter(ctx context.Context, arg ListStaleProductsAfterParams) ([]Product, error) {
	rows, err := q.db.QueryContext(ctx, listStaleProductsAfter, arg.AfterID, arg.Before, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		var i Product
		if err := rows.Scan(
			&i.ID,
			&i.Code,
			&i.Name,
			&i.IsInClearance,
			&i.LastListed,
			&i.Url,
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
