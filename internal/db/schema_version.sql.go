package db

import (
	"context"
)

const getSchemaVersion = `-- name: GetSchemaVersion :one
SELECT version FROM schema_version
LIMIT 1
`

func (q *Queries) GetSchemaVersion(ctx context.Context) (string, error) {
	row := q.db.QueryRowContext(ctx, getSchemaVersion)
	var version string
	err := row.Scan(&version)
	return version, err
}

const deleteSchemaVersion = `-- name: DeleteSchemaVersion :exec
DELETE FROM schema_version
`

func (q *Queries) DeleteSchemaVersion(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteSchemaVersion)
	return err
}

const insertSchemaVersion = `-- name: InsertSchemaVersion :exec
INSERT INTO schema_version (version) VALUES (?)
`

func (q *Queries) InsertSchemaVersion(ctx context.Context, version string) error {
	_, err := q.db.ExecContext(ctx, insertSchemaVersion, version)
	return err
}

const tableExists = `-- name: TableExists :one
SELECT COUNT(*) > 0 FROM sqlite_master
WHERE type = 'table' AND name = ?
`

func (q *Queries) TableExists(ctx context.Context, name string) (bool, error) {
	row := q.db.QueryRowContext(ctx, tableExists, name)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const countTables = `-- name: CountTables :one
SELECT COUNT(*) FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
`

func (q *Queries) CountTables(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countTables)
	var count int64
	err := row.Scan(&count)
	return count, err
}
