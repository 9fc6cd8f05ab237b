package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

// OpenDB opens (creating it if needed) the sqlite database at `path`.
//
// The returned handle has a single connection: everything that talks to the
// database must be done sequentially, and a cursor must be closed before the
// next statement runs.
func OpenDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	// WAL lets a reader (ex. ctserver) run while a scrape is writing
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		_, err = db.Exec(pragma)
		if err != nil {
			db.Close()
			return nil, wrapOpenDB(err)
		}
	}

	return db, nil
}

// ApplySchema creates the current schema on an empty database and stamps it
// with SchemaVersion.
func ApplySchema(dbtx *sql.DB) error {
	tx, err := dbtx.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(Schema)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	_, err = tx.Exec(deleteSchemaVersion)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	_, err = tx.Exec(insertSchemaVersion, SchemaVersion)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return tx.Commit()
}
