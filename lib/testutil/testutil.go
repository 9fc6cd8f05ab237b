package testutil

import (
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"canadiantracker/internal/db"
	"canadiantracker/lib/telemetry"
)

var initSlog sync.Once

type DBParams struct {
	// if false, the database is left empty (no tables at all)
	ApplySchema bool
}

// SetupDB opens a sqlite database in a temporary directory that is removed
// at the end of the test.
func SetupDB(t testing.TB, params DBParams) *sql.DB {
	t.Helper()
	initSlog.Do(func() {
		telemetry.InitSlog(true)
	})

	path := filepath.Join(t.TempDir(), "test.db")
	sqlite, err := db.OpenDB(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		sqlite.Close()
	})

	if params.ApplySchema {
		err = db.ApplySchema(sqlite)
		if err != nil {
			t.Fatal(err)
		}
	}
	return sqlite
}

// Time returns the given wall clock time in UTC, meant for fixtures.
func Time(t testing.TB, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.DateTime, value)
	if err != nil {
		t.Fatal(err)
	}
	return parsed
}
