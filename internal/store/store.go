// Package store persists products, their skus and the price samples of those
// skus.
//
// A Store is not safe for concurrent use: callers that share one between
// goroutines (ex. the handlers of an HTTP server) must serialize every call,
// reads included, since a read runs inside the pending write transaction
// when there is one. Writes are grouped in a transaction
// that is committed every FlushEvery writes and by Flush, Vacuum and Close;
// reads made while that transaction is open see its pending writes.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"canadiantracker/internal/components/assert"
	"canadiantracker/internal/components/chrono"
	"canadiantracker/internal/components/telemetry"
	"canadiantracker/internal/db"
)

const (
	report_store_open   = "store.open"
	report_store_flush  = "store.flush"
	report_sku_reparent = "store.add-sku"

	DefaultFlushEvery = 10_000
)

type Store struct {
	db  *sql.DB
	qry *db.Queries

	tx      *sql.Tx
	txqry   *db.Queries
	pending int

	flushEvery int
	clock      chrono.API
	tel        telemetry.API
}

type config struct {
	tel        telemetry.API
	clock      chrono.API
	flushEvery int
}

type Option func(cfg *config)

func WithTelemetryAPI(tel telemetry.API) Option {
	return func(cfg *config) {
		cfg.tel = tel
	}
}

func WithClock(clock chrono.API) Option {
	return func(cfg *config) {
		cfg.clock = clock
	}
}

// WithFlushEvery sets the number of writes after which pending writes are committed.
func WithFlushEvery(n int) Option {
	return func(cfg *config) {
		cfg.flushEvery = n
	}
}

// Open checks that `database` is at db.SchemaVersion and returns a Store over it.
// A database at any other version is rejected with a *SchemaVersionError.
func Open(ctx context.Context, database *sql.DB, options ...Option) (*Store, error) {
	assert.NotNil(database, "database")

	cfg := config{
		tel:        telemetry.SlogAPI{},
		flushEvery: DefaultFlushEvery,
	}
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.clock == nil {
		clock, err := chrono.NewStandardImpl()
		if err != nil {
			return nil, err
		}
		cfg.clock = clock
	}
	assert.Positive(cfg.flushEvery, "flushEvery")

	tel := telemetry.NewScopedAPI("store", cfg.tel)
	qry := db.New(database)

	err := checkSchemaVersion(ctx, qry)
	if err != nil {
		tel.ReportBroken(report_store_open, err)
		return nil, err
	}

	return &Store{
		db:         database,
		qry:        qry,
		flushEvery: cfg.flushEvery,
		clock:      cfg.clock,
		tel:        tel,
	}, nil
}

func checkSchemaVersion(ctx context.Context, qry *db.Queries) error {
	versionErr := &SchemaVersionError{Expected: db.SchemaVersion}

	exists, err := qry.TableExists(ctx, "schema_version")
	if err != nil {
		return fmt.Errorf("check schema version: %w", err)
	}
	if !exists {
		return versionErr
	}

	version, err := qry.GetSchemaVersion(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return versionErr
	}
	if err != nil {
		return fmt.Errorf("check schema version: %w", err)
	}
	if version != db.SchemaVersion {
		versionErr.Actual = version
		return versionErr
	}
	return nil
}

// reader returns the queries to read with, reads go through the pending
// transaction if there is one since the database only has one connection.
func (s *Store) reader() *db.Queries {
	if s.tx != nil {
		return s.txqry
	}
	return s.qry
}

// writer returns the queries of the pending transaction, opening one if needed.
func (s *Store) writer(ctx context.Context) (*db.Queries, error) {
	if s.tx != nil {
		return s.txqry, nil
	}
	// the transaction must survive the cancellation of `ctx`, what was already
	// written is committed by the next Flush
	tx, err := s.db.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	s.tx = tx
	s.txqry = s.qry.WithTx(tx)
	return s.txqry, nil
}

// wrote accounts for one write in the pending transaction.
func (s *Store) wrote(ctx context.Context) error {
	s.pending++
	if s.pending >= s.flushEvery {
		return s.Flush(ctx)
	}
	return nil
}

// Pending returns the number of writes not committed yet.
func (s *Store) Pending() int {
	return s.pending
}

// Flush commits pending writes.
func (s *Store) Flush(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	pending := s.pending
	err := s.tx.Commit()
	s.tx = nil
	s.txqry = nil
	s.pending = 0
	if err != nil {
		s.tel.ReportBroken(report_store_flush, err, pending)
		return fmt.Errorf("flush: %w", err)
	}
	s.tel.ReportDebug(report_store_flush, pending)
	return nil
}

// Discard rolls back pending writes.
func (s *Store) Discard() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	s.txqry = nil
	s.pending = 0
	return err
}

// Vacuum reclaims unused space in the database file. Pending writes are
// committed first since sqlite cannot vacuum inside a transaction.
func (s *Store) Vacuum(ctx context.Context) error {
	err := s.Flush(ctx)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, "VACUUM")
	if err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

// Close commits pending writes. The underlying *sql.DB is left open, it
// belongs to whoever passed it to Open.
func (s *Store) Close(ctx context.Context) error {
	return s.Flush(ctx)
}
