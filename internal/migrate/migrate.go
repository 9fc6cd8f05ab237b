// Package migrate brings a database to the current schema: it creates the
// schema on an empty database and transplants the data of the legacy layout
// (one row per product with a pipe separated list of skus, samples keyed by
// product code) into products, skus and samples.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"canadiantracker/internal/components/assert"
	"canadiantracker/internal/components/chrono"
	"canadiantracker/internal/components/telemetry"
	"canadiantracker/internal/db"
	"canadiantracker/internal/store"
)

const (
	report_migrate_detect = "migrate.detect"
	report_migrate_done   = "migrate.done"

	defaultBatchSize = 1000
)

// ErrUnknownLayout is returned for a database that is neither empty, nor
// versioned, nor in the legacy layout.
var ErrUnknownLayout = errors.New("unknown database layout")

type Outcome int

const (
	// UpToDate means the database was already at db.SchemaVersion.
	UpToDate Outcome = iota
	// Created means the database was empty and the schema was created.
	Created
	// Migrated means the legacy layout was transplanted.
	Migrated
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Migrated:
		return "migrated"
	default:
		return "up to date"
	}
}

type Result struct {
	Outcome Outcome

	Products      int64
	Skus          int64
	Samples       int64
	RecoveredSkus int64
	// skip-and-log counters
	DuplicateSkus   int64
	ProductsNoSkus  int64
	SamplesNoSku    int64
	SamplesFrom     int64
	SamplesOrphan   int64
	SamplesBadPrice int64
	SamplesBadData  int64
}

type Migrator struct {
	db        *sql.DB
	makeTx    db.MakeTx
	batchSize int
	clock     chrono.API
	tel       telemetry.API
}

type config struct {
	tel       telemetry.API
	clock     chrono.API
	batchSize int
}

type Option func(cfg *config)

func WithTelemetryAPI(tel telemetry.API) Option {
	return func(cfg *config) {
		cfg.tel = tel
	}
}

// WithClock sets the clock whose location is used to interpret the naive
// timestamps of the legacy layout.
func WithClock(clock chrono.API) Option {
	return func(cfg *config) {
		cfg.clock = clock
	}
}

// WithBatchSize sets the number of legacy rows read at once.
func WithBatchSize(n int) Option {
	return func(cfg *config) {
		cfg.batchSize = n
	}
}

func NewMigrator(database *sql.DB, options ...Option) (Migrator, error) {
	assert.NotNil(database, "database")

	cfg := config{
		tel:       telemetry.SlogAPI{},
		batchSize: defaultBatchSize,
	}
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.clock == nil {
		clock, err := chrono.NewStandardImpl()
		if err != nil {
			return Migrator{}, err
		}
		cfg.clock = clock
	}
	assert.Positive(cfg.batchSize, "batchSize")

	return Migrator{
		db:        database,
		makeTx:    db.NewMakeTx(database),
		batchSize: cfg.batchSize,
		clock:     cfg.clock,
		tel:       telemetry.NewScopedAPI("migrate", cfg.tel),
	}, nil
}

// Upgrade brings the database to db.SchemaVersion.
//
// A database carrying another version token is rejected with a
// *store.SchemaVersionError, there is no migration path between tokens.
// The legacy transplant runs in a single transaction: when it fails, the
// database is left untouched.
func (m Migrator) Upgrade(ctx context.Context) (Result, error) {
	qry := db.New(m.db)

	hasVersion, err := qry.TableExists(ctx, "schema_version")
	if err != nil {
		return Result{}, fmt.Errorf("detect layout: %w", err)
	}
	if hasVersion {
		version, err := qry.GetSchemaVersion(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return Result{}, fmt.Errorf("detect layout: %w", err)
		}
		if version == db.SchemaVersion {
			m.tel.ReportDebug(report_migrate_detect, "up to date", version)
			return Result{Outcome: UpToDate}, nil
		}
		versionErr := &store.SchemaVersionError{Expected: db.SchemaVersion, Actual: version}
		m.tel.ReportBroken(report_migrate_detect, versionErr)
		return Result{}, versionErr
	}

	legacy, err := m.isLegacy(ctx, qry)
	if err != nil {
		return Result{}, fmt.Errorf("detect layout: %w", err)
	}
	if legacy {
		m.tel.ReportDebug(report_migrate_detect, "legacy layout")
		result, err := m.migrateLegacy(ctx)
		if err != nil {
			m.tel.ReportBroken(report_migrate_done, err)
			return Result{}, err
		}
		m.tel.ReportInfo(
			report_migrate_done,
			fmt.Sprintf(
				"migrated %d products, %d skus (%d recovered), %d samples",
				result.Products, result.Skus, result.RecoveredSkus, result.Samples,
			),
			fmt.Sprintf(
				"skipped: %d duplicate skus, %d products without skus, %d samples without sku, %d 'price from' samples, %d orphan samples, %d bad prices, %d bad payloads",
				result.DuplicateSkus, result.ProductsNoSkus, result.SamplesNoSku, result.SamplesFrom,
				result.SamplesOrphan, result.SamplesBadPrice, result.SamplesBadData,
			),
		)
		return result, nil
	}

	tables, err := qry.CountTables(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("detect layout: %w", err)
	}
	if tables > 0 {
		err = fmt.Errorf("%w: %d tables but no schema version", ErrUnknownLayout, tables)
		m.tel.ReportBroken(report_migrate_detect, err)
		return Result{}, err
	}

	err = db.ApplySchema(m.db)
	if err != nil {
		return Result{}, err
	}
	m.tel.ReportInfo(report_migrate_done, "created schema", db.SchemaVersion)
	return Result{Outcome: Created}, nil
}

func (m Migrator) isLegacy(ctx context.Context, qry *db.Queries) (bool, error) {
	for _, table := range []string{"products_static", "products_dynamic"} {
		exists, err := qry.TableExists(ctx, table)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
	}
	return true, nil
}
