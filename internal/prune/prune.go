// Package prune removes the samples that carry no information from a store:
// for every sku only the samples where the price changes (and the most
// recent sample) are kept.
package prune

import (
	"context"
	"errors"
	"fmt"

	"canadiantracker/internal/components/assert"
	"canadiantracker/internal/components/telemetry"
	"canadiantracker/internal/store"

	"go.opentelemetry.io/otel"
)

const (
	report_prune_progress    = "prune.progress"
	report_prune_interrupted = "prune.interrupted"
	report_prune_order       = "prune.order"

	DefaultFlushEvery = 10_000
)

// ErrOutOfOrder means two consecutive samples of a sku do not have strictly
// increasing times, the store is inconsistent and nothing more is deleted.
var ErrOutOfOrder = errors.New("samples out of order")

var meter = otel.Meter("canadiantracker/prune")
var visitedCounter, _ = meter.Int64Counter("prune.samples_visited")
var deletedCounter, _ = meter.Int64Counter("prune.samples_deleted")

type Result struct {
	Visited int64
	// Deleted only counts committed deletions, those rolled back by a failed
	// run are not included.
	Deleted int64
	// Interrupted is true when the context was cancelled before every sample
	// was visited, the deletions made up to that point are committed.
	Interrupted bool
}

type Pruner struct {
	store      *store.Store
	flushEvery int
	batchSize  int
	vacuum     bool
	tel        telemetry.API
}

type config struct {
	flushEvery int
	batchSize  int
	vacuum     bool
	tel        telemetry.API
}

type Option func(cfg *config)

// WithFlushEvery sets the number of deletions after which they are committed.
func WithFlushEvery(n int) Option {
	return func(cfg *config) {
		cfg.flushEvery = n
	}
}

// WithBatchSize sets the number of samples read from the store at once.
func WithBatchSize(n int) Option {
	return func(cfg *config) {
		cfg.batchSize = n
	}
}

// WithVacuum makes a complete (not interrupted) run vacuum the database once done.
func WithVacuum(vacuum bool) Option {
	return func(cfg *config) {
		cfg.vacuum = vacuum
	}
}

func WithTelemetryAPI(tel telemetry.API) Option {
	return func(cfg *config) {
		cfg.tel = tel
	}
}

func NewPruner(s *store.Store, options ...Option) Pruner {
	assert.NotNil(s, "store")

	cfg := config{
		flushEvery: DefaultFlushEvery,
		batchSize:  store.DefaultBatchSize,
		tel:        telemetry.SlogAPI{},
	}
	for _, opt := range options {
		opt(&cfg)
	}
	assert.Positive(cfg.flushEvery, "flushEvery")
	assert.Positive(cfg.batchSize, "batchSize")

	return Pruner{
		store:      s,
		flushEvery: cfg.flushEvery,
		batchSize:  cfg.batchSize,
		vacuum:     cfg.vacuum,
		tel:        telemetry.NewScopedAPI("prune", cfg.tel),
	}
}

// holding is the sample the walk is currently looking at, it is only
// deleted once the next sample of the same sku is known.
type holding struct {
	sample  store.Sample
	isStart bool
}

// Run walks every sample ordered by sku and time and deletes those that are
// neither the start of a price period nor the last sample of their sku.
//
// Cancelling `ctx` stops the walk after the sample being processed, flushes
// what was deleted so far and returns a Result with Interrupted set and a nil
// error. On any other failure the deletions that were not flushed yet are
// discarded.
func (p Pruner) Run(ctx context.Context) (Result, error) {
	// store operations must complete even if ctx is cancelled mid-batch
	storeCtx := context.WithoutCancel(ctx)

	var result Result
	var prev *holding
	sinceFlush := 0

	fail := func(err error) (Result, error) {
		result.Deleted -= int64(sinceFlush)
		discardErr := p.store.Discard()
		if discardErr != nil {
			err = errors.Join(err, discardErr)
		}
		return result, err
	}

	cursor := p.store.Samples(p.batchSize)
walk:
	for {
		page, err := cursor.Next(storeCtx)
		if err != nil {
			return fail(err)
		}
		if len(page) == 0 {
			break
		}

		for _, sample := range page {
			if ctx.Err() != nil {
				result.Interrupted = true
				break walk
			}
			result.Visited++
			visitedCounter.Add(storeCtx, 1)

			if prev == nil || prev.sample.SkuID != sample.SkuID {
				prev = &holding{sample: sample, isStart: true}
				continue
			}

			if !sample.Time.After(prev.sample.Time) {
				err := fmt.Errorf(
					"%w: sample #%d (%s) is not after sample #%d (%s) of sku #%d",
					ErrOutOfOrder,
					sample.ID, sample.Time,
					prev.sample.ID, prev.sample.Time,
					sample.SkuID,
				)
				p.tel.ReportBroken(report_prune_order, err)
				return fail(err)
			}

			isStart := sample.PriceCents != prev.sample.PriceCents
			if !prev.isStart {
				err = p.store.DeleteSample(storeCtx, prev.sample.ID)
				if err != nil {
					return fail(err)
				}
				result.Deleted++
				deletedCounter.Add(storeCtx, 1)
				sinceFlush++
			}
			prev = &holding{sample: sample, isStart: isStart}

			if sinceFlush >= p.flushEvery {
				err = p.store.Flush(storeCtx)
				if err != nil {
					return fail(err)
				}
				sinceFlush = 0
				p.tel.ReportDebug(report_prune_progress, result.Visited, result.Deleted)
			}
		}
	}

	err := p.store.Flush(storeCtx)
	if err != nil {
		return fail(err)
	}

	if result.Interrupted {
		p.tel.ReportWarning(
			report_prune_interrupted,
			fmt.Sprintf("stopped after %d samples, %d deleted", result.Visited, result.Deleted),
		)
		return result, nil
	}

	p.tel.ReportDebug(report_prune_progress, result.Visited, result.Deleted)
	if p.vacuum {
		err = p.store.Vacuum(storeCtx)
		if err != nil {
			return result, err
		}
	}
	return result, nil
}
