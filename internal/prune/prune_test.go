package prune

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"canadiantracker/internal/components/chrono"
	"canadiantracker/internal/components/telemetry"
	"canadiantracker/internal/db"
	"canadiantracker/internal/price"
	"canadiantracker/internal/store"
	"canadiantracker/lib/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type skuPrices struct {
	code   string
	prices []string
}

func setup(t *testing.T, skus ...skuPrices) (*store.Store, *sql.DB) {
	t.Helper()
	ctx := context.Background()

	database := testutil.SetupDB(t, testutil.DBParams{ApplySchema: true})
	clock := chrono.NewFakeClock(time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC), time.Hour)
	s, err := store.Open(ctx, database, store.WithClock(clock), store.WithTelemetryAPI(telemetry.NewRecorder()))
	require.NoError(t, err)

	_, err = s.AddProduct(ctx, store.AddProductParams{Code: "1000000P", Name: "Product"})
	require.NoError(t, err)
	for _, sku := range skus {
		_, _, err = s.AddSku(ctx, store.AddSkuParams{ProductCode: "1000000P", Code: sku.code})
		require.NoError(t, err)
	}
	// interleave skus so sample ids are not grouped by sku
	for i := 0; ; i++ {
		added := false
		for _, sku := range skus {
			if i >= len(sku.prices) {
				continue
			}
			_, err = s.AddPriceSample(ctx, store.AddPriceSampleParams{
				SkuCode: sku.code,
				Price:   decimal.RequireFromString(sku.prices[i]),
			})
			require.NoError(t, err)
			added = true
		}
		if !added {
			break
		}
	}
	require.NoError(t, s.Flush(ctx))
	return s, database
}

// remaining returns the prices left for every sku, in order.
func remaining(t *testing.T, s *store.Store) map[int64][]int64 {
	t.Helper()
	out := map[int64][]int64{}
	err := s.Samples(0).ForEach(context.Background(), func(sample store.Sample) error {
		out[sample.SkuID] = append(out[sample.SkuID], sample.PriceCents)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestPrune(t *testing.T) {
	testCases := []struct {
		name     string
		prices   []string
		expected []int64
		deleted  int64
	}{
		{
			name:     "runs",
			prices:   []string{"5", "5", "5", "7", "7", "9"},
			expected: []int64{500, 700, 900},
			deleted:  3,
		},
		{
			name:     "constant",
			prices:   []string{"1.50", "1.50", "1.50", "1.50"},
			expected: []int64{150, 150},
			deleted:  2,
		},
		{
			name:     "always changing",
			prices:   []string{"1", "2", "1", "2"},
			expected: []int64{100, 200, 100, 200},
			deleted:  0,
		},
		{
			name:     "single sample",
			prices:   []string{"3.99"},
			expected: []int64{399},
			deleted:  0,
		},
		{
			name:     "back to a previous price",
			prices:   []string{"4", "4", "3", "3", "3", "4"},
			expected: []int64{400, 300, 400},
			deleted:  3,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			s, _ := setup(t, skuPrices{code: "1000000", prices: test.prices})

			result, err := NewPruner(s, WithFlushEvery(2), WithBatchSize(4)).Run(context.Background())
			require.NoError(t, err)
			require.False(t, result.Interrupted)
			require.Equal(t, int64(len(test.prices)), result.Visited)
			require.Equal(t, test.deleted, result.Deleted)

			for _, prices := range remaining(t, s) {
				require.Equal(t, test.expected, prices)
			}
		})
	}
}

func TestPruneKeepsSkusSeparate(t *testing.T) {
	s, _ := setup(t,
		skuPrices{code: "1000001", prices: []string{"1", "1", "1"}},
		skuPrices{code: "1000002", prices: []string{"1", "1", "2", "2"}},
	)

	_, err := NewPruner(s, WithVacuum(true)).Run(context.Background())
	require.NoError(t, err)

	left := remaining(t, s)
	require.Len(t, left, 2)
	var lengths []int
	for _, prices := range left {
		lengths = append(lengths, len(prices))
	}
	require.ElementsMatch(t, []int{2, 3}, lengths)
}

func TestPruneIsIdempotent(t *testing.T) {
	s, _ := setup(t, skuPrices{code: "1000000", prices: []string{"5", "5", "5", "7", "7", "9", "9"}})
	ctx := context.Background()

	_, err := NewPruner(s).Run(ctx)
	require.NoError(t, err)
	first := remaining(t, s)

	result, err := NewPruner(s).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), result.Deleted)
	require.Equal(t, first, remaining(t, s))
}

// cancelOnProgress cancels a context the first time the pruner reports progress.
type cancelOnProgress struct {
	*telemetry.Recorder
	cancel context.CancelFunc
}

func (c cancelOnProgress) ReportDebug(msg string, params ...any) {
	c.Recorder.ReportDebug(msg, params...)
	if strings.HasSuffix(msg, report_prune_progress) {
		c.cancel()
	}
}

func TestPruneInterrupted(t *testing.T) {
	prices := []string{"1", "1", "1", "1", "1", "1", "1", "1", "1", "1", "2"}
	s, _ := setup(t, skuPrices{code: "1000000", prices: prices})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tel := cancelOnProgress{Recorder: telemetry.NewRecorder(), cancel: cancel}

	result, err := NewPruner(s, WithFlushEvery(2), WithTelemetryAPI(tel)).Run(ctx)
	require.NoError(t, err)
	require.True(t, result.Interrupted)
	require.Equal(t, int64(2), result.Deleted)
	require.Less(t, result.Visited, int64(len(prices)))
	require.Len(t, tel.Reports(telemetry.LevelWarning, report_prune_interrupted), 1)
	require.Equal(t, 0, s.Pending())

	// resuming finishes the job as if it was never interrupted
	_, err = NewPruner(s).Run(context.Background())
	require.NoError(t, err)
	for _, left := range remaining(t, s) {
		require.Equal(t, []int64{100, 200}, left)
	}
}

func TestPruneCancelledBeforeStart(t *testing.T) {
	s, _ := setup(t, skuPrices{code: "1000000", prices: []string{"1", "1", "1"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := NewPruner(s).Run(ctx)
	require.NoError(t, err)
	require.True(t, result.Interrupted)
	require.Equal(t, int64(0), result.Visited)
	require.Len(t, remaining(t, s)[1], 3)
}

func TestPruneOutOfOrder(t *testing.T) {
	s, database := setup(t, skuPrices{code: "1000000", prices: []string{"1", "1", "1", "1"}})
	ctx := context.Background()

	latest, found, err := s.LatestSample(ctx, 1)
	require.NoError(t, err)
	require.True(t, found)
	_, err = db.New(database).CreateSample(ctx, db.CreateSampleParams{
		SampleTime: latest.Time.UnixMicro(),
		SkuID:      1,
		PriceCents: 100,
	})
	require.NoError(t, err)

	tel := telemetry.NewRecorder()
	result, err := NewPruner(s, WithFlushEvery(100), WithTelemetryAPI(tel)).Run(ctx)
	require.ErrorIs(t, err, ErrOutOfOrder)
	require.Equal(t, int64(0), result.Deleted)
	require.Len(t, tel.Reports(telemetry.LevelBroken, report_prune_order), 1)

	// nothing was flushed, so nothing was deleted
	require.Len(t, remaining(t, s)[1], 5)
}

func TestPruneOutOfOrderKeepsFlushed(t *testing.T) {
	s, database := setup(t,
		skuPrices{code: "1000000", prices: []string{"1", "1", "1", "1"}},
		skuPrices{code: "2000000", prices: []string{"2", "2", "2"}},
	)
	ctx := context.Background()

	latest, found, err := s.LatestSample(ctx, 2)
	require.NoError(t, err)
	require.True(t, found)
	_, err = db.New(database).CreateSample(ctx, db.CreateSampleParams{
		SampleTime: latest.Time.UnixMicro(),
		SkuID:      2,
		PriceCents: 200,
	})
	require.NoError(t, err)

	result, err := NewPruner(s, WithFlushEvery(2)).Run(ctx)
	require.ErrorIs(t, err, ErrOutOfOrder)
	require.Equal(t, int64(2), result.Deleted)

	left := remaining(t, s)
	require.Equal(t, []int64{100, 100}, left[1])
	require.Len(t, left[2], 4)
}

// keptPrices is what pruning must leave of `prices`: the first sample of
// every price period and the latest sample.
func keptPrices(prices []int64) []int64 {
	var kept []int64
	for i, p := range prices {
		if i == 0 || p != prices[i-1] || i == len(prices)-1 {
			kept = append(kept, p)
		}
	}
	return kept
}

func TestPruneRandomHistories(t *testing.T) {
	for seed := int64(0); seed < 5; seed++ {
		rndm := rand.New(rand.NewSource(seed))

		var skus []skuPrices
		var generated [][]int64
		var total int64
		for i := 0; i < 4; i++ {
			prices := testutil.RandomPrices(rndm, 1+rndm.Intn(60))
			total += int64(len(prices))
			generated = append(generated, prices)

			sku := skuPrices{code: fmt.Sprintf("%07d", 2000001+i)}
			for _, cents := range prices {
				sku.prices = append(sku.prices, price.Format(cents))
			}
			skus = append(skus, sku)
		}

		s, _ := setup(t, skus...)
		result, err := NewPruner(s, WithFlushEvery(7), WithBatchSize(5)).Run(context.Background())
		require.NoError(t, err)
		require.False(t, result.Interrupted)
		require.Equal(t, total, result.Visited)

		left := remaining(t, s)
		var kept int64
		for i, prices := range generated {
			sku, found, err := s.GetSkuByCode(context.Background(), skus[i].code)
			require.NoError(t, err)
			require.True(t, found)

			expected := keptPrices(prices)
			kept += int64(len(expected))
			require.Equal(t, expected, left[sku.ID], "seed %d sku %s", seed, sku.Code)
		}
		require.Equal(t, total-kept, result.Deleted)
	}
}
