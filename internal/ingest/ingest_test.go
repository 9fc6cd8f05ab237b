package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"canadiantracker/internal/components/chrono"
	"canadiantracker/internal/components/telemetry"
	"canadiantracker/internal/store"
	"canadiantracker/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeListings struct {
	entries []ListingEntry
	skus    map[string][]SkuEntry
	missing map[string]bool
}

func (f fakeListings) ListProducts(ctx context.Context, fn func(ListingEntry) error) error {
	for _, entry := range f.entries {
		err := fn(entry)
		if err != nil {
			return err
		}
	}
	return nil
}

func (f fakeListings) ListSkus(ctx context.Context, productCode string) ([]SkuEntry, error) {
	if f.missing[productCode] {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchProduct, productCode)
	}
	return f.skus[productCode], nil
}

type fakePrices struct {
	prices   map[string]string
	failWith map[string]bool
	maxBatch int
	batches  [][]string
}

func (f *fakePrices) MaxBatchSize() int {
	return f.maxBatch
}

func (f *fakePrices) GetPrices(ctx context.Context, skuCodes []string) ([]PriceObservation, error) {
	f.batches = append(f.batches, skuCodes)
	var out []PriceObservation
	for _, code := range skuCodes {
		if f.failWith[code] {
			return nil, errors.New("internal server error")
		}
		value, ok := f.prices[code]
		if !ok {
			continue
		}
		observation := PriceObservation{SkuCode: code, RawPayload: fmt.Sprintf(`{"code":"%s"}`, code)}
		if value != "" {
			parsed := decimal.RequireFromString(value)
			observation.Price = &parsed
		}
		out = append(out, observation)
	}
	return out, nil
}

func setup(t *testing.T) (*store.Store, *telemetry.Recorder) {
	t.Helper()
	database := testutil.SetupDB(t, testutil.DBParams{ApplySchema: true})
	clock := chrono.NewFakeClock(time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC), time.Minute)
	tel := telemetry.NewRecorder()
	s, err := store.Open(context.Background(), database, store.WithClock(clock), store.WithTelemetryAPI(tel))
	require.NoError(t, err)
	return s, tel
}

func TestIngestListings(t *testing.T) {
	ctx := context.Background()
	s, tel := setup(t)
	reconciler := NewReconciler(s, WithTelemetryAPI(tel))

	clearance := true
	source := fakeListings{
		entries: []ListingEntry{
			{ProductCode: "1000000P", Name: "Kettle", Skus: []SkuEntry{
				{Code: "1000001", FormattedCode: "100-0001-2"},
				{Code: "1000002", FormattedCode: "100-0002-0"},
			}},
			{ProductCode: "2000000P", Name: "Toaster", IsInClearance: &clearance},
			{ProductCode: "3000000P", Name: "Gone"},
			{ProductCode: "bad", Name: "Bad code"},
			{ProductCode: "4000000P", Name: "Kettle v2", Skus: []SkuEntry{
				{Code: "1000002", FormattedCode: "100-0002-0"},
				{Code: "4000001", FormattedCode: "X-1"},
			}},
		},
		skus: map[string][]SkuEntry{
			"2000000P": {{Code: "2000001", FormattedCode: "20-0001-3"}},
		},
		missing: map[string]bool{"3000000P": true},
	}

	stats, err := reconciler.IngestListings(ctx, source)
	require.NoError(t, err)
	expected := ListingStats{
		Products:        3,
		InvalidProducts: 1,
		MissingProducts: 1,
		SkusCreated:     3,
		SkusReparented:  1,
		InvalidSkus:     1,
	}
	if diff := cmp.Diff(expected, stats); diff != "" {
		t.Fatal("unexpected stats (-want +got):\n", diff)
	}

	toaster, found, err := s.GetSkuByCode(ctx, "2000001")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "020-0001-3", toaster.FormattedCode)

	moved, _, err := s.GetSkuByCode(ctx, "1000002")
	require.NoError(t, err)
	kettle2, _, err := s.GetProductByCode(ctx, "4000000P")
	require.NoError(t, err)
	require.Equal(t, kettle2.ID, moved.ProductID)
	require.Len(t, tel.Reports(telemetry.LevelInfo, "store.add-sku"), 1)

	_, found, err = s.GetProductByCode(ctx, "3000000P")
	require.NoError(t, err)
	require.False(t, found)

	// a second crawl changes nothing but the listing times
	stats, err = reconciler.IngestListings(ctx, fakeListings{entries: source.entries[:1], skus: source.skus})
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.SkusUnchanged)
	require.Equal(t, int64(1), stats.SkusReparented)
}

func TestIngestPrices(t *testing.T) {
	ctx := context.Background()
	s, tel := setup(t)

	var listing ListingEntry
	listing.ProductCode = "1000000P"
	listing.Name = "Many skus"
	for i := 0; i < 7; i++ {
		listing.Skus = append(listing.Skus, SkuEntry{Code: fmt.Sprintf("%07d", 1000001+i)})
	}
	reconciler := NewReconciler(s, WithTelemetryAPI(tel), WithDiscardEqual(true), WithPriceBatchSize(10))
	require.NoError(t, reconciler.AddListing(ctx, listing, &ListingStats{}))

	source := &fakePrices{
		prices: map[string]string{
			"1000001": "10.00",
			"1000002": "",
			"1000003": "4.999",
			"1000004": "1",
			"1000006": "12.34",
			"1000007": "99.99",
		},
		failWith: map[string]bool{"1000007": true},
		maxBatch: 3,
	}

	stats, err := reconciler.IngestPrices(ctx, source)
	require.NoError(t, err)
	expected := PriceStats{
		Requested:     7,
		Samples:       3,
		NoPrice:       1,
		InvalidPrices: 1,
		FailedBatches: 1,
	}
	if diff := cmp.Diff(expected, stats); diff != "" {
		t.Fatal("unexpected stats (-want +got):\n", diff)
	}
	require.Equal(t, [][]string{
		{"1000001", "1000002", "1000003"},
		{"1000004", "1000005", "1000006"},
		{"1000007"},
	}, source.batches)
	require.Len(t, tel.Reports(telemetry.LevelWarning, report_ingest_price_batch), 1)

	// same prices again: discardEqual keeps one sample per sku
	_, err = reconciler.IngestPrices(ctx, source)
	require.NoError(t, err)
	count, err := s.CountSamples(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
}

func TestAddPriceObservationUnknownSku(t *testing.T) {
	ctx := context.Background()
	s, tel := setup(t)
	reconciler := NewReconciler(s, WithTelemetryAPI(tel))

	value := decimal.RequireFromString("1.00")
	var stats PriceStats
	err := reconciler.AddPriceObservation(ctx, PriceObservation{SkuCode: "7777777", Price: &value}, &stats)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.UnknownSkus)
	require.Len(t, tel.Reports(telemetry.LevelWarning, report_ingest_price), 1)
}

func TestIngestPricesCancelled(t *testing.T) {
	s, _ := setup(t)
	reconciler := NewReconciler(s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := reconciler.IngestPrices(ctx, &fakePrices{})
	require.ErrorIs(t, err, context.Canceled)
}
