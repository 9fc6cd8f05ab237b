package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"canadiantracker/internal/codes"
	"canadiantracker/internal/components/chrono"
	"canadiantracker/internal/components/telemetry"
	"canadiantracker/internal/db"
	"canadiantracker/internal/price"
	"canadiantracker/lib/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	db    *sql.DB
	store *Store
	clock *chrono.FakeClock
	tel   *telemetry.Recorder
}

func setup(t *testing.T, options ...Option) testEnv {
	t.Helper()
	database := testutil.SetupDB(t, testutil.DBParams{ApplySchema: true})
	clock := chrono.NewFakeClock(epoch, time.Minute)
	tel := telemetry.NewRecorder()

	options = append([]Option{WithClock(clock), WithTelemetryAPI(tel)}, options...)
	s, err := Open(context.Background(), database, options...)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Discard()
	})
	return testEnv{db: database, store: s, clock: clock, tel: tel}
}

func addProduct(t *testing.T, s *Store, code, name string) Product {
	t.Helper()
	p, err := s.AddProduct(context.Background(), AddProductParams{Code: code, Name: name})
	require.NoError(t, err)
	return p
}

func addSku(t *testing.T, s *Store, productCode, code string) Sku {
	t.Helper()
	sku, _, err := s.AddSku(context.Background(), AddSkuParams{
		ProductCode:   productCode,
		Code:          code,
		FormattedCode: fmt.Sprintf("%s-%s-1", code[0:3], code[3:7]),
	})
	require.NoError(t, err)
	return sku
}

func addSample(t *testing.T, s *Store, skuCode, value string, discardEqual bool) Sample {
	t.Helper()
	sample, err := s.AddPriceSample(context.Background(), AddPriceSampleParams{
		SkuCode:      skuCode,
		Price:        decimal.RequireFromString(value),
		DiscardEqual: discardEqual,
	})
	require.NoError(t, err)
	return sample
}

func collect[T any](t *testing.T, c *Cursor[T]) []T {
	t.Helper()
	var out []T
	err := c.ForEach(context.Background(), func(item T) error {
		out = append(out, item)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestOpenSchemaVersion(t *testing.T) {
	ctx := context.Background()

	empty := testutil.SetupDB(t, testutil.DBParams{})
	_, err := Open(ctx, empty)
	require.ErrorIs(t, err, ErrWrongSchemaVersion)
	var versionErr *SchemaVersionError
	require.ErrorAs(t, err, &versionErr)
	require.Equal(t, "", versionErr.Actual)

	stale := testutil.SetupDB(t, testutil.DBParams{ApplySchema: true})
	err = db.New(stale).DeleteSchemaVersion(ctx)
	require.NoError(t, err)
	err = db.New(stale).InsertSchemaVersion(ctx, "1-old")
	require.NoError(t, err)
	_, err = Open(ctx, stale)
	require.ErrorAs(t, err, &versionErr)
	require.Equal(t, "1-old", versionErr.Actual)
	require.Equal(t, db.SchemaVersion, versionErr.Expected)

	current := testutil.SetupDB(t, testutil.DBParams{ApplySchema: true})
	_, err = Open(ctx, current)
	require.NoError(t, err)
}

func TestAddProduct(t *testing.T) {
	ctx := context.Background()
	env := setup(t)

	_, err := env.store.AddProduct(ctx, AddProductParams{Code: "1234567", Name: "no suffix"})
	require.ErrorIs(t, err, codes.ErrInvalidFormat)
	_, _, err = env.store.GetProductByCode(ctx, "12345P")
	require.ErrorIs(t, err, codes.ErrInvalidFormat)

	clearance := true
	first, err := env.store.AddProduct(ctx, AddProductParams{
		Code:          "1234567P",
		Name:          "Drill",
		IsInClearance: &clearance,
		URL:           "/drill-1234567p.html",
	})
	require.NoError(t, err)
	require.Equal(t, epoch, first.LastListed)

	second, err := env.store.AddProduct(ctx, AddProductParams{Code: "1234567P", Name: "Cordless Drill"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.True(t, second.LastListed.After(first.LastListed))

	got, found, err := env.store.GetProductByCode(ctx, "1234567P")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Cordless Drill", got.Name)
	require.Nil(t, got.IsInClearance)
	require.Equal(t, "", got.URL)
	require.Equal(t, second.LastListed, got.LastListed)

	_, found, err = env.store.GetProductByCode(ctx, "7654321P")
	require.NoError(t, err)
	require.False(t, found)

	count, err := env.store.CountProducts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestAddSku(t *testing.T) {
	ctx := context.Background()
	env := setup(t)

	_, _, err := env.store.AddSku(ctx, AddSkuParams{ProductCode: "1111111P", Code: "1111111"})
	require.ErrorIs(t, err, ErrUnknownProduct)

	first := addProduct(t, env.store, "1111111P", "Kettle")
	second := addProduct(t, env.store, "2222222P", "Kettle (renamed)")

	sku, outcome, err := env.store.AddSku(ctx, AddSkuParams{ProductCode: "1111111P", Code: "1111111", FormattedCode: "111-1111-1"})
	require.NoError(t, err)
	require.Equal(t, SkuCreated, outcome)
	require.Equal(t, first.ID, sku.ProductID)
	addSku(t, env.store, "1111111P", "1111112")

	_, outcome, err = env.store.AddSku(ctx, AddSkuParams{ProductCode: "1111111P", Code: "1111111", FormattedCode: "111-1111-1"})
	require.NoError(t, err)
	require.Equal(t, SkuUnchanged, outcome)

	moved, outcome, err := env.store.AddSku(ctx, AddSkuParams{ProductCode: "2222222P", Code: "1111111", FormattedCode: "111-1111-1"})
	require.NoError(t, err)
	require.Equal(t, SkuReparented, outcome)
	require.Equal(t, sku.ID, moved.ID)
	require.Equal(t, second.ID, moved.ProductID)
	require.Len(t, env.tel.Reports(telemetry.LevelInfo, report_sku_reparent), 1)

	remaining, err := env.store.SkusOfProduct(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "1111112", remaining[0].Code)

	byFormatted, found, err := env.store.GetSkuByFormattedCode(ctx, "111-1111-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, second.ID, byFormatted.ProductID)

	_, found, err = env.store.GetSkuByCode(ctx, "9999999")
	require.NoError(t, err)
	require.False(t, found)
}

func TestAddPriceSample(t *testing.T) {
	ctx := context.Background()
	env := setup(t)

	_, err := env.store.AddPriceSample(ctx, AddPriceSampleParams{SkuCode: "1000000", Price: decimal.RequireFromString("1.00")})
	require.ErrorIs(t, err, ErrUnknownSku)

	addProduct(t, env.store, "1000000P", "Hammer")
	sku := addSku(t, env.store, "1000000P", "1000000")

	_, err = env.store.AddPriceSample(ctx, AddPriceSampleParams{SkuCode: "1000000", Price: decimal.RequireFromString("1.005")})
	require.ErrorIs(t, err, price.ErrSubCent)

	addSample(t, env.store, "1000000", "19.99", true)
	latest := addSample(t, env.store, "1000000", "19.99", true)

	samples := collect(t, env.store.Samples(0))
	require.Len(t, samples, 1)
	require.Equal(t, latest.ID, samples[0].ID)
	require.Equal(t, int64(1999), samples[0].PriceCents)
	require.Equal(t, "19.99", samples[0].Price().StringFixed(2))

	addSample(t, env.store, "1000000", "17.49", true)
	addSample(t, env.store, "1000000", "17.49", false)

	samples = collect(t, env.store.Samples(0))
	require.Len(t, samples, 3)
	for i := 1; i < len(samples); i++ {
		require.True(t, samples[i].Time.After(samples[i-1].Time))
	}

	last, found, err := env.store.LatestSample(ctx, sku.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, samples[2].ID, last.ID)
}

type frozenClock struct {
	now time.Time
}

func (c frozenClock) Now() time.Time            { return c.now }
func (c frozenClock) Location() *time.Location { return time.UTC }

func TestAddPriceSampleIsAlwaysLatest(t *testing.T) {
	ctx := context.Background()
	env := setup(t, WithClock(frozenClock{now: epoch}))

	addProduct(t, env.store, "1000000P", "Hammer")
	sku := addSku(t, env.store, "1000000P", "1000000")

	first := addSample(t, env.store, "1000000", "1.00", false)
	second := addSample(t, env.store, "1000000", "2.00", false)
	require.Equal(t, epoch, first.Time)
	require.Equal(t, epoch.Add(time.Microsecond), second.Time)

	last, _, err := env.store.LatestSample(ctx, sku.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, last.ID)
}

func TestFlushAndDiscard(t *testing.T) {
	ctx := context.Background()
	env := setup(t, WithFlushEvery(3))

	addProduct(t, env.store, "1000000P", "a")
	addProduct(t, env.store, "2000000P", "b")
	require.Equal(t, 2, env.store.Pending())
	addProduct(t, env.store, "3000000P", "c")
	require.Equal(t, 0, env.store.Pending())

	addProduct(t, env.store, "4000000P", "d")
	require.NoError(t, env.store.Discard())

	count, err := env.store.CountProducts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	addProduct(t, env.store, "5000000P", "e")
	require.NoError(t, env.store.Close(ctx))
	count, err = db.New(env.db).CountProducts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(4), count)
}

func TestCursors(t *testing.T) {
	ctx := context.Background()
	env := setup(t)

	for i := 0; i < 25; i++ {
		addProduct(t, env.store, fmt.Sprintf("%07dP", 1000000+i), fmt.Sprintf("product %d", i))
	}

	cursor := env.store.Products(10)
	var sizes []int
	for {
		page, err := cursor.Next(ctx)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		sizes = append(sizes, len(page))
	}
	require.Equal(t, []int{10, 10, 5}, sizes)

	products := collect(t, env.store.Products(7))
	require.Len(t, products, 25)
	for i := 1; i < len(products); i++ {
		require.Greater(t, products[i].ID, products[i-1].ID)
	}

	// products listed before the cutoff are stale, the last ones are not
	cutoff := products[20].LastListed
	stale := collect(t, env.store.StaleProducts(cutoff, 3))
	require.Len(t, stale, 20)
}

func TestCursorWritesBetweenPages(t *testing.T) {
	ctx := context.Background()
	env := setup(t, WithFlushEvery(2))

	addProduct(t, env.store, "1000000P", "a")
	for i := 0; i < 6; i++ {
		addSku(t, env.store, "1000000P", fmt.Sprintf("%07d", 1000000+i))
	}
	for i := 0; i < 6; i++ {
		addSample(t, env.store, fmt.Sprintf("%07d", 1000000+i), "5.00", false)
	}

	deleted := 0
	err := env.store.Samples(2).ForEach(ctx, func(s Sample) error {
		deleted++
		return env.store.DeleteSample(ctx, s.ID)
	})
	require.NoError(t, err)
	require.Equal(t, 6, deleted)
	require.NoError(t, env.store.Flush(ctx))

	count, err := env.store.CountSamples(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), count)
}

func TestProductHistory(t *testing.T) {
	env := setup(t)

	product := addProduct(t, env.store, "1000000P", "Tent")
	addSku(t, env.store, "1000000P", "1000001")
	addSku(t, env.store, "1000000P", "1000002")
	addProduct(t, env.store, "2000000P", "Other")
	addSku(t, env.store, "2000000P", "2000001")

	addSample(t, env.store, "1000001", "10.00", false)
	addSample(t, env.store, "1000002", "11.00", false)
	addSample(t, env.store, "2000001", "99.00", false)
	addSample(t, env.store, "1000001", "9.00", false)

	history := collect(t, env.store.ProductHistory(product.ID, 2))
	require.Len(t, history, 3)
	require.Equal(t, "1000001", history[0].SkuCode)
	require.Equal(t, "1000002", history[1].SkuCode)
	require.Equal(t, "1000001", history[2].SkuCode)
	require.Equal(t, int64(900), history[2].PriceCents)
}

func TestVacuum(t *testing.T) {
	ctx := context.Background()
	env := setup(t)

	addProduct(t, env.store, "1000000P", "a")
	require.Equal(t, 1, env.store.Pending())
	require.NoError(t, env.store.Vacuum(ctx))
	require.Equal(t, 0, env.store.Pending())

	count, err := env.store.CountProducts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}
