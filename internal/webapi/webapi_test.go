package webapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"canadiantracker/internal/components/chrono"
	"canadiantracker/internal/components/telemetry"
	"canadiantracker/internal/store"
	"canadiantracker/lib/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const token = "secret"

func setup(t *testing.T) (*httptest.Server, *telemetry.Recorder) {
	t.Helper()
	ctx := context.Background()
	database := testutil.SetupDB(t, testutil.DBParams{ApplySchema: true})
	clock := chrono.NewFakeClock(time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC), time.Hour)
	s, err := store.Open(ctx, database, store.WithClock(clock))
	require.NoError(t, err)

	clearance := true
	_, err = s.AddProduct(ctx, store.AddProductParams{
		Code:          "0000001P",
		Name:          "Yeti Tundra 45 Cooler",
		IsInClearance: &clearance,
		URL:           "/en/pdp/yeti-0000001p.html",
	})
	require.NoError(t, err)
	_, _, err = s.AddSku(ctx, store.AddSkuParams{ProductCode: "0000001P", Code: "0000011", FormattedCode: "000-0011-1"})
	require.NoError(t, err)
	_, _, err = s.AddSku(ctx, store.AddSkuParams{ProductCode: "0000001P", Code: "0000012"})
	require.NoError(t, err)
	for _, value := range []string{"299.99", "249.99"} {
		_, err = s.AddPriceSample(ctx, store.AddPriceSampleParams{
			SkuCode: "0000011",
			Price:   decimal.RequireFromString(value),
			InPromo: value == "249.99",
		})
		require.NoError(t, err)
	}
	require.NoError(t, s.Flush(ctx))

	tel := telemetry.NewRecorder()
	server := NewServer(s, WithTelemetryAPI(tel))
	srv := httptest.NewServer(server.Handler(token))
	t.Cleanup(srv.Close)
	return srv, tel
}

func get(t *testing.T, srv *httptest.Server, path string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(body)
}

func TestUnauthorized(t *testing.T) {
	srv, _ := setup(t)
	res, err := srv.Client().Get(srv.URL + "/api/products")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestProducts(t *testing.T) {
	srv, _ := setup(t)

	status, body := get(t, srv, "/api/products")
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `[{
		"code": "0000001P",
		"name": "Yeti Tundra 45 Cooler",
		"is_in_clearance": true,
		"url": "/en/pdp/yeti-0000001p.html"
	}]`, body)

	status, body = get(t, srv, "/api/products/0000001p")
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{
		"code": "0000001P",
		"name": "Yeti Tundra 45 Cooler",
		"is_in_clearance": true,
		"url": "/en/pdp/yeti-0000001p.html",
		"last_listed": "2024-03-01T12:00:00Z",
		"skus": [
			{"code": "0000011", "formatted_code": "000-0011-1"},
			{"code": "0000012"}
		]
	}`, body)
}

func TestHistory(t *testing.T) {
	srv, _ := setup(t)

	status, body := get(t, srv, "/api/products/0000001P/history")
	require.Equal(t, http.StatusOK, status)

	var points []map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &points))
	require.Equal(t, []map[string]string{
		{"datetime": "2024-03-01T13:00:00Z", "price": "299.99"},
		{"datetime": "2024-03-01T14:00:00Z", "price": "249.99"},
	}, points)
}

func TestSku(t *testing.T) {
	srv, _ := setup(t)

	expected := `{
		"code": "0000011",
		"formatted_code": "000-0011-1",
		"product": {
			"code": "0000001P",
			"name": "Yeti Tundra 45 Cooler",
			"is_in_clearance": true,
			"url": "/en/pdp/yeti-0000001p.html"
		},
		"latest": {"datetime": "2024-03-01T14:00:00Z", "price": "249.99", "in_promo": true}
	}`
	for _, path := range []string{"/api/skus/0000011", "/api/skus/000-0011-1", "/api/skus/0-0011-1"} {
		status, body := get(t, srv, path)
		require.Equal(t, http.StatusOK, status, path)
		require.JSONEq(t, expected, body, path)
	}

	status, body := get(t, srv, "/api/skus/0000012")
	require.Equal(t, http.StatusOK, status)
	require.NotContains(t, body, "latest")
}

func TestErrors(t *testing.T) {
	srv, tel := setup(t)

	cases := []struct {
		path   string
		status int
	}{
		{"/api/products/bad", http.StatusBadRequest},
		{"/api/products/9999999P", http.StatusNotFound},
		{"/api/products/bad/history", http.StatusBadRequest},
		{"/api/products/9999999P/history", http.StatusNotFound},
		{"/api/skus/12", http.StatusBadRequest},
		{"/api/skus/12-34", http.StatusBadRequest},
		{"/api/skus/7777777", http.StatusNotFound},
		{"/api/nothing", http.StatusNotFound},
	}
	for _, c := range cases {
		status, _ := get(t, srv, c.path)
		require.Equal(t, c.status, status, c.path)
	}
	require.Empty(t, tel.Reports(telemetry.LevelBroken, ""))
}

func TestConcurrentRequests(t *testing.T) {
	srv, tel := setup(t)
	paths := []string{
		"/api/products",
		"/api/products/0000001P",
		"/api/products/0000001P/history",
		"/api/skus/000-0011-1",
	}
	expected := map[string]string{}
	for _, path := range paths {
		status, body := get(t, srv, path)
		require.Equal(t, http.StatusOK, status, path)
		expected[path] = body
	}

	type response struct {
		path   string
		status int
		body   string
		err    error
	}
	responses := make(chan response, 10*len(paths))
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		for _, path := range paths {
			wg.Add(1)
			go func(path string) {
				defer wg.Done()
				out := response{path: path}
				defer func() { responses <- out }()

				req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
				if err != nil {
					out.err = err
					return
				}
				req.Header.Set("Authorization", "Bearer "+token)
				res, err := srv.Client().Do(req)
				if err != nil {
					out.err = err
					return
				}
				defer res.Body.Close()
				body, err := io.ReadAll(res.Body)
				out.status, out.body, out.err = res.StatusCode, string(body), err
			}(path)
		}
	}
	wg.Wait()
	close(responses)

	for res := range responses {
		require.NoError(t, res.err, res.path)
		require.Equal(t, http.StatusOK, res.status, res.path)
		require.Equal(t, expected[res.path], res.body, res.path)
	}
	require.Empty(t, tel.Reports(telemetry.LevelBroken, ""))
}
