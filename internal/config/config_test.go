package config

import (
	"os"
	"path/filepath"
	"testing"

	"canadiantracker/internal/prune"
	"canadiantracker/internal/scrapers/triangle"
	"canadiantracker/internal/store"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	previous, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		os.Chdir(previous)
	})
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "canadiantracker.db", cfg.Database.File)
	require.Equal(t, triangle.DefaultBaseURL, cfg.Triangle.BaseURL)
	require.Equal(t, store.DefaultFlushEvery, cfg.Store.FlushEvery)
	require.Equal(t, prune.DefaultFlushEvery, cfg.Prune.FlushEvery)
	require.Equal(t, 8000, cfg.Server.Port)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, FileName), []byte(`{
		// remote database
		database: {url: "libsql://prices.example.com", auth_token: "abc"},
		triangle: {requests_per_second: 0.5, price_batch_size: 20},
		prune: {flush_every: 100, no_vacuum: true},
		server: {port: 9000, access_token: "secret"},
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "canadiantracker.local.json5"), []byte(`{
		server: {port: 9001},
	}`), 0600)
	require.NoError(t, err)

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0777))
	chdir(t, nested)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "libsql://prices.example.com", cfg.Database.String())
	require.Empty(t, cfg.Database.File)
	require.Equal(t, 0.5, cfg.Triangle.RequestsPerSecond)
	require.Equal(t, 20, cfg.Triangle.PriceBatchSize)
	require.Equal(t, 100, cfg.Prune.FlushEvery)
	require.True(t, cfg.Prune.NoVacuum)
	require.Equal(t, 9001, cfg.Server.Port)
	require.Equal(t, "secret", cfg.Server.AccessToken)
}
