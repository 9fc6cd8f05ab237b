package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string `json:"name"`
	Retries int    `json:"retries"`
	Nested  struct {
		Enabled bool   `json:"enabled"`
		Url     string `json:"url"`
	} `json:"nested"`
}

func write(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
}

func TestLocalName(t *testing.T) {
	require.Equal(t, filepath.Join("dir", "config.local.json5"), LocalName(filepath.Join("dir", "config.json5")))
	require.Equal(t, "noext.local.", LocalName("noext"))
}

func TestReadConfigMergesLocalOverrides(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")
	write(t, name, `{
		// comments are allowed
		name: "default",
		retries: 5,
		nested: { enabled: true, url: "https://example.com" },
	}`)
	write(t, filepath.Join(dir, "config.local.json5"), `{ name: "local", nested: { url: "http://localhost" } }`)

	cfg, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Name)
	require.Equal(t, 5, cfg.Retries)
	require.True(t, cfg.Nested.Enabled)
	require.Equal(t, "http://localhost", cfg.Nested.Url)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigInvalid(t *testing.T) {
	name := filepath.Join(t.TempDir(), "config.json5")
	write(t, name, `{ name: `)
	_, err := ReadConfig[testConfig](name)
	require.Error(t, err)
	require.NotErrorIs(t, err, os.ErrNotExist)
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0777))
	write(t, filepath.Join(root, "found.json5"), `{ name: "root" }`)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() {
		os.Chdir(wd)
	})

	cfg, err := ReadRecursively[testConfig]("found.json5")
	require.NoError(t, err)
	require.Equal(t, "root", cfg.Name)

	_, err = ReadRecursively[testConfig]("does-not-exist-anywhere.json5")
	require.ErrorIs(t, err, os.ErrNotExist)
}
