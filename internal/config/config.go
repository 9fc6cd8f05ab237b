// Package config is the configuration file shared by the ctscraper, ctquery
// and ctserver commands.
package config

import (
	"context"
	"database/sql"
	"errors"
	"os"

	"canadiantracker/internal/prune"
	"canadiantracker/internal/scrapers/triangle"
	"canadiantracker/internal/store"
	"canadiantracker/lib/configutil"
	configlibsql "canadiantracker/lib/configutil/libsql"
)

// FileName is searched for in the working directory and its parents,
// canadiantracker.local.json5 next to it overrides its values.
const FileName = "canadiantracker.json5"

type StoreConfig struct {
	FlushEvery int `json:"flush_every"`
}

type PruneConfig struct {
	FlushEvery int  `json:"flush_every"`
	BatchSize  int  `json:"batch_size"`
	NoVacuum   bool `json:"no_vacuum"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	// AccessToken, when set, must be sent as a bearer token with every request.
	AccessToken string `json:"access_token"`
}

type Config struct {
	Database configlibsql.Struct `json:"database"`
	Triangle triangle.Config     `json:"triangle"`
	Store    StoreConfig         `json:"store"`
	Prune    PruneConfig         `json:"prune"`
	Server   ServerConfig        `json:"server"`
}

func (cfg Config) WithDefaults() Config {
	if cfg.Database.File == "" && cfg.Database.Url == "" {
		cfg.Database.File = "canadiantracker.db"
	}
	cfg.Triangle = cfg.Triangle.WithDefaults()
	if cfg.Store.FlushEvery <= 0 {
		cfg.Store.FlushEvery = store.DefaultFlushEvery
	}
	if cfg.Prune.FlushEvery <= 0 {
		cfg.Prune.FlushEvery = prune.DefaultFlushEvery
	}
	if cfg.Prune.BatchSize <= 0 {
		cfg.Prune.BatchSize = store.DefaultBatchSize
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8000
	}
	return cfg
}

// Load reads the configuration file, without one every value is a default.
func Load() (Config, error) {
	cfg, err := configutil.ReadRecursively[Config](FileName)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}.WithDefaults(), nil
	}
	if err != nil {
		return Config{}, err
	}
	return cfg.WithDefaults(), nil
}

// OpenStore opens the configured database and a store over it, the store
// uses the configured flush interval.
func (cfg Config) OpenStore(ctx context.Context, options ...store.Option) (*sql.DB, *store.Store, error) {
	database, err := cfg.Database.OpenDB()
	if err != nil {
		return nil, nil, err
	}
	options = append([]store.Option{store.WithFlushEvery(cfg.Store.FlushEvery)}, options...)
	s, err := store.Open(ctx, database, options...)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return database, s, nil
}
