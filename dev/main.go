package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"canadiantracker/internal/config"
	"canadiantracker/lib/serviceutil"
	"canadiantracker/lib/telemetry"
)

const (
	stateDir = "dev/.state"
	dbFile   = "canadiantracker.db"
)

func create(ctx context.Context, recreate bool, params seedParams) error {
	_, err := os.Stat("go.mod")
	if os.IsNotExist(err) {
		return fmt.Errorf("the dev environment must be created in the repository root (the same directory as the 'go.mod' file)")
	}

	if recreate {
		err = os.RemoveAll(stateDir)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	err = os.MkdirAll(stateDir, 0777)
	if err != nil {
		return err
	}

	path := filepath.Join(stateDir, dbFile)
	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("database already created at", path)
	} else {
		err = seed(ctx, path, params)
		if err != nil {
			return err
		}
	}

	return writeLocalConfig(path)
}

// writeLocalConfig points the commands run from the repository root at the
// dev database, unless local overrides already exist.
func writeLocalConfig(path string) error {
	localConfig := "canadiantracker.local.json5"
	_, err := os.Stat(localConfig)
	if err == nil {
		fmt.Printf("%s already exists, set `database.file` to %s to use the dev database\n", localConfig, path)
		return nil
	}
	contents := fmt.Sprintf("{\n  // created by dev/main.go\n  database: {file: %q},\n}\n", path)
	err = os.WriteFile(localConfig, []byte(contents), 0644)
	if err != nil {
		return err
	}
	fmt.Println("wrote", localConfig, "for", config.FileName)
	return nil
}

func main() {
	recreate := flag.Bool("recreate", false, "recreate the dev environment from scratch")
	products := flag.Int("products", 200, "number of products to generate")
	days := flag.Int("days", 90, "number of days of price samples to generate")
	seedValue := flag.Int64("seed", 1, "seed of the generated data")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	telemetry.InitSlog(*verbose)
	ctx := serviceutil.SignalContext()

	err := create(ctx, *recreate, seedParams{
		products: *products,
		days:     *days,
		seed:     *seedValue,
	})
	if err != nil {
		slog.Error("failed to create dev environment", "err", err.Error())
		os.Exit(1)
	}
}
