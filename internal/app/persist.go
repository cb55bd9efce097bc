package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"horse.fit/stallednews/internal/cli"
	"horse.fit/stallednews/internal/db"
	"horse.fit/stallednews/internal/store"
)

func runPersist(args []string) int {
	fs := flag.NewFlagSet("persist", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	run := fs.String("run", "", "Run directory holding the event artifacts and run.json")
	name := fs.String("name", "", "Run name stored with the events (default: run directory name)")
	timeout := fs.Duration("timeout", 30*time.Second, "Database timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	runDir := strings.TrimSpace(*run)
	if runDir == "" {
		fmt.Fprintln(os.Stderr, "--run is required")
		return 2
	}
	runName := strings.TrimSpace(*name)
	if runName == "" {
		runName = filepath.Base(filepath.Clean(runDir))
	}

	cfg, logger, ok := bootstrap(envLoader)
	if !ok {
		return 1
	}
	if err := cfg.RequireDatabase(); err != nil {
		fmt.Fprintf(os.Stderr, "Persist failed: %v\n", err)
		return 1
	}

	artifacts, err := store.Read(runDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Persist failed: %v\n", err)
		return 1
	}
	record, err := db.BuildRunRecord(runName, artifacts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Persist failed: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("persist failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	runID, err := pool.SaveRun(ctx, record)
	if err != nil {
		logger.Error().Err(err).Str("run", runName).Msg("persist failed")
		fmt.Fprintf(os.Stderr, "Persist failed: %v\n", err)
		return 1
	}

	logger.Info().
		Int64("run_id", runID).
		Str("run_uuid", record.Run.RunUUID).
		Int("events", len(record.Events)).
		Msg("run persisted")
	fmt.Printf("persist run=%s run_uuid=%s raw=%d deduped=%d\n", runName, record.Run.RunUUID, record.Run.RawCount, record.Run.DedupedCount)
	return 0
}
