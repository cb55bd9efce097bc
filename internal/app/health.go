package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/stallednews/internal/cli"
	"horse.fit/stallednews/internal/db"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Second, "Database ping timeout")
	recent := fs.Int("recent", 5, "Number of recently persisted runs to list")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, logger, ok := bootstrap(envLoader)
	if !ok {
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("health check failed")
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer pool.Close()

	runs, err := pool.ListRuns(ctx, *recent)
	if err != nil {
		logger.Error().Err(err).Msg("health check failed to list runs")
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}

	logger.Info().Int("recent_runs", len(runs)).Msg("database is healthy")
	fmt.Println("ok")
	for _, run := range runs {
		fmt.Printf("  %s %s %q deduped=%d\n", run.ExtractedAt.Format(time.RFC3339), run.RunName, run.ProjectName, run.DedupedCount)
	}
	return 0
}
