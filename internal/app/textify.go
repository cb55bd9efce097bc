package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"horse.fit/stallednews/internal/cli"
	"horse.fit/stallednews/internal/evidence"
	"horse.fit/stallednews/internal/reader"
)

func runTextify(args []string) int {
	fs := flag.NewFlagSet("textify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	corpus := fs.String("corpus", "", "Path to evidence.json")
	textDir := fs.String("text-dir", "", "Directory for rendered text files (default: <corpus dir>/texts)")
	out := fs.String("out", "", "Where to write the updated corpus (default: overwrite --corpus)")
	force := fs.Bool("force", false, "Render sources even when raw_hash is unchanged")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	corpusPath := strings.TrimSpace(*corpus)
	if corpusPath == "" {
		fmt.Fprintln(os.Stderr, "--corpus is required")
		return 2
	}
	dir := strings.TrimSpace(*textDir)
	if dir == "" {
		dir = filepath.Join(filepath.Dir(corpusPath), "texts")
	}
	outPath := strings.TrimSpace(*out)
	if outPath == "" {
		outPath = corpusPath
	}

	_, logger, ok := bootstrap(envLoader)
	if !ok {
		return 1
	}

	docs, err := evidence.LoadCorpus(corpusPath)
	if err != nil {
		logger.Error().Err(err).Msg("textify failed to load corpus")
		fmt.Fprintf(os.Stderr, "Textify failed: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	updated, stats, err := reader.Textify(ctx, docs, reader.Options{TextDir: dir, Force: *force}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Textify failed: %v\n", err)
		return 1
	}
	if err := evidence.WriteCorpus(outPath, updated); err != nil {
		fmt.Fprintf(os.Stderr, "Textify failed: %v\n", err)
		return 1
	}

	outcomes := make([]string, 0, len(stats))
	for outcome := range stats {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)
	parts := make([]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		parts = append(parts, fmt.Sprintf("%s=%d", outcome, stats[outcome]))
	}
	fmt.Printf("textify docs=%d %s corpus=%s\n", len(updated), strings.Join(parts, " "), outPath)

	if stats[reader.OutcomeFailed] > 0 {
		return 1
	}
	return 0
}
