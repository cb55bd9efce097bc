package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"horse.fit/stallednews/internal/cli"
	"horse.fit/stallednews/internal/identity"
	"horse.fit/stallednews/internal/metrics"
	"horse.fit/stallednews/internal/pipeline"
	"horse.fit/stallednews/internal/timeline"
)

type extractSummary struct {
	RunID         string `json:"run_id"`
	RawPath       string `json:"raw_path"`
	DedupedPath   string `json:"deduped_path"`
	TimelinePath  string `json:"timeline_path"`
	ManifestPath  string `json:"manifest_path"`
	Documents     int    `json:"documents"`
	Accepted      int    `json:"accepted"`
	RawEvents     int    `json:"raw_events"`
	DedupedEvents int    `json:"deduped_events"`
}

func runExtract(args []string) int {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	corpus := fs.String("corpus", "", "Path to evidence.json")
	out := fs.String("out", "", "Output directory (default: the corpus directory)")
	project := fs.String("project", "", "Project name")
	city := fs.String("city", "", "Project city")
	reraID := fs.String("rera-id", "", "Regulator registration identifier")
	projectFile := fs.String("project-file", "", "JSON file with project_name, city and rera_id")
	minConfidence := fs.Float64("min-confidence", pipeline.DefaultMinConfidence, "Drop candidates scored below this value")
	dedupPolicy := fs.String("dedup-policy", string(timeline.DefaultPolicy), "Dedup key: per_source or collapse")
	eventGate := fs.Bool("event-gate", false, "Also require each snippet to mention the project")
	workers := fs.Int("workers", pipeline.DefaultWorkers, "Documents processed concurrently")

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

	input, err := resolveProjectInput(*projectFile, *project, *city, *reraID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid project: %v\n", err)
		return 2
	}
	id, err := identity.New(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid project: %v\n", err)
		return 2
	}

	cfg, logger, ok := bootstrap(envLoader)
	if !ok {
		return 1
	}

	opts := defaultOptions(cfg)
	set := visitedFlags(fs)
	if set["min-confidence"] {
		opts.MinConfidence = *minConfidence
	}
	if set["dedup-policy"] {
		policy, err := timeline.ParsePolicy(*dedupPolicy)
		if err != nil {
			fmt.Fprintf(os.Stderr, "--dedup-policy: %v\n", err)
			return 2
		}
		opts.DedupPolicy = policy
	}
	if set["event-gate"] {
		opts.EventGate = *eventGate
	}
	if set["workers"] {
		opts.Workers = *workers
	}
	if opts.MinConfidence < 0 || opts.MinConfidence > 1 {
		fmt.Fprintln(os.Stderr, "--min-confidence must be between 0 and 1")
		return 2
	}

	outDir := strings.TrimSpace(*out)
	if outDir == "" {
		outDir = filepath.Dir(corpusPath)
	}

	svc, err := newService(cfg, metrics.New(), logger)
	if err != nil {
		logger.Error().Err(err).Msg("extract setup failed")
		fmt.Fprintf(os.Stderr, "Extract failed: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := svc.Run(ctx, pipeline.RunRequest{
		CorpusPath: corpusPath,
		OutDir:     outDir,
		Identity:   id,
		Options:    opts,
	})
	if err != nil {
		logger.Error().Err(err).Str("corpus", corpusPath).Msg("extract failed")
		fmt.Fprintf(os.Stderr, "Extract failed: %v\n", err)
		return 1
	}

	summary := extractSummary{
		RunID:         result.Manifest.RunID,
		RawPath:       result.Paths.Raw,
		DedupedPath:   result.Paths.Deduped,
		TimelinePath:  result.Paths.Timeline,
		ManifestPath:  result.ManifestPath,
		Documents:     result.Stats.Documents,
		Accepted:      result.Stats.Accepted,
		RawEvents:     result.Stats.RawEvents,
		DedupedEvents: result.Stats.DedupedEvents,
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to print summary: %v\n", err)
		return 1
	}
	return 0
}

// resolveProjectInput reads the project file when given; non-empty flags override its
// fields.
func resolveProjectInput(projectFile, project, city, reraID string) (identity.Input, error) {
	var input identity.Input
	if path := strings.TrimSpace(projectFile); path != "" {
		loaded, err := identity.LoadInput(path)
		if err != nil {
			return identity.Input{}, err
		}
		input = loaded
	}
	if v := strings.TrimSpace(project); v != "" {
		input.ProjectName = v
	}
	if v := strings.TrimSpace(city); v != "" {
		input.City = v
	}
	if v := strings.TrimSpace(reraID); v != "" {
		input.RegistrationID = v
	}
	if err := input.Validate(); err != nil {
		return identity.Input{}, err
	}
	return input, nil
}

func visitedFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}
