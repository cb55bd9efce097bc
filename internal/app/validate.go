package app

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"horse.fit/stallednews/internal/evidence"
	"horse.fit/stallednews/internal/pipeline"
	"horse.fit/stallednews/internal/store"
	"horse.fit/stallednews/internal/timeline"
	payloadschema "horse.fit/stallednews/schema"
)

const corpusFileName = "evidence.json"

type validateResult struct {
	Corpora    int
	Runs       int
	Invalid    int
	Violations int
}

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	corpus := fs.String("corpus", "", "Evidence corpus file to validate")
	run := fs.String("run", "", "Run directory whose artifacts should be checked")
	dir := fs.String("dir", "", "Directory scanned for corpora and run directories")
	recursive := fs.Bool("recursive", true, "Recursively scan subdirectories of --dir")
	minConfidence := fs.Float64("min-confidence", pipeline.DefaultMinConfidence, "Confidence floor the events must satisfy")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	var corpora, runs []string
	if v := strings.TrimSpace(*corpus); v != "" {
		corpora = append(corpora, v)
	}
	if v := strings.TrimSpace(*run); v != "" {
		runs = append(runs, v)
	}
	if root := strings.TrimSpace(*dir); root != "" {
		files, err := collectJSONFiles(root, *recursive)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Validation setup failed: %v\n", err)
			return 1
		}
		for _, path := range files {
			switch filepath.Base(path) {
			case corpusFileName:
				corpora = append(corpora, path)
			case store.DedupedFileName:
				runs = append(runs, filepath.Dir(path))
			}
		}
	}
	if len(corpora) == 0 && len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "one of --corpus, --run or --dir is required")
		return 2
	}

	result := validateResult{}
	for _, path := range corpora {
		result.Corpora++
		docs, err := evidence.LoadCorpus(path)
		if err != nil {
			result.Invalid++
			fmt.Fprintf(os.Stderr, "INVALID %s: %v\n", path, err)
			continue
		}
		fmt.Printf("corpus %s docs=%d\n", path, len(docs))
	}
	for _, runDir := range runs {
		result.Runs++
		violations, err := validateRun(runDir, *minConfidence)
		if err != nil {
			result.Invalid++
			fmt.Fprintf(os.Stderr, "INVALID %s: %v\n", runDir, err)
			continue
		}
		for _, v := range violations {
			fmt.Fprintf(os.Stderr, "VIOLATION %s: %s\n", runDir, v)
		}
		result.Violations += len(violations)
	}

	fmt.Printf(
		"validate corpora=%d runs=%d invalid=%d violations=%d\n",
		result.Corpora,
		result.Runs,
		result.Invalid,
		result.Violations,
	)

	if result.Invalid > 0 || result.Violations > 0 {
		return 1
	}
	return 0
}

// validateRun checks a run's event files against their schema, then checks every
// event against its source text and the dedup ordering.
func validateRun(dir string, minConfidence float64) ([]timeline.Violation, error) {
	for _, name := range []string{store.RawFileName, store.DedupedFileName} {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if err := payloadschema.ValidateTimelineEvents(raw); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	artifacts, err := store.Read(dir)
	if err != nil {
		return nil, err
	}

	policy := timeline.DefaultPolicy
	var extractedAt time.Time
	if m := artifacts.Manifest; m != nil {
		extractedAt = m.CreatedAt
		if parsed, err := timeline.ParsePolicy(m.DedupPolicy); err == nil {
			policy = parsed
		}
		minConfidence = max(minConfidence, m.MinConfidence)
	}

	loader := func(path string) (string, error) {
		return evidence.ReadText(evidence.Document{TextPath: path})
	}

	var violations []timeline.Violation
	violations = append(violations, timeline.Verify(artifacts.Raw, minConfidence, extractedAt, loader)...)
	violations = append(violations, timeline.Verify(artifacts.Deduped, minConfidence, extractedAt, loader)...)
	violations = append(violations, timeline.VerifyDeduped(artifacts.Deduped, policy)...)
	if len(artifacts.Timeline) != len(artifacts.Deduped) {
		violations = append(violations, timeline.Violation{
			Index:  -1,
			Rule:   "timeline",
			Detail: fmt.Sprintf("%d timeline entries for %d deduped events", len(artifacts.Timeline), len(artifacts.Deduped)),
		})
	}
	return violations, nil
}

func collectJSONFiles(root string, recursive bool) ([]string, error) {
	cleanRoot := strings.TrimSpace(root)
	if cleanRoot == "" {
		return nil, fmt.Errorf("directory path is empty")
	}

	info, err := os.Stat(cleanRoot)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", cleanRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", cleanRoot)
	}

	var files []string
	if !recursive {
		entries, err := os.ReadDir(cleanRoot)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", cleanRoot, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			if strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
				files = append(files, filepath.Join(cleanRoot, entry.Name()))
			}
		}
		sort.Strings(files)
		return files, nil
	}

	err = filepath.WalkDir(cleanRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != cleanRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory %s: %w", cleanRoot, err)
	}

	sort.Strings(files)
	return files, nil
}
