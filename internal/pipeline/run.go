package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"horse.fit/stallednews/internal/evidence"
	"horse.fit/stallednews/internal/globaltime"
	"horse.fit/stallednews/internal/identity"
	"horse.fit/stallednews/internal/store"
)

// RunRequest is one corpus-to-directory extraction.
type RunRequest struct {
	CorpusPath string
	OutDir     string
	Identity   *identity.Identity
	Options    Options
}

// RunOutput reports where the artifacts went and what the run counted.
type RunOutput struct {
	Paths        store.Paths    `json:"paths"`
	ManifestPath string         `json:"manifest_path"`
	Manifest     store.Manifest `json:"manifest"`
	Stats        Stats          `json:"stats"`
}

// Run loads the corpus, extracts events and stores the artifacts with a run.json
// manifest. A corpus that cannot be read or validated fails the run before anything is
// written.
func (s *Service) Run(ctx context.Context, req RunRequest) (RunOutput, error) {
	if strings.TrimSpace(req.OutDir) == "" {
		return RunOutput{}, fmt.Errorf("output directory is required")
	}

	docs, err := evidence.LoadCorpus(req.CorpusPath)
	if err != nil {
		return RunOutput{}, err
	}

	opts := normalizeOptions(req.Options)
	result, err := s.ExtractEvents(ctx, docs, req.Identity, opts)
	if err != nil {
		return RunOutput{}, err
	}

	paths, err := store.Write(result.Raw, result.Deduped, req.OutDir)
	if err != nil {
		return RunOutput{}, err
	}

	manifest := store.Manifest{
		RunID:          uuid.NewString(),
		CreatedAt:      globaltime.UTC(),
		ProjectName:    req.Identity.Name(),
		City:           req.Identity.City(),
		RegistrationID: req.Identity.RegistrationID(),
		CorpusPath:     req.CorpusPath,
		MinConfidence:  opts.MinConfidence,
		DedupPolicy:    string(opts.DedupPolicy),
		RawCount:       len(result.Raw),
		DedupedCount:   len(result.Deduped),
		Stats:          result.Stats.Map(),
		Languages:      result.Stats.Languages,
	}
	manifestPath, err := store.WriteManifest(req.OutDir, manifest)
	if err != nil {
		return RunOutput{}, err
	}

	s.logger.Info().
		Str("run_id", manifest.RunID).
		Str("out_dir", req.OutDir).
		Int("deduped_events", manifest.DedupedCount).
		Msg("timeline artifacts written")

	return RunOutput{
		Paths:        paths,
		ManifestPath: manifestPath,
		Manifest:     manifest,
		Stats:        result.Stats,
	}, nil
}
