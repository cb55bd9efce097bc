package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/stallednews/internal/cli"
	"horse.fit/stallednews/internal/config"
	"horse.fit/stallednews/internal/logging"
	"horse.fit/stallednews/internal/metrics"
	"horse.fit/stallednews/internal/pipeline"
	"horse.fit/stallednews/internal/scoring"
)

// bootstrap loads the env file, configuration and logger shared by every command.
// Failures are printed; the caller returns exit code 1.
func bootstrap(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, bool) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil && !errors.Is(err, cli.ErrNoEnvFile) {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, zerolog.Nop(), false
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return nil, zerolog.Nop(), false
	}
	return cfg, logger, true
}

func newScorer(cfg *config.Config) (*scoring.Scorer, error) {
	path := strings.TrimSpace(cfg.ScoringRulesFile)
	if path == "" {
		return scoring.NewDefaultScorer()
	}
	rules, err := scoring.LoadRules(path)
	if err != nil {
		return nil, err
	}
	return scoring.NewScorer(rules)
}

func newService(cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) (*pipeline.Service, error) {
	scorer, err := newScorer(cfg)
	if err != nil {
		return nil, fmt.Errorf("load scoring rules: %w", err)
	}
	return pipeline.NewService(scorer, m, logger), nil
}

// defaultOptions maps configuration onto pipeline options; command flags override it.
func defaultOptions(cfg *config.Config) pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.MinConfidence = cfg.MinConfidence
	opts.DedupPolicy = cfg.Policy()
	opts.HeadChars = cfg.RelevanceHeadChars
	opts.EventGate = cfg.EventRelevanceGate
	opts.Workers = cfg.ExtractWorkers
	opts.DetectLanguage = cfg.DetectLanguage
	return opts
}
