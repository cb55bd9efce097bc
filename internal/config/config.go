package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"horse.fit/stallednews/internal/relevance"
	"horse.fit/stallednews/internal/timeline"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBMinConns  int32  `envconfig:"SN_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"SN_DB_MAX_CONNS" default:"8"`

	MinConfidence      float64 `envconfig:"MIN_CONFIDENCE" default:"0.55"`
	DedupPolicy        string  `envconfig:"DEDUP_POLICY" default:"per_source"`
	ExtractWorkers     int     `envconfig:"EXTRACT_WORKERS" default:"4"`
	RelevanceHeadChars int     `envconfig:"RELEVANCE_HEAD_CHARS" default:"6000"`
	EventRelevanceGate bool    `envconfig:"EVENT_RELEVANCE_GATE" default:"false"`
	ScoringRulesFile   string  `envconfig:"SCORING_RULES_FILE" default:""`
	DetectLanguage     bool    `envconfig:"DETECT_LANGUAGE" default:"true"`

	RunsRoot           string `envconfig:"SN_RUNS_ROOT" default:"runs"`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBMinConns < 0 {
		return fmt.Errorf("SN_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("SN_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("SN_DB_MIN_CONNS (%d) cannot exceed SN_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("MIN_CONFIDENCE must be within [0, 1]")
	}
	if _, err := timeline.ParsePolicy(c.DedupPolicy); err != nil {
		return fmt.Errorf("DEDUP_POLICY: %w", err)
	}
	if c.ExtractWorkers < 1 || c.ExtractWorkers > 64 {
		return fmt.Errorf("EXTRACT_WORKERS must be between 1 and 64")
	}
	if c.RelevanceHeadChars < relevance.MinHeadChars || c.RelevanceHeadChars > relevance.MaxHeadChars {
		return fmt.Errorf("RELEVANCE_HEAD_CHARS must be between %d and %d", relevance.MinHeadChars, relevance.MaxHeadChars)
	}
	if strings.TrimSpace(c.RunsRoot) == "" {
		return fmt.Errorf("SN_RUNS_ROOT is required")
	}
	return nil
}

// RequireDatabase is checked by the commands that talk to Postgres.
func (c *Config) RequireDatabase() error {
	if c == nil || strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// Policy returns the validated dedup policy.
func (c *Config) Policy() timeline.DedupPolicy {
	policy, err := timeline.ParsePolicy(c.DedupPolicy)
	if err != nil {
		return timeline.DefaultPolicy
	}
	return policy
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
