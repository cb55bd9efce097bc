package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"

	"horse.fit/stallednews/internal/globaltime"
	"horse.fit/stallednews/internal/identity"
	"horse.fit/stallednews/internal/pipeline"
	"horse.fit/stallednews/internal/store"
	"horse.fit/stallednews/internal/timeline"
)

// CorpusFileName is the evidence corpus expected inside a run directory.
const CorpusFileName = "evidence.json"

var runNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

type runSummary struct {
	Run          string     `json:"run"`
	RunID        string     `json:"run_id,omitempty"`
	ProjectName  string     `json:"project_name,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	RawCount     int        `json:"raw_count"`
	DedupedCount int        `json:"deduped_count"`
}

type extractRequest struct {
	ProjectName    string   `json:"project_name"`
	City           string   `json:"city"`
	RegistrationID string   `json:"rera_id"`
	MinConfidence  *float64 `json:"min_confidence"`
	DedupPolicy    string   `json:"dedup_policy"`
	EventGate      *bool    `json:"event_gate"`
}

func (s *Server) handleHealth(c echo.Context) error {
	database := "disabled"
	if s.deps.Pool != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		database = "ok"
		if err := s.deps.Pool.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("database ping failed")
			database = "unavailable"
		}
	}
	return success(c, map[string]any{
		"service":  "stallednews",
		"time":     globaltime.UTC(),
		"database": database,
	})
}

func (s *Server) handleRuns(c echo.Context) error {
	entries, err := os.ReadDir(s.deps.RunsRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return success(c, newList([]runSummary{}))
		}
		s.logger.Error().Err(err).Msg("list runs failed")
		return internalError(c, "Failed to list runs")
	}

	items := make([]runSummary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || !validRunName(entry.Name()) {
			continue
		}
		dir := filepath.Join(s.deps.RunsRoot, entry.Name())
		if !store.Exists(dir) {
			continue
		}
		artifacts, err := store.Read(dir)
		if err != nil {
			s.logger.Warn().Err(err).Str("run", entry.Name()).Msg("skipping unreadable run")
			continue
		}
		item := runSummary{
			Run:          entry.Name(),
			RawCount:     len(artifacts.Raw),
			DedupedCount: len(artifacts.Deduped),
		}
		if m := artifacts.Manifest; m != nil {
			created := m.CreatedAt
			item.RunID = m.RunID
			item.ProjectName = m.ProjectName
			item.CreatedAt = &created
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Run < items[j].Run })

	return success(c, newList(items))
}

func (s *Server) handleTimeline(c echo.Context) error {
	artifacts, err := s.loadRun(c)
	if err != nil {
		return err
	}
	payload := newList(artifacts.Timeline)
	payload.Run = c.Param("run")
	payload.Manifest = artifacts.Manifest
	return success(c, payload)
}

func (s *Server) handleEvents(c echo.Context) error {
	kind := strings.ToLower(strings.TrimSpace(c.QueryParam("kind")))
	if kind == "" {
		kind = "deduped"
	}
	fieldErrors := map[string]string{}
	if kind != "raw" && kind != "deduped" {
		fieldErrors["kind"] = "must be raw or deduped"
	}
	minConfidence, err := parseConfidence(c.QueryParam("min_confidence"))
	if err != nil {
		fieldErrors["min_confidence"] = err.Error()
	}
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	artifacts, err := s.loadRun(c)
	if err != nil {
		return err
	}

	events := artifacts.Deduped
	if kind == "raw" {
		events = artifacts.Raw
	}
	tag := strings.TrimSpace(c.QueryParam("tag"))
	filtered := make([]timeline.Event, 0, len(events))
	for _, ev := range events {
		if ev.Confidence < minConfidence {
			continue
		}
		if tag != "" && !ev.HasTag(tag) {
			continue
		}
		filtered = append(filtered, ev)
	}

	payload := newList(filtered)
	payload.Run = c.Param("run")
	payload.Kind = kind
	return success(c, payload)
}

func (s *Server) handleExtract(c echo.Context) error {
	run := c.Param("run")
	if !validRunName(run) {
		return failNotFound(c, "Run not found")
	}
	dir := filepath.Join(s.deps.RunsRoot, run)
	corpus := filepath.Join(dir, CorpusFileName)
	if _, err := os.Stat(corpus); err != nil {
		return failNotFound(c, fmt.Sprintf("Run has no %s", CorpusFileName))
	}

	var req extractRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid JSON body", nil)
	}

	input := identity.Input{
		ProjectName:    req.ProjectName,
		City:           req.City,
		RegistrationID: req.RegistrationID,
	}
	fieldErrors := map[string]string{}
	if err := input.Validate(); err != nil {
		var verrs validation.Errors
		if !errors.As(err, &verrs) {
			return fail(c, http.StatusBadRequest, err.Error(), nil)
		}
		for field, ferr := range verrs {
			fieldErrors[field] = ferr.Error()
		}
	}

	opts := s.deps.Defaults
	if req.MinConfidence != nil {
		if *req.MinConfidence < 0 || *req.MinConfidence > 1 {
			fieldErrors["min_confidence"] = "must be between 0 and 1"
		}
		opts.MinConfidence = *req.MinConfidence
	}
	if strings.TrimSpace(req.DedupPolicy) != "" {
		policy, err := timeline.ParsePolicy(req.DedupPolicy)
		if err != nil {
			fieldErrors["dedup_policy"] = err.Error()
		}
		opts.DedupPolicy = policy
	}
	if req.EventGate != nil {
		opts.EventGate = *req.EventGate
	}
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	id, err := identity.New(input)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error(), nil)
	}

	s.extractMu.Lock()
	defer s.extractMu.Unlock()

	out, err := s.deps.Service.Run(c.Request().Context(), pipeline.RunRequest{
		CorpusPath: corpus,
		OutDir:     dir,
		Identity:   id,
		Options:    opts,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("run", run).Msg("extraction failed")
		return internalError(c, "Extraction failed")
	}

	return successWithStatus(c, http.StatusCreated, map[string]any{
		"run":      run,
		"manifest": out.Manifest,
		"stats":    out.Stats,
	})
}

// loadRun reads the run named in the path. Its errors are rendered by
// httpErrorHandler.
func (s *Server) loadRun(c echo.Context) (store.Artifacts, error) {
	run := c.Param("run")
	if !validRunName(run) {
		return store.Artifacts{}, echo.NewHTTPError(http.StatusNotFound, "Run not found")
	}
	dir := filepath.Join(s.deps.RunsRoot, run)
	if !store.Exists(dir) {
		return store.Artifacts{}, echo.NewHTTPError(http.StatusNotFound, "Run not found")
	}
	artifacts, err := store.Read(dir)
	if err != nil {
		s.logger.Error().Err(err).Str("run", run).Msg("read run failed")
		return store.Artifacts{}, fmt.Errorf("read run %q: %w", run, err)
	}
	return artifacts, nil
}

func validRunName(name string) bool {
	return name != "." && name != ".." && runNamePattern.MatchString(name)
}

func parseConfidence(raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("must be a number")
	}
	if value < 0 || value > 1 {
		return 0, fmt.Errorf("must be between 0 and 1")
	}
	return value, nil
}
