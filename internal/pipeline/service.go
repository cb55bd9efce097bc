// Package pipeline turns an evidence corpus and a project identity into raw and
// deduplicated timeline events.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"horse.fit/stallednews/internal/dates"
	"horse.fit/stallednews/internal/evidence"
	"horse.fit/stallednews/internal/globaltime"
	"horse.fit/stallednews/internal/identity"
	"horse.fit/stallednews/internal/langdetect"
	"horse.fit/stallednews/internal/metrics"
	"horse.fit/stallednews/internal/relevance"
	"horse.fit/stallednews/internal/scoring"
	"horse.fit/stallednews/internal/snippet"
	"horse.fit/stallednews/internal/textnorm"
	"horse.fit/stallednews/internal/timeline"
)

const (
	DefaultMinConfidence = 0.55
	DefaultWorkers       = 4
	maxWorkers           = 64
)

const (
	outcomeAccepted   = "accepted"
	outcomeIrrelevant = "irrelevant"
	outcomeNoText     = "no_text"
	outcomeNeedsOCR   = "needs_ocr"
	outcomeReadError  = "read_error"

	candidateEmitted        = "emitted"
	candidateBelowThreshold = "below_threshold"
	candidateEventGate      = "event_gate"
	candidateInvalidSnippet = "invalid_snippet"
)

// Options tune one extraction run.
type Options struct {
	MinConfidence  float64
	DedupPolicy    timeline.DedupPolicy
	HeadChars      int
	EventGate      bool
	Workers        int
	DetectLanguage bool
	// Now anchors the forward date sanity bound. Zero means the current time.
	Now time.Time
}

func DefaultOptions() Options {
	return Options{
		MinConfidence:  DefaultMinConfidence,
		DedupPolicy:    timeline.DefaultPolicy,
		HeadChars:      relevance.DefaultHeadChars,
		Workers:        DefaultWorkers,
		DetectLanguage: true,
	}
}

// Stats summarizes what happened to every document and candidate in a run.
type Stats struct {
	Documents         int            `json:"documents"`
	Accepted          int            `json:"accepted"`
	Irrelevant        int            `json:"irrelevant"`
	NoText            int            `json:"no_text"`
	NeedsOCR          int            `json:"needs_ocr"`
	ReadErrors        int            `json:"read_errors"`
	DatesFound        int            `json:"dates_found"`
	BelowThreshold    int            `json:"below_threshold"`
	EventGateRejected int            `json:"event_gate_rejected"`
	InvalidSnippets   int            `json:"invalid_snippets"`
	RawEvents         int            `json:"raw_events"`
	DedupedEvents     int            `json:"deduped_events"`
	Reasons           map[string]int `json:"reasons"`
	Languages         map[string]int `json:"languages"`
}

// Map flattens the counters for the run manifest.
func (s Stats) Map() map[string]int {
	out := map[string]int{
		"documents":           s.Documents,
		"accepted":            s.Accepted,
		"irrelevant":          s.Irrelevant,
		"no_text":             s.NoText,
		"needs_ocr":           s.NeedsOCR,
		"read_errors":         s.ReadErrors,
		"dates_found":         s.DatesFound,
		"below_threshold":     s.BelowThreshold,
		"event_gate_rejected": s.EventGateRejected,
		"invalid_snippets":    s.InvalidSnippets,
		"raw_events":          s.RawEvents,
		"deduped_events":      s.DedupedEvents,
	}
	for reason, count := range s.Reasons {
		out["reason_"+reason] = count
	}
	return out
}

// SortedLanguages returns detected language codes ordered by count, then code.
func (s Stats) SortedLanguages() []string {
	codes := make([]string, 0, len(s.Languages))
	for code := range s.Languages {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		if s.Languages[codes[i]] != s.Languages[codes[j]] {
			return s.Languages[codes[i]] > s.Languages[codes[j]]
		}
		return codes[i] < codes[j]
	})
	return codes
}

// Result is the output of extract_events: every validated candidate at or above the
// confidence floor, and the deduplicated timeline built from them.
type Result struct {
	Raw     []timeline.Event
	Deduped []timeline.Event
	Stats   Stats
}

type Service struct {
	scorer  *scoring.Scorer
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewService(scorer *scoring.Scorer, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		scorer:  scorer,
		metrics: m,
		logger:  logger,
	}
}

type documentResult struct {
	outcome  string
	reason   identity.Reason
	language string
	dates    int
	below    int
	gated    int
	invalid  int
	events   []timeline.Event
}

// ExtractEvents runs the relevance gate, date extraction, scoring and snippet
// validation over every document, then deduplicates and ranks the survivors.
// Per-document failures only reduce that document's output to zero events; the only
// error returned is context cancellation.
func (s *Service) ExtractEvents(ctx context.Context, docs []evidence.Document, id *identity.Identity, opts Options) (Result, error) {
	if s == nil || s.scorer == nil {
		return Result{}, fmt.Errorf("pipeline service is not initialized")
	}
	if id == nil {
		return Result{}, fmt.Errorf("project identity is required")
	}

	opts = normalizeOptions(opts)
	started := time.Now()
	gate := relevance.New(id, opts.HeadChars)

	results := make([]documentResult, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			docStarted := time.Now()
			results[i] = s.processDocument(docs[i], id, gate, opts)
			s.metrics.ObserveDocumentLatency(time.Since(docStarted))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	stats := Stats{
		Documents: len(docs),
		Reasons:   make(map[string]int),
		Languages: make(map[string]int),
	}
	raw := make([]timeline.Event, 0)
	for _, r := range results {
		s.metrics.IncrementDocument(r.outcome)
		switch r.outcome {
		case outcomeAccepted:
			stats.Accepted++
			stats.Reasons[string(r.reason)]++
			if r.language != "" {
				stats.Languages[r.language]++
			}
		case outcomeIrrelevant:
			stats.Irrelevant++
		case outcomeNoText:
			stats.NoText++
		case outcomeNeedsOCR:
			stats.NeedsOCR++
		case outcomeReadError:
			stats.ReadErrors++
		}
		stats.DatesFound += r.dates
		stats.BelowThreshold += r.below
		stats.EventGateRejected += r.gated
		stats.InvalidSnippets += r.invalid
		raw = append(raw, r.events...)
	}

	timeline.Sort(raw)
	deduped := timeline.Dedup(raw, opts.DedupPolicy)
	stats.RawEvents = len(raw)
	stats.DedupedEvents = len(deduped)

	s.metrics.ObserveRunLatency(time.Since(started))
	s.logger.Info().
		Int("documents", stats.Documents).
		Int("accepted", stats.Accepted).
		Int("irrelevant", stats.Irrelevant).
		Int("raw_events", stats.RawEvents).
		Int("deduped_events", stats.DedupedEvents).
		Int("invalid_snippets", stats.InvalidSnippets).
		Str("dedup_policy", string(opts.DedupPolicy)).
		Float64("min_confidence", opts.MinConfidence).
		Dur("duration", time.Since(started)).
		Msg("timeline extraction finished")

	return Result{Raw: raw, Deduped: deduped, Stats: stats}, nil
}

func (s *Service) processDocument(doc evidence.Document, id *identity.Identity, gate relevance.Gate, opts Options) documentResult {
	logger := s.logger.With().Str("doc_id", doc.DocID).Logger()

	if doc.NeedsOCR {
		logger.Debug().Msg("skipping document that needs OCR")
		return documentResult{outcome: outcomeNeedsOCR}
	}
	if doc.TextChars <= 0 {
		logger.Debug().Msg("skipping document without extracted text")
		return documentResult{outcome: outcomeNoText}
	}

	text, err := evidence.ReadText(doc)
	if err != nil {
		logger.Warn().Err(err).Str("text_path", doc.TextPath).Msg("could not read document text")
		return documentResult{outcome: outcomeReadError}
	}
	normalized := textnorm.Normalize(text)

	relevant, reason := gate.Check(doc, normalized)
	if !relevant {
		logger.Debug().Str("url", doc.URL).Msg("document rejected by relevance gate")
		return documentResult{outcome: outcomeIrrelevant}
	}

	result := documentResult{outcome: outcomeAccepted, reason: reason}
	if opts.DetectLanguage {
		result.language = langdetect.DetectISO6391(normalized)
	}

	matches := dates.Find(normalized, opts.Now)
	result.dates = len(matches)
	for _, match := range matches {
		claim := snippet.Sentence(normalized, match.Start, match.End, snippet.ClaimRadius, snippet.ClaimMaxChars)
		window := snippet.Window(normalized, match.Start, match.End, snippet.SnippetRadius, snippet.SnippetMaxChars)

		// Scored on the claim so cues from neighbouring sentences do not leak in.
		score := s.scorer.ScoreMatch(claim, match.Precision)
		if score.Confidence < opts.MinConfidence {
			result.below++
			s.metrics.IncrementCandidate(candidateBelowThreshold)
			continue
		}
		if opts.EventGate && !id.Matches(window) {
			result.gated++
			s.metrics.IncrementCandidate(candidateEventGate)
			continue
		}
		if !snippet.Verify(claim, normalized) || !snippet.Verify(window, normalized) {
			result.invalid++
			s.metrics.IncrementCandidate(candidateInvalidSnippet)
			logger.Debug().Str("date", match.ISO).Msg("dropping candidate whose snippet is not in the source text")
			continue
		}

		s.metrics.IncrementCandidate(candidateEmitted)
		for _, tag := range score.Tags {
			s.metrics.IncrementTag(tag)
		}
		result.events = append(result.events, timeline.Event{
			Date:       match.ISO,
			Claim:      claim,
			Confidence: score.Confidence,
			Tags:       score.Tags,
			Evidence: timeline.EvidenceRef{
				Domain:   doc.Domain,
				URL:      doc.URL,
				FinalURL: doc.FinalURL,
				DocID:    doc.DocID,
				TextPath: doc.TextPath,
				Snippet:  window,
			},
		})
	}

	logger.Debug().
		Str("reason", string(reason)).
		Int("dates", result.dates).
		Int("events", len(result.events)).
		Msg("document processed")
	return result
}

func normalizeOptions(opts Options) Options {
	if opts.MinConfidence < 0 {
		opts.MinConfidence = 0
	}
	if opts.DedupPolicy == "" {
		opts.DedupPolicy = timeline.DefaultPolicy
	}
	if opts.HeadChars <= 0 {
		opts.HeadChars = relevance.DefaultHeadChars
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Workers > maxWorkers {
		opts.Workers = maxWorkers
	}
	if opts.Now.IsZero() {
		opts.Now = globaltime.UTC()
	}
	return opts
}
