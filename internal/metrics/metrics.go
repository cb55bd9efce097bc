package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for extraction runs. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Documents by outcome: accepted, irrelevant, no_text, needs_ocr, read_error
	Documents *prometheus.CounterVec

	// Candidates by outcome: emitted, below_threshold, event_gate, invalid_snippet
	Candidates *prometheus.CounterVec

	// Emitted candidates by tag
	Tags *prometheus.CounterVec

	// Per-document processing latency
	DocumentLatency prometheus.Histogram

	// Whole run latency
	RunLatency prometheus.Histogram
}

// New creates a Metrics instance on its own registry, so repeated construction in
// tests and in one process never collides.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		Documents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stallednews_documents_total",
			Help: "Evidence documents processed by outcome",
		}, []string{"outcome"}),

		Candidates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stallednews_candidates_total",
			Help: "Candidate events by outcome",
		}, []string{"outcome"}),

		Tags: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stallednews_event_tags_total",
			Help: "Emitted candidate events by tag",
		}, []string{"tag"}),

		DocumentLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stallednews_document_duration_seconds",
			Help:    "Duration of processing a single evidence document",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		RunLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stallednews_run_duration_seconds",
			Help:    "Duration of a full extraction run",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

func (m *Metrics) IncrementDocument(outcome string) {
	if m != nil {
		m.Documents.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementCandidate(outcome string) {
	if m != nil {
		m.Candidates.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementTag(tag string) {
	if m != nil {
		m.Tags.WithLabelValues(tag).Inc()
	}
}

func (m *Metrics) ObserveDocumentLatency(d time.Duration) {
	if m != nil {
		m.DocumentLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveRunLatency(d time.Duration) {
	if m != nil {
		m.RunLatency.Observe(d.Seconds())
	}
}

// Registry exposes the underlying registry for scraping.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
