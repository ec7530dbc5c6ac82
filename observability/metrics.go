package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docqa"

// Metrics holds the collectors of one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	reg *prometheus.Registry

	uploads            *prometheus.CounterVec
	documents          *prometheus.CounterVec
	pages              *prometheus.CounterVec
	extractionFailures *prometheus.CounterVec
	requests           *prometheus.CounterVec
	llmLatency         *prometheus.HistogramVec
	ratings            *prometheus.CounterVec
}

// NewMetrics registers every collector on a private registry, together with
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Upload batches by outcome.",
		}, []string{"outcome"}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents parsed, by format.",
		}, []string{"format"}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Pages extracted, by format.",
		}, []string{"format"}),
		extractionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_failures_total",
			Help:      "Documents that could not be parsed, by format.",
		}, []string{"format"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Chat and prompt improvement requests by outcome.",
		}, []string{"op", "outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Latency of answer provider calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"op"}),
		ratings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratings_total",
			Help:      "Answer ratings by value.",
		}, []string{"value"}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.uploads, m.documents, m.pages, m.extractionFailures,
		m.requests, m.llmLatency, m.ratings,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) Upload(outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
}

// Document counts one parsed document and its pages.
func (m *Metrics) Document(format string, pages int) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(format).Inc()
	m.pages.WithLabelValues(format).Add(float64(pages))
}

func (m *Metrics) ExtractionFailure(format string) {
	if m == nil {
		return
	}
	m.extractionFailures.WithLabelValues(format).Inc()
}

// Request counts one chat or improve call and records its provider latency.
func (m *Metrics) Request(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, outcome).Inc()
	m.llmLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) Rating(value string) {
	if m == nil {
		return
	}
	m.ratings.WithLabelValues(value).Inc()
}
