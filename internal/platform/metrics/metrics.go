// Package metrics exposes Prometheus collectors for the recreation pipeline.
package metrics

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	QueuePending       prometheus.Gauge
	QueueProcessing    prometheus.Gauge
	JobsTotal          *prometheus.CounterVec
	RecreationDuration prometheus.Histogram
	ProviderAttempts   *prometheus.CounterVec
	ProviderDuration   *prometheus.HistogramVec
	NewsCache          *prometheus.CounterVec
	LLMCalls           *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry.
func New() (*Metrics, error) {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the collectors on registry.
func NewWithRegistry(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: registry,
		QueuePending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "newslk_recreation_queue_pending",
			Help: "Recreation jobs waiting in the queue.",
		}),
		QueueProcessing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "newslk_recreation_queue_processing",
			Help: "Recreation jobs currently being processed (0 or 1).",
		}),
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newslk_recreation_jobs_total",
			Help: "Finished recreation jobs by outcome.",
		}, []string{"outcome"}),
		RecreationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newslk_recreation_duration_seconds",
			Help:    "Time spent on one queued recreation job.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		ProviderAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newslk_provider_attempts_total",
			Help: "Image provider attempts by provider and result.",
		}, []string{"provider", "result"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newslk_provider_attempt_duration_seconds",
			Help:    "Duration of image provider attempts.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"provider"}),
		NewsCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newslk_news_cache_total",
			Help: "News feed lookups by cache result (fresh, stale, miss).",
		}, []string{"result"}),
		LLMCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newslk_llm_call_duration_seconds",
			Help:    "Gemini calls by operation and result.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"operation", "result"}),
	}

	for _, c := range []prometheus.Collector{
		m.QueuePending, m.QueueProcessing, m.JobsTotal, m.RecreationDuration,
		m.ProviderAttempts, m.ProviderDuration, m.NewsCache, m.LLMCalls,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register recreation metrics: %w", err)
		}
	}
	return m, nil
}

// SetQueueDepth updates the queue gauges.
func (m *Metrics) SetQueueDepth(pending, processing int) {
	m.QueuePending.Set(float64(pending))
	m.QueueProcessing.Set(float64(processing))
}

// ObserveJob counts a finished job and records how long it took.
func (m *Metrics) ObserveJob(outcome string, elapsed time.Duration) {
	m.JobsTotal.WithLabelValues(outcome).Inc()
	m.RecreationDuration.Observe(elapsed.Seconds())
}

// ObserveAttempt records one provider attempt.
func (m *Metrics) ObserveAttempt(provider, outcome string, elapsed time.Duration) {
	m.ProviderAttempts.WithLabelValues(provider, outcome).Inc()
	m.ProviderDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveNewsCache counts a news cache lookup.
func (m *Metrics) ObserveNewsCache(result string) {
	m.NewsCache.WithLabelValues(result).Inc()
}

// ObserveLLMCall records one Gemini call.
func (m *Metrics) ObserveLLMCall(operation, result string, elapsed time.Duration) {
	m.LLMCalls.WithLabelValues(operation, result).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))
}
