package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace is the metrics prefix used by the service
const Namespace = "vector_cv"

// Collector holds all Prometheus metrics for the application. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Selection metrics
	SelectionBlocks         *prometheus.CounterVec
	EmbeddingFallbacks      prometheus.Counter
	SkillExtractionFailures prometheus.Counter

	// Generation metrics
	ApplicationsGenerated prometheus.Counter
	GenerationFailures    *prometheus.CounterVec
	RateLimitDenials      prometheus.Counter
}

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SelectionBlocks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "selection_blocks_total",
				Help:      "Blocks added to selections, by stage",
			},
			[]string{"stage"},
		),
		EmbeddingFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "embedding_fallbacks_total",
				Help:      "Embeddings served by the deterministic fallback vector",
			},
		),
		SkillExtractionFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "skill_extraction_failures_total",
				Help:      "Skill extraction calls that failed and yielded no tokens",
			},
		),
		ApplicationsGenerated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "applications_generated_total",
				Help:      "Job applications generated and persisted",
			},
		),
		GenerationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_failures_total",
				Help:      "Generation failures, by step",
			},
			[]string{"step"},
		),
		RateLimitDenials: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_denials_total",
				Help:      "Generation requests rejected by the quota",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.SelectionBlocks,
		c.EmbeddingFallbacks,
		c.SkillExtractionFailures,
		c.ApplicationsGenerated,
		c.GenerationFailures,
		c.RateLimitDenials,
	)

	return c
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) RecordSelectionStage(stage string, added int) {
	if c == nil || added <= 0 {
		return
	}
	c.SelectionBlocks.WithLabelValues(stage).Add(float64(added))
}

func (c *Collector) RecordEmbeddingFallback() {
	if c == nil {
		return
	}
	c.EmbeddingFallbacks.Inc()
}

func (c *Collector) RecordSkillExtractionFailure() {
	if c == nil {
		return
	}
	c.SkillExtractionFailures.Inc()
}

func (c *Collector) RecordApplicationGenerated() {
	if c == nil {
		return
	}
	c.ApplicationsGenerated.Inc()
}

func (c *Collector) RecordGenerationFailure(step string) {
	if c == nil {
		return
	}
	c.GenerationFailures.WithLabelValues(step).Inc()
}

func (c *Collector) RecordRateLimitDenial() {
	if c == nil {
		return
	}
	c.RateLimitDenials.Inc()
}
