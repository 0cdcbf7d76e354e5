// Package embedding turns job descriptions and experience blocks into
// vectors. Backend failures never surface: the service degrades to the
// deterministic fallback vector.
package embedding

import (
	"context"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/upb/vector-cv/internal/observability"
	"github.com/upb/vector-cv/models"
	"github.com/upb/vector-cv/services/providers"
	"go.uber.org/zap"
)

// Embedder is an embedding backend
type Embedder interface {
	Embed(ctx context.Context, text string) (pgvector.Vector, error)
	Dimensions() int
	Name() string
}

// Embedding is a vector plus whether it came from the fallback generator
type Embedding struct {
	Vector   pgvector.Vector
	Fallback bool
}

// Service calls the backend once per text and falls back on any failure
type Service struct {
	backend    Embedder
	breaker    *providers.Breaker
	dimensions int
	timeout    time.Duration
	metrics    *observability.Collector
	logger     *zap.Logger
}

// NewService creates an embedding service. breaker and metrics may be nil.
func NewService(backend Embedder, dimensions int, timeout time.Duration, breaker *providers.Breaker, metrics *observability.Collector, logger *zap.Logger) *Service {
	return &Service{
		backend:    backend,
		breaker:    breaker,
		dimensions: dimensions,
		timeout:    timeout,
		metrics:    metrics,
		logger:     logger,
	}
}

// Dimensions returns the vector length every Embedding has
func (s *Service) Dimensions() int {
	return s.dimensions
}

// BackendName returns the configured backend name
func (s *Service) BackendName() string {
	if s.backend == nil {
		return "fallback"
	}
	return s.backend.Name()
}

// Embed returns the embedding of text. It never fails.
func (s *Service) Embed(ctx context.Context, text string) Embedding {
	if s.backend == nil {
		return Embedding{Vector: FallbackVector(text, s.dimensions), Fallback: true}
	}
	if _, static := s.backend.(*FallbackEmbedder); static {
		return Embedding{Vector: FallbackVector(text, s.dimensions), Fallback: true}
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	vec, err := providers.Execute(s.breaker, func() (pgvector.Vector, error) {
		return s.backend.Embed(callCtx, text)
	})
	if err == nil && len(vec.Slice()) == s.dimensions {
		return Embedding{Vector: vec}
	}

	fields := []zap.Field{
		zap.String("backend", s.backend.Name()),
		zap.Int("text_length", len(text)),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	} else {
		fields = append(fields, zap.Int("got_dimensions", len(vec.Slice())), zap.Int("want_dimensions", s.dimensions))
	}
	s.logger.Warn("embedding provider failed, using fallback vector", fields...)
	s.metrics.RecordEmbeddingFallback()

	return Embedding{Vector: FallbackVector(text, s.dimensions), Fallback: true}
}

// EmbedBlock embeds the canonical text of block and stores the vector on it
func (s *Service) EmbedBlock(ctx context.Context, block *models.ContentBlock) Embedding {
	emb := s.Embed(ctx, block.CanonicalText())
	block.Embedding = emb.Vector
	return emb
}
