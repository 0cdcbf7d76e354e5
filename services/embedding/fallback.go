package embedding

import (
	"context"
	"crypto/sha256"

	"github.com/pgvector/pgvector-go"
)

// FallbackVector derives a deterministic vector from the SHA-256 digest of
// text: v[i] = (digest[i mod 32] / 255) * 2 - 1. Every component lies in
// [-1, 1]. It carries no semantic meaning and only keeps the pipeline
// running when no embedding backend is reachable.
func FallbackVector(text string, dimensions int) pgvector.Vector {
	if dimensions <= 0 {
		return pgvector.NewVector([]float32{})
	}

	digest := sha256.Sum256([]byte(text))
	vec := make([]float32, dimensions)
	for i := range vec {
		vec[i] = float32(float64(digest[i%len(digest)])/255.0*2 - 1)
	}
	return pgvector.NewVector(vec)
}

// FallbackEmbedder always returns FallbackVector. It backs
// EMBEDDING_PROVIDER=fallback for offline development.
type FallbackEmbedder struct {
	dimensions int
}

// NewFallbackEmbedder creates an embedder producing vectors of the given length
func NewFallbackEmbedder(dimensions int) *FallbackEmbedder {
	return &FallbackEmbedder{dimensions: dimensions}
}

func (f *FallbackEmbedder) Name() string {
	return "fallback"
}

func (f *FallbackEmbedder) Dimensions() int {
	return f.dimensions
}

func (f *FallbackEmbedder) Embed(_ context.Context, text string) (pgvector.Vector, error) {
	return FallbackVector(text, f.dimensions), nil
}
