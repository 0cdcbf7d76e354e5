package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/pgvector/pgvector-go"
	"github.com/upb/vector-cv/services/providers"
)

// Embedder produces text embeddings with the OpenAI embeddings API
type Embedder struct {
	client     openai.Client
	model      string
	dimensions int
}

// NewEmbedder creates an embedder that requests vectors of the given length
func NewEmbedder(config providers.ProviderConfig, model string, dimensions int) *Embedder {
	if config.Timeout == 0 {
		config.Timeout = 20 * time.Second
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &Embedder{
		client:     openai.NewClient(clientOptions(config)...),
		model:      model,
		dimensions: dimensions,
	}
}

// Name identifies the backend and model
func (e *Embedder) Name() string {
	return ProviderName + ":" + e.model
}

// Dimensions returns the requested vector length
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Embed returns the embedding of text
func (e *Embedder) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return pgvector.Vector{}, mapError(ProviderName, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return pgvector.Vector{}, providers.NewProviderError(ProviderName, providers.CodeEmptyResponse, "no embedding in response", http.StatusBadGateway, true, nil)
	}

	values := resp.Data[0].Embedding
	vec := make([]float32, len(values))
	for i, v := range values {
		vec[i] = float32(v)
	}
	if e.dimensions > 0 && len(vec) != e.dimensions {
		return pgvector.Vector{}, fmt.Errorf("openai returned %d dimensions, expected %d", len(vec), e.dimensions)
	}
	return pgvector.NewVector(vec), nil
}
