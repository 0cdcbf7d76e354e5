package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/upb/vector-cv/services/providers"
	"google.golang.org/genai"
)

const (
	ProviderName = "gemini"

	DefaultChatModel      = "gemini-2.0-flash"
	DefaultEmbeddingModel = "text-embedding-004"
)

// modelsAPI is the subset of *genai.Models used by the adapter
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

func newModels(ctx context.Context, config providers.ProviderConfig) (modelsAPI, error) {
	apiKey := strings.TrimSpace(config.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client.Models, nil
}

// GeminiAdapter implements providers.Provider on the Google GenAI SDK
type GeminiAdapter struct {
	models  modelsAPI
	timeout time.Duration
}

// NewGeminiAdapter creates an adapter for the Gemini API backend
func NewGeminiAdapter(ctx context.Context, config providers.ProviderConfig) (*GeminiAdapter, error) {
	models, err := newModels(ctx, config)
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{models: models, timeout: config.Timeout}, nil
}

// Name returns the provider name
func (a *GeminiAdapter) Name() string {
	return ProviderName
}

// ChatCompletion sends the conversation to Gemini. System messages become the
// system instruction; assistant messages are sent with the model role.
func (a *GeminiAdapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	startTime := time.Now()

	model := req.Model
	if model == "" {
		model = DefaultChatModel
	}

	var system []string
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case providers.RoleSystem:
			system = append(system, m.Content)
		case providers.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, providers.NewProviderError(a.Name(), providers.CodeInvalidInput, "at least one user message is required", http.StatusBadRequest, false, nil)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if req.JSONMode {
		config.ResponseMIMEType = "application/json"
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = a.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := a.models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, mapError(err)
	}

	text, finish := collectText(resp)
	if text == "" {
		return nil, providers.NewProviderError(a.Name(), providers.CodeEmptyResponse, "gemini api returned empty response", http.StatusBadGateway, true, nil)
	}

	out := &providers.ChatResponse{
		Model:    model,
		Provider: a.Name(),
		Choices: []providers.Choice{{
			Message:      providers.Message{Role: providers.RoleAssistant, Content: text},
			FinishReason: finish,
		}},
		Latency: time.Since(startTime),
		Created: startTime,
	}
	if resp.UsageMetadata != nil {
		out.Usage = providers.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

// collectText joins the text parts of every candidate with newlines
func collectText(resp *genai.GenerateContentResponse) (string, string) {
	if resp == nil {
		return "", ""
	}

	var builder strings.Builder
	var finish string
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		if finish == "" {
			finish = strings.ToLower(string(candidate.FinishReason))
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}
	return strings.TrimSpace(builder.String()), finish
}

// Embedder produces text embeddings with the Gemini embedding API
type Embedder struct {
	models     modelsAPI
	model      string
	dimensions int
	timeout    time.Duration
}

// NewEmbedder creates an embedder that requests vectors of the given length
func NewEmbedder(ctx context.Context, config providers.ProviderConfig, model string, dimensions int) (*Embedder, error) {
	models, err := newModels(ctx, config)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &Embedder{models: models, model: model, dimensions: dimensions, timeout: config.Timeout}, nil
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
	var config *genai.EmbedContentConfig
	if e.dimensions > 0 {
		config = &genai.EmbedContentConfig{OutputDimensionality: genai.Ptr(int32(e.dimensions))}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.models.EmbedContent(ctx, e.model, genai.Text(text), config)
	if err != nil {
		return pgvector.Vector{}, mapError(err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return pgvector.Vector{}, providers.NewProviderError(ProviderName, providers.CodeEmptyResponse, "no embedding in response", http.StatusBadGateway, true, nil)
	}

	values := resp.Embeddings[0].Values
	if e.dimensions > 0 && len(values) != e.dimensions {
		return pgvector.Vector{}, fmt.Errorf("gemini returned %d dimensions, expected %d", len(values), e.dimensions)
	}
	return pgvector.NewVector(append([]float32(nil), values...)), nil
}

func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.Status
		if code == "" {
			code = fmt.Sprintf("HTTP_%d", apiErr.Code)
		}
		return providers.NewProviderError(ProviderName, code, apiErr.Message, apiErr.Code, providers.RetryableStatus(apiErr.Code), err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return providers.NewProviderError(ProviderName, providers.CodeRequestError, "request failed", 0, true, err)
}
