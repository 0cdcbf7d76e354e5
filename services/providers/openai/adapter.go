package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/upb/vector-cv/services/providers"
)

const (
	ProviderName = "openai"

	// DefaultChatModel is used when no model is configured
	DefaultChatModel = "gpt-4-turbo-preview"

	// DefaultEmbeddingModel is used when no embedding model is configured
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// OpenAIAdapter implements providers.Provider on the official OpenAI SDK
type OpenAIAdapter struct {
	config providers.ProviderConfig
	client openai.Client
}

// NewOpenAIAdapter creates a new OpenAI adapter. SDK retries are disabled so
// each call reaches the API exactly once.
func NewOpenAIAdapter(config providers.ProviderConfig) *OpenAIAdapter {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &OpenAIAdapter{
		config: config,
		client: openai.NewClient(clientOptions(config)...),
	}
}

func clientOptions(config providers.ProviderConfig) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(config.Timeout),
	}
	if config.BaseURL != "" {
		baseURL := config.BaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if config.OrgID != "" {
		opts = append(opts, option.WithOrganization(config.OrgID))
	}
	for k, v := range config.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}
	return opts
}

// Name returns the provider name
func (a *OpenAIAdapter) Name() string {
	return ProviderName
}

// ChatCompletion performs a chat completion request
func (a *OpenAIAdapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	startTime := time.Now()

	if len(req.Messages) == 0 {
		return nil, providers.NewProviderError(a.Name(), providers.CodeInvalidInput, "at least one message is required", http.StatusBadRequest, false, nil)
	}

	model := req.Model
	if model == "" {
		model = DefaultChatModel
	}

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(model),
		Messages:    buildMessages(req.Messages),
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	var opts []option.RequestOption
	if req.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(req.Timeout))
	}

	resp, err := a.client.Chat.Completions.New(ctx, params, opts...)
	if err != nil {
		return nil, a.handleError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, providers.NewProviderError(a.Name(), providers.CodeEmptyResponse, "no choices in response", http.StatusBadGateway, true, nil)
	}

	return a.convertToUnifiedResponse(resp, time.Since(startTime)), nil
}

// buildMessages converts unified messages to SDK params. Unknown roles are
// sent as user messages.
func buildMessages(messages []providers.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case providers.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case providers.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// convertToUnifiedResponse converts an SDK completion to the unified format
func (a *OpenAIAdapter) convertToUnifiedResponse(resp *openai.ChatCompletion, latency time.Duration) *providers.ChatResponse {
	out := &providers.ChatResponse{
		ID:       resp.ID,
		Model:    resp.Model,
		Provider: a.Name(),
		Choices:  make([]providers.Choice, len(resp.Choices)),
		Usage: providers.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
		Latency: latency,
		Created: time.Unix(resp.Created, 0),
	}

	for i, choice := range resp.Choices {
		out.Choices[i] = providers.Choice{
			Index: int(choice.Index),
			Message: providers.Message{
				Role:    providers.RoleAssistant,
				Content: choice.Message.Content,
			},
			FinishReason: string(choice.FinishReason),
		}
	}
	return out
}

// handleError maps SDK errors to ProviderError
func (a *OpenAIAdapter) handleError(err error) error {
	return mapError(a.Name(), err)
}

func mapError(provider string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		code := apiErr.Type
		if code == "" {
			code = apiErr.Code
		}
		message := apiErr.Message
		if message == "" {
			message = fmt.Sprintf("request failed with status %d", apiErr.StatusCode)
		}
		return providers.NewProviderError(provider, code, message, apiErr.StatusCode, providers.RetryableStatus(apiErr.StatusCode), err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return providers.NewProviderError(provider, providers.CodeRequestError, "request failed", 0, true, err)
}
