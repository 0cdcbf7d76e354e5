package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockProvider is a test implementation of the Provider interface
type MockProvider struct {
	mu            sync.Mutex
	name          string
	content       string
	err           error
	responseDelay time.Duration
	requests      []*ChatRequest
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		name:    name,
		content: "This is a mock response",
	}
}

func (m *MockProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockProvider) SetResponseDelay(delay time.Duration) {
	m.responseDelay = delay
}

func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	err := m.err
	m.mu.Unlock()

	if m.responseDelay > 0 {
		select {
		case <-time.After(m.responseDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	return &ChatResponse{
		ID:       "mock-response-123",
		Model:    req.Model,
		Provider: m.name,
		Choices: []Choice{
			{
				Index: 0,
				Message: Message{
					Role:    RoleAssistant,
					Content: "  " + m.content + "\n",
				},
				FinishReason: "stop",
			},
		},
		Usage: Usage{
			PromptTokens:     10,
			CompletionTokens: 20,
			TotalTokens:      30,
		},
		Latency: m.responseDelay,
		Created: time.Now(),
	}, nil
}

func TestMockProvider(t *testing.T) {
	provider := NewMockProvider("test-provider")

	resp, err := provider.ChatCompletion(context.Background(), &ChatRequest{
		Model:    "mock-model",
		Messages: []Message{{Role: RoleUser, Content: "Hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "mock-model", resp.Model)
	assert.Equal(t, "test-provider", resp.Provider)
	assert.Equal(t, 30, resp.Usage.TotalTokens)
	assert.Equal(t, 1, provider.Calls())
}

func TestChatResponse_Content(t *testing.T) {
	tests := []struct {
		name string
		resp *ChatResponse
		want string
	}{
		{"nil response", nil, ""},
		{"no choices", &ChatResponse{}, ""},
		{"first choice trimmed", &ChatResponse{Choices: []Choice{
			{Message: Message{Content: "\n first \n"}},
			{Message: Message{Content: "second"}},
		}}, "first"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.resp.Content())
		})
	}
}

func TestDefaultProviderConfig(t *testing.T) {
	cfg := DefaultProviderConfig()
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.NotNil(t, cfg.Headers)
}

func TestProviderError(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name          string
		err           *ProviderError
		wantMsg       string
		wantRetryable bool
	}{
		{
			name:          "with cause",
			err:           NewProviderError("openai", "HTTP_ERROR", "request failed", 0, true, cause),
			wantMsg:       "openai: request failed: connection reset",
			wantRetryable: true,
		},
		{
			name:          "without cause",
			err:           NewProviderError("gemini", "INVALID_ARGUMENT", "bad request", 400, false, nil),
			wantMsg:       "gemini: bad request",
			wantRetryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.Equal(t, tt.wantRetryable, IsRetryable(tt.err))
			assert.Equal(t, tt.wantRetryable, IsRetryable(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}

	assert.ErrorIs(t, NewProviderError("openai", "X", "y", 500, true, cause), cause)
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestRetryableStatus(t *testing.T) {
	assert.True(t, RetryableStatus(429))
	assert.True(t, RetryableStatus(503))
	assert.False(t, RetryableStatus(400))
	assert.False(t, RetryableStatus(200))
}

func TestContextCancellation(t *testing.T) {
	provider := NewMockProvider("slow")
	provider.SetResponseDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := provider.ChatCompletion(ctx, &ChatRequest{Model: "m"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n[\"go\"]\n```\n", `["go"]`},
		{"surrounding space", "  {\"a\":1}  ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.raw))
		})
	}
}
