package skills

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/vector-cv/services/providers"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubProvider struct {
	content string
	err     error
	last    *providers.ChatRequest
	calls   int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) ChatCompletion(_ context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &providers.ChatResponse{Choices: []providers.Choice{{Message: providers.Message{Role: providers.RoleAssistant, Content: s.content}}}}, nil
}

func TestParseSkills(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{name: "object", raw: `{"skills": ["Go", "Docker"]}`, want: []string{"Go", "Docker"}},
		{name: "bare array", raw: `["Laravel", "PHP"]`, want: []string{"Laravel", "PHP"}},
		{name: "code fence", raw: "```json\n{\"skills\": [\"Kubernetes\"]}\n```", want: []string{"Kubernetes"}},
		{name: "trims and dedupes", raw: `{"skills": [" Go ", "go", "", "Docker", "DOCKER"]}`, want: []string{"Go", "Docker"}},
		{name: "empty list", raw: `{"skills": []}`, want: []string{}},
		{name: "missing key", raw: `{"tech": ["Go"]}`, wantErr: true},
		{name: "not json", raw: "Go, Docker", wantErr: true},
		{name: "empty", raw: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSkills(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractor_Extract(t *testing.T) {
	ctx := context.Background()

	t.Run("sends a json mode request", func(t *testing.T) {
		p := &stubProvider{content: `{"skills": ["Docker"]}`}
		e := NewExtractor(p, "gpt-test", 0, 0, nil, zap.NewNop())

		tokens, err := e.Extract(ctx, "We run Docker in production")
		require.NoError(t, err)
		assert.Equal(t, []string{"Docker"}, tokens)
		require.NotNil(t, p.last)
		assert.True(t, p.last.JSONMode)
		assert.Equal(t, "gpt-test", p.last.Model)
		assert.Equal(t, float64(0), p.last.Temperature)
		assert.Equal(t, providers.RoleSystem, p.last.Messages[0].Role)
		assert.Contains(t, p.last.Messages[1].Content, "Docker in production")
	})

	t.Run("blank job text skips the call", func(t *testing.T) {
		p := &stubProvider{}
		e := NewExtractor(p, "m", 0, 0, nil, zap.NewNop())

		tokens, err := e.Extract(ctx, "  ")
		require.NoError(t, err)
		assert.Empty(t, tokens)
		assert.Equal(t, 0, p.calls)
	})

	t.Run("provider error is returned", func(t *testing.T) {
		p := &stubProvider{err: errors.New("boom")}
		e := NewExtractor(p, "m", 0, 0, nil, zap.NewNop())

		_, err := e.Extract(ctx, "Go")
		assert.Error(t, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		e := NewExtractor(nil, "m", 0, 0, nil, zap.NewNop())
		_, err := e.Extract(ctx, "Go")
		assert.Error(t, err)
	})
}

func TestExtractor_Tokens(t *testing.T) {
	ctx := context.Background()

	t.Run("failure yields empty list and warns", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		p := &stubProvider{err: errors.New("timeout")}
		e := NewExtractor(p, "m", 0, 0, nil, zap.New(core))

		tokens := e.Tokens(ctx, "Go and Docker")
		assert.NotNil(t, tokens)
		assert.Empty(t, tokens)
		assert.Equal(t, 1, logs.FilterMessage("skill extraction failed").Len())
	})

	t.Run("malformed output yields empty list", func(t *testing.T) {
		p := &stubProvider{content: "sorry, I cannot help"}
		e := NewExtractor(p, "m", 0, 0, nil, zap.NewNop())

		assert.Empty(t, e.Tokens(ctx, "Go"))
	})

	t.Run("success", func(t *testing.T) {
		p := &stubProvider{content: `["Go"]`}
		e := NewExtractor(p, "m", 0, 0, nil, zap.NewNop())

		assert.Equal(t, []string{"Go"}, e.Tokens(ctx, "Go"))
	})
}
