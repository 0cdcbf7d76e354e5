// Package skills extracts skill tokens from job descriptions with an LLM.
package skills

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/upb/vector-cv/internal/observability"
	"github.com/upb/vector-cv/services/providers"
	"go.uber.org/zap"
)

const systemPrompt = "You extract technical skills from job descriptions. " +
	"Respond with a JSON object of the form {\"skills\": [\"...\"]}. " +
	"List concrete technologies, frameworks, languages and tools in the order they appear. " +
	"Use the name as written in the posting, one skill per entry, no explanations."

// ErrMalformedResponse is returned when the model output holds no skill list
var ErrMalformedResponse = errors.New("malformed skill extraction response")

// Extractor turns a job description into an ordered list of skill tokens
type Extractor struct {
	provider    providers.Provider
	model       string
	temperature float64
	timeout     time.Duration
	metrics     *observability.Collector
	logger      *zap.Logger
}

// NewExtractor creates an extractor. metrics may be nil.
func NewExtractor(provider providers.Provider, model string, temperature float64, timeout time.Duration, metrics *observability.Collector, logger *zap.Logger) *Extractor {
	return &Extractor{
		provider:    provider,
		model:       model,
		temperature: temperature,
		timeout:     timeout,
		metrics:     metrics,
		logger:      logger,
	}
}

// Extract asks the model for the skills in jobText. Tokens are trimmed and
// deduplicated case-insensitively, keeping the first spelling.
func (e *Extractor) Extract(ctx context.Context, jobText string) ([]string, error) {
	if strings.TrimSpace(jobText) == "" {
		return []string{}, nil
	}
	if e.provider == nil {
		return nil, errors.New("no skill extraction provider configured")
	}

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.provider.ChatCompletion(callCtx, &providers.ChatRequest{
		Model: e.model,
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: systemPrompt},
			{Role: providers.RoleUser, Content: "Job description:\n" + jobText},
		},
		Temperature: e.temperature,
		JSONMode:    true,
		Timeout:     e.timeout,
		Metadata:    map[string]string{"step": "skill_extraction"},
	})
	if err != nil {
		return nil, fmt.Errorf("skill extraction: %w", err)
	}

	tokens, err := ParseSkills(resp.Content())
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// Tokens is Extract for the selection engine: any failure is logged and
// yields an empty list.
func (e *Extractor) Tokens(ctx context.Context, jobText string) []string {
	tokens, err := e.Extract(ctx, jobText)
	if err != nil {
		e.logger.Warn("skill extraction failed",
			zap.Error(err),
			zap.String("job_text", observability.Truncate(jobText, observability.DefaultMaxFieldLength)),
		)
		e.metrics.RecordSkillExtractionFailure()
		return []string{}
	}
	return tokens
}

// ParseSkills reads either {"skills": [...]} or a bare JSON array
func ParseSkills(raw string) ([]string, error) {
	body := providers.ExtractJSON(raw)
	if body == "" {
		return nil, ErrMalformedResponse
	}

	var list []string
	if strings.HasPrefix(body, "[") {
		if err := json.Unmarshal([]byte(body), &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return normalize(list), nil
	}

	var wrapped struct {
		Skills *[]string `json:"skills"`
	}
	if err := json.Unmarshal([]byte(body), &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if wrapped.Skills == nil {
		return nil, fmt.Errorf("%w: missing skills key", ErrMalformedResponse)
	}
	return normalize(*wrapped.Skills), nil
}

func normalize(list []string) []string {
	out := make([]string, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, raw := range list {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}
		key := strings.ToLower(token)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, token)
	}
	return out
}
