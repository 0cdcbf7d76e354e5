// Package generation turns selected blocks into CV, cover letter and
// skills-gap documents with an LLM provider. Every failure is returned as
// an external DomainError; nothing is stored on failure.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/upb/vector-cv/config"
	"github.com/upb/vector-cv/internal/observability"
	"github.com/upb/vector-cv/models"
	"github.com/upb/vector-cv/services"
	"github.com/upb/vector-cv/services/providers"
	"go.uber.org/zap"
)

// Generation steps, used in error details and metrics
const (
	StepSkillsGap   = "skills_gap"
	StepCV          = "cv"
	StepCoverLetter = "cover_letter"
)

// CoverLetterBlocks is how many selected blocks the cover letter draws on
const CoverLetterBlocks = 3

// SkillsGapReport compares the candidate's blocks with a job description
type SkillsGapReport struct {
	MissingSkills   []string `json:"missing_skills"`
	MatchingSkills  []string `json:"matching_skills"`
	PartialMatches  []string `json:"partial_matches"`
	Recommendations []string `json:"recommendations"`
}

func (r *SkillsGapReport) normalize() {
	if r.MissingSkills == nil {
		r.MissingSkills = []string{}
	}
	if r.MatchingSkills == nil {
		r.MatchingSkills = []string{}
	}
	if r.PartialMatches == nil {
		r.PartialMatches = []string{}
	}
	if r.Recommendations == nil {
		r.Recommendations = []string{}
	}
}

// Documents are the artifacts of one generation run
type Documents struct {
	CV          string
	CoverLetter string
	SkillsGap   SkillsGapReport
}

// Service generates documents
type Service struct {
	provider providers.Provider
	config   config.GenerationConfig
	metrics  *observability.Collector
	logger   *zap.Logger
}

// NewService creates a generation service. metrics may be nil.
func NewService(provider providers.Provider, cfg config.GenerationConfig, metrics *observability.Collector, logger *zap.Logger) *Service {
	return &Service{
		provider: provider,
		config:   cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// AnalyzeSkillsGap asks for a JSON skills-gap report
func (s *Service) AnalyzeSkillsGap(ctx context.Context, blocks []*models.ContentBlock, job string) (SkillsGapReport, error) {
	content, err := s.complete(ctx, StepSkillsGap, skillsGapSystemPrompt, skillsGapPrompt(blocks, job), s.config.AnalysisTemperature, true)
	if err != nil {
		return SkillsGapReport{}, err
	}

	var report SkillsGapReport
	if err := json.Unmarshal([]byte(providers.ExtractJSON(content)), &report); err != nil {
		s.metrics.RecordGenerationFailure(StepSkillsGap)
		s.logger.Warn("skills gap response is not valid JSON",
			append(observability.StringFields("response", content), zap.Error(err))...)
		return SkillsGapReport{}, services.NewGenerationError(StepSkillsGap, fmt.Errorf("decode skills gap report: %w", err))
	}
	report.normalize()
	return report, nil
}

// GenerateCV writes a markdown CV from the profile and blocks only
func (s *Service) GenerateCV(ctx context.Context, profile *models.ProfileInfo, blocks []*models.ContentBlock, job string, guidelines []*models.StyleGuideline) (string, error) {
	return s.complete(ctx, StepCV, cvSystemPrompt, cvPrompt(profile, blocks, job, guidelines), s.config.CVTemperature, false)
}

// GenerateCoverLetter writes a markdown cover letter from the first blocks
func (s *Service) GenerateCoverLetter(ctx context.Context, profile *models.ProfileInfo, blocks []*models.ContentBlock, job, company, title string) (string, error) {
	if len(blocks) > CoverLetterBlocks {
		blocks = blocks[:CoverLetterBlocks]
	}
	return s.complete(ctx, StepCoverLetter, coverLetterSystemPrompt, coverLetterPrompt(profile, blocks, job, company, title), s.config.CoverLetterTemperature, false)
}

// GenerateAll runs the skills gap, CV and cover letter steps in that order
// and stops at the first failure
func (s *Service) GenerateAll(ctx context.Context, profile *models.ProfileInfo, blocks []*models.ContentBlock, guidelines []*models.StyleGuideline, job, company, title string) (*Documents, error) {
	report, err := s.AnalyzeSkillsGap(ctx, blocks, job)
	if err != nil {
		return nil, err
	}
	cv, err := s.GenerateCV(ctx, profile, blocks, job, guidelines)
	if err != nil {
		return nil, err
	}
	letter, err := s.GenerateCoverLetter(ctx, profile, blocks, job, company, title)
	if err != nil {
		return nil, err
	}
	return &Documents{CV: cv, CoverLetter: letter, SkillsGap: report}, nil
}

func (s *Service) complete(ctx context.Context, step, system, user string, temperature float64, jsonMode bool) (string, error) {
	if s.provider == nil {
		return "", services.NewGenerationError(step, errors.New("no generation provider configured"))
	}

	callCtx := ctx
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.provider.ChatCompletion(callCtx, &providers.ChatRequest{
		Model: s.config.Model,
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: system},
			{Role: providers.RoleUser, Content: user},
		},
		Temperature: temperature,
		JSONMode:    jsonMode,
		Timeout:     s.config.Timeout,
		Metadata:    map[string]string{"step": step},
	})
	if err != nil {
		s.metrics.RecordGenerationFailure(step)
		s.logger.Error("generation step failed",
			zap.String("step", step),
			zap.String("provider", s.provider.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", services.NewGenerationError(step, err)
	}

	content := resp.Content()
	if content == "" {
		s.metrics.RecordGenerationFailure(step)
		return "", services.NewGenerationError(step, errors.New("empty completion"))
	}

	s.logger.Debug("generation step completed",
		zap.String("step", step),
		zap.String("provider", s.provider.Name()),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", time.Since(start)))
	return content, nil
}
