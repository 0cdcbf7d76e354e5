// Package application runs the generation flow: quota check, block
// selection, document generation and persistence of a JobApplication.
package application

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/vector-cv/internal/observability"
	"github.com/upb/vector-cv/models"
	"github.com/upb/vector-cv/repositories"
	"github.com/upb/vector-cv/services"
	"github.com/upb/vector-cv/services/generation"
	"github.com/upb/vector-cv/services/ratelimit"
	"github.com/upb/vector-cv/services/selection"
	"go.uber.org/zap"
)

// Selector picks blocks for a job description
type Selector interface {
	Select(ctx context.Context, jobDescription string) (*selection.Result, error)
}

// Generator produces the documents for selected blocks
type Generator interface {
	GenerateAll(ctx context.Context, profile *models.ProfileInfo, blocks []*models.ContentBlock, guidelines []*models.StyleGuideline, job, company, title string) (*generation.Documents, error)
}

// Quota is the part of the rate limiter the flow needs
type Quota interface {
	Check(key string) ratelimit.Decision
	Record(key string) ratelimit.Decision
}

// GenerateInput is one generation request
type GenerateInput struct {
	CompanyName string
	JobTitle    string
	JobSpec     string
	JobURL      string
	// ClientKey identifies the caller for quota accounting
	ClientKey string
}

// Service implements the application operations
type Service struct {
	repos     *repositories.Repositories
	selector  Selector
	generator Generator
	quota     Quota
	metrics   *observability.Collector
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates an application service. quota and metrics may be nil;
// a nil quota disables rate limiting.
func NewService(repos *repositories.Repositories, selector Selector, generator Generator, quota Quota, metrics *observability.Collector, logger *zap.Logger) *Service {
	return &Service{
		repos:     repos,
		selector:  selector,
		generator: generator,
		quota:     quota,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Generate runs the full flow. Quota is consumed only when the application
// has been stored.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*models.JobApplication, error) {
	if strings.TrimSpace(in.JobSpec) == "" {
		return nil, services.ErrEmptyJobSpec
	}

	profile, err := s.repos.Profiles.Get(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrProfileMissing
		}
		return nil, services.WrapInternal("failed to load personal info", err)
	}

	if s.quota != nil {
		if d := s.quota.Check(in.ClientKey); !d.Allowed {
			s.metrics.RecordRateLimitDenial()
			s.logger.Info("generation quota exhausted",
				zap.String("client", in.ClientKey),
				zap.Int("used", d.Used),
				zap.Int("limit", d.Limit))
			return nil, services.NewRateLimitError(d.Used, d.Limit, d.ResetAt)
		}
	}

	result, err := s.selector.Select(ctx, in.JobSpec)
	if err != nil {
		return nil, services.WrapInternal("block selection failed", err)
	}
	if len(result.Blocks) == 0 {
		return nil, services.ErrNoContent
	}

	guidelines, err := s.repos.StyleGuidelines.ListActive(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to load style guidelines", err)
	}

	docs, err := s.generator.GenerateAll(ctx, profile, result.Blocks, guidelines, in.JobSpec, in.CompanyName, in.JobTitle)
	if err != nil {
		return nil, err
	}

	report, err := json.Marshal(docs.SkillsGap)
	if err != nil {
		return nil, services.WrapInternal("failed to encode skills gap report", err)
	}

	app := models.NewJobApplication(strings.TrimSpace(in.CompanyName), strings.TrimSpace(in.JobTitle), in.JobSpec, strings.TrimSpace(in.JobURL))
	app.GeneratedCV = docs.CV
	app.GeneratedCoverLetter = docs.CoverLetter
	app.SkillsGapReport = report
	app.SelectedBlockIDs = result.BlockIDs()

	if err := s.repos.Applications.Create(ctx, app); err != nil {
		return nil, services.WrapInternal("failed to save application", err)
	}

	if s.quota != nil {
		s.quota.Record(in.ClientKey)
	}
	s.metrics.RecordApplicationGenerated()

	s.logger.Info("application generated",
		zap.String("application_id", app.ID.String()),
		zap.String("company", app.CompanyName),
		zap.Int("blocks", len(app.SelectedBlockIDs)),
		zap.Int("tokens", len(result.Tokens)),
		zap.Bool("fallback_embedding", result.Fallback))
	return app, nil
}

// Usage returns the caller's quota without consuming it
func (s *Service) Usage(clientKey string) ratelimit.Decision {
	if s.quota == nil {
		return ratelimit.Decision{Allowed: true}
	}
	return s.quota.Check(clientKey)
}

// List returns applications newest first
func (s *Service) List(ctx context.Context) ([]*models.JobApplication, error) {
	apps, err := s.repos.Applications.List(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to list applications", err)
	}
	return apps, nil
}

// Get returns one application
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.JobApplication, error) {
	app, err := s.repos.Applications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrApplicationNotFound
		}
		return nil, services.WrapInternal("failed to get application", err)
	}
	return app, nil
}

// UpdateTracking changes status, notes and applied date. Moving to applied
// without a date stamps the current time.
func (s *Service) UpdateTracking(ctx context.Context, id uuid.UUID, update models.ApplicationUpdate) (*models.JobApplication, error) {
	if update.Status != nil && !update.Status.Valid() {
		return nil, services.ErrInvalidStatus
	}

	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	update.Apply(app, s.now())
	if err := s.repos.Applications.UpdateTracking(ctx, app); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrApplicationNotFound
		}
		return nil, services.WrapInternal("failed to update application", err)
	}

	s.logger.Info("application updated",
		zap.String("application_id", app.ID.String()),
		zap.String("status", string(app.Status)))
	return app, nil
}
