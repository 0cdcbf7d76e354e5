// Package content manages experience blocks, the profile and style
// guidelines. Block embeddings are kept in step with their canonical text.
package content

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/vector-cv/models"
	"github.com/upb/vector-cv/repositories"
	"github.com/upb/vector-cv/services"
	"github.com/upb/vector-cv/services/embedding"
	"go.uber.org/zap"
)

// BlockEmbedder computes and stores a block's embedding
type BlockEmbedder interface {
	EmbedBlock(ctx context.Context, block *models.ContentBlock) embedding.Embedding
}

// CreateBlockInput is the data needed for a new block
type CreateBlockInput struct {
	Title        string
	Organization string
	Body         string
	Tags         []string
	Category     string
	Priority     string
}

// Service implements block, profile and guideline operations
type Service struct {
	repos    *repositories.Repositories
	tx       repositories.TransactionManager
	embedder BlockEmbedder
	logger   *zap.Logger
}

// NewService creates a content service
func NewService(repos *repositories.Repositories, tx repositories.TransactionManager, embedder BlockEmbedder, logger *zap.Logger) *Service {
	return &Service{
		repos:    repos,
		tx:       tx,
		embedder: embedder,
		logger:   logger,
	}
}

// CreateBlock validates input, embeds the block and stores it
func (s *Service) CreateBlock(ctx context.Context, in CreateBlockInput) (*models.ContentBlock, error) {
	category, err := models.ParseCategory(in.Category)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeValidation, err.Error(), err).WithDetail("field", "category")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, services.NewValidationError("title", "title is required")
	}
	if strings.TrimSpace(in.Body) == "" {
		return nil, services.NewValidationError("body", "body is required")
	}

	block := models.NewContentBlock(strings.TrimSpace(in.Title), strings.TrimSpace(in.Organization), in.Body, cleanTags(in.Tags), category, in.Priority)
	emb := s.embedder.EmbedBlock(ctx, block)

	if err := s.repos.ContentBlocks.Create(ctx, block); err != nil {
		return nil, services.WrapInternal("failed to create experience block", err)
	}

	s.logger.Info("experience block created",
		zap.String("block_id", block.ID.String()),
		zap.String("category", block.Category.String()),
		zap.Bool("fallback_embedding", emb.Fallback))
	return block, nil
}

// GetBlock returns a block by id
func (s *Service) GetBlock(ctx context.Context, id uuid.UUID) (*models.ContentBlock, error) {
	block, err := s.repos.ContentBlocks.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapBlockError(err, "failed to get experience block")
	}
	return block, nil
}

// ListBlocks returns blocks newest first, optionally of one category
func (s *Service) ListBlocks(ctx context.Context, category string) ([]*models.ContentBlock, error) {
	blocks, err := s.repos.ContentBlocks.List(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to list experience blocks", err)
	}
	if strings.TrimSpace(category) == "" {
		return blocks, nil
	}

	c := models.Category(strings.ToLower(strings.TrimSpace(category)))
	if !c.Valid() {
		return nil, services.NewValidationError("category", "invalid category: "+category)
	}
	filtered := make([]*models.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		if b.Category == c {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

// UpdateBlock applies a partial update. The embedding is recomputed only
// when the canonical text changed.
func (s *Service) UpdateBlock(ctx context.Context, id uuid.UUID, patch models.ContentBlockPatch) (*models.ContentBlock, error) {
	if patch.Category != nil && !patch.Category.Valid() {
		return nil, services.NewValidationError("category", "invalid category: "+patch.Category.String())
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, services.NewValidationError("title", "title cannot be empty")
	}
	if patch.Body != nil && strings.TrimSpace(*patch.Body) == "" {
		return nil, services.NewValidationError("body", "body cannot be empty")
	}
	if patch.Tags != nil {
		tags := cleanTags(*patch.Tags)
		patch.Tags = &tags
	}

	block, err := s.repos.ContentBlocks.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapBlockError(err, "failed to get experience block")
	}

	reembedded := false
	if patch.Apply(block) {
		s.embedder.EmbedBlock(ctx, block)
		reembedded = true
	}

	if err := s.repos.ContentBlocks.Update(ctx, block); err != nil {
		return nil, s.mapBlockError(err, "failed to update experience block")
	}

	s.logger.Info("experience block updated",
		zap.String("block_id", block.ID.String()),
		zap.Bool("reembedded", reembedded))
	return block, nil
}

// DeleteBlock removes a block
func (s *Service) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	if err := s.repos.ContentBlocks.Delete(ctx, id); err != nil {
		return s.mapBlockError(err, "failed to delete experience block")
	}
	s.logger.Info("experience block deleted", zap.String("block_id", id.String()))
	return nil
}

// CountBlocks returns the number of stored blocks
func (s *Service) CountBlocks(ctx context.Context) (int, error) {
	n, err := s.repos.ContentBlocks.Count(ctx)
	if err != nil {
		return 0, services.WrapInternal("failed to count experience blocks", err)
	}
	return n, nil
}

// GetProfile returns the singleton profile
func (s *Service) GetProfile(ctx context.Context) (*models.ProfileInfo, error) {
	profile, err := s.repos.Profiles.Get(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrProfileNotFound
		}
		return nil, services.WrapInternal("failed to get personal info", err)
	}
	return profile, nil
}

// UpsertProfile creates or replaces the singleton profile
func (s *Service) UpsertProfile(ctx context.Context, profile *models.ProfileInfo) (*models.ProfileInfo, error) {
	if strings.TrimSpace(profile.Name) == "" {
		return nil, services.NewValidationError("name", "name is required")
	}
	if err := s.repos.Profiles.Upsert(ctx, profile); err != nil {
		return nil, services.WrapInternal("failed to save personal info", err)
	}
	return profile, nil
}

// CreateGuideline stores an active style guideline
func (s *Service) CreateGuideline(ctx context.Context, g *models.StyleGuideline) (*models.StyleGuideline, error) {
	if strings.TrimSpace(g.Name) == "" {
		return nil, services.NewValidationError("name", "name is required")
	}
	if err := s.repos.StyleGuidelines.Create(ctx, g); err != nil {
		return nil, services.WrapInternal("failed to create style guideline", err)
	}
	return g, nil
}

// ListGuidelines returns active style guidelines
func (s *Service) ListGuidelines(ctx context.Context) ([]*models.StyleGuideline, error) {
	list, err := s.repos.StyleGuidelines.ListActive(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to list style guidelines", err)
	}
	return list, nil
}

func (s *Service) mapBlockError(err error, message string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return services.ErrBlockNotFound
	}
	return services.WrapInternal(message, err)
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
