// Package selection picks the content blocks that go into a tailored CV.
//
// Selection runs a fixed sequence of stages against the content store. Each
// stage only sees blocks no earlier stage has taken, so the result never
// holds a block twice and earlier stages always win.
package selection

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/upb/vector-cv/internal/observability"
	"github.com/upb/vector-cv/models"
	"github.com/upb/vector-cv/repositories"
	"github.com/upb/vector-cv/services/embedding"
	"go.uber.org/zap"
)

// Stage names, in execution order
const (
	StagePillars      = "pillars"
	StageSkillSummary = "skills_summary"
	StageTagMatch     = "tag_match"
	StageSemantic     = "semantic"
	StageEmployment   = "employment"
	StageEducation    = "education"
)

// SemanticLimit bounds the supporting projects added by similarity
const SemanticLimit = 3

// BlockStore is the part of the content store the engine queries
type BlockStore interface {
	ListByCategory(ctx context.Context, category models.Category) ([]*models.ContentBlock, error)
	FindFirstByTag(ctx context.Context, categories []models.Category, token string, exclude []uuid.UUID) (*models.ContentBlock, error)
	NearestByCategory(ctx context.Context, category models.Category, query pgvector.Vector, k int, exclude []uuid.UUID) ([]repositories.ScoredBlock, error)
	FirstByCategory(ctx context.Context, category models.Category, order repositories.RecordOrder, exclude []uuid.UUID) (*models.ContentBlock, error)
}

// Embedder produces the job embedding. It must not fail.
type Embedder interface {
	Embed(ctx context.Context, text string) embedding.Embedding
}

// SkillExtractor produces skill tokens. It must not fail.
type SkillExtractor interface {
	Tokens(ctx context.Context, jobText string) []string
}

// StageReport counts the blocks one stage contributed
type StageReport struct {
	Stage string `json:"stage"`
	Added int    `json:"added"`
}

// Result is the ordered selection plus how it was built
type Result struct {
	Blocks   []*models.ContentBlock `json:"blocks"`
	Stages   []StageReport          `json:"stages"`
	Tokens   []string               `json:"tokens"`
	Fallback bool                   `json:"fallback_embedding"`
}

// BlockIDs returns the ids of the selected blocks in order
func (r *Result) BlockIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Blocks))
	for _, b := range r.Blocks {
		ids = append(ids, b.ID)
	}
	return ids
}

// Engine runs block selection
type Engine struct {
	store     BlockStore
	embedder  Embedder
	extractor SkillExtractor
	metrics   *observability.Collector
	logger    *zap.Logger
}

// NewEngine creates a selection engine. metrics may be nil.
func NewEngine(store BlockStore, embedder Embedder, extractor SkillExtractor, metrics *observability.Collector, logger *zap.Logger) *Engine {
	return &Engine{
		store:     store,
		embedder:  embedder,
		extractor: extractor,
		metrics:   metrics,
		logger:    logger,
	}
}

// accumulator holds the ordered result and the ids already taken
type accumulator struct {
	blocks []*models.ContentBlock
	seen   map[uuid.UUID]struct{}
}

func (a *accumulator) add(block *models.ContentBlock) bool {
	if block == nil {
		return false
	}
	if _, dup := a.seen[block.ID]; dup {
		return false
	}
	a.seen[block.ID] = struct{}{}
	a.blocks = append(a.blocks, block)
	return true
}

func (a *accumulator) exclude() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(a.blocks))
	for _, b := range a.blocks {
		ids = append(ids, b.ID)
	}
	return ids
}

// Select returns the blocks for jobDescription. An empty description is
// valid. Only store failures are returned.
func (e *Engine) Select(ctx context.Context, jobDescription string) (*Result, error) {
	emb := e.embedder.Embed(ctx, jobDescription)
	tokens := e.extractor.Tokens(ctx, jobDescription)
	if tokens == nil {
		tokens = []string{}
	}

	acc := &accumulator{seen: make(map[uuid.UUID]struct{})}
	result := &Result{Tokens: tokens, Fallback: emb.Fallback}

	stages := []struct {
		name string
		run  func(ctx context.Context, acc *accumulator) (int, error)
	}{
		{StagePillars, e.pillars},
		{StageSkillSummary, e.skillSummary},
		{StageTagMatch, func(ctx context.Context, acc *accumulator) (int, error) {
			return e.tagMatches(ctx, acc, tokens)
		}},
		{StageSemantic, func(ctx context.Context, acc *accumulator) (int, error) {
			return e.semantic(ctx, acc, emb.Vector)
		}},
		{StageEmployment, func(ctx context.Context, acc *accumulator) (int, error) {
			return e.single(ctx, acc, models.CategoryEmployment, repositories.OrderNewest)
		}},
		{StageEducation, func(ctx context.Context, acc *accumulator) (int, error) {
			return e.single(ctx, acc, models.CategoryEducation, repositories.OrderOldest)
		}},
	}

	for _, stage := range stages {
		added, err := stage.run(ctx, acc)
		if err != nil {
			return nil, fmt.Errorf("selection stage %s: %w", stage.name, err)
		}
		result.Stages = append(result.Stages, StageReport{Stage: stage.name, Added: added})
		e.metrics.RecordSelectionStage(stage.name, added)
		e.logger.Debug("selection stage",
			zap.String("stage", stage.name),
			zap.Int("added", added),
			zap.Int("total", len(acc.blocks)),
		)
	}

	result.Blocks = acc.blocks
	if result.Blocks == nil {
		result.Blocks = []*models.ContentBlock{}
	}

	e.logger.Info("block selection completed",
		zap.Int("blocks", len(result.Blocks)),
		zap.Int("tokens", len(tokens)),
		zap.Bool("fallback_embedding", emb.Fallback),
	)
	return result, nil
}

func (e *Engine) pillars(ctx context.Context, acc *accumulator) (int, error) {
	blocks, err := e.store.ListByCategory(ctx, models.CategoryPillarProject)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, b := range blocks {
		if acc.add(b) {
			added++
		}
	}
	return added, nil
}

func (e *Engine) skillSummary(ctx context.Context, acc *accumulator) (int, error) {
	blocks, err := e.store.ListByCategory(ctx, models.CategorySkillsSummary)
	if err != nil {
		return 0, err
	}
	if len(blocks) == 0 {
		return 0, nil
	}
	if acc.add(blocks[0]) {
		return 1, nil
	}
	return 0, nil
}

var tagCategories = []models.Category{models.CategorySupportingProject, models.CategoryPillarProject}

func (e *Engine) tagMatches(ctx context.Context, acc *accumulator, tokens []string) (int, error) {
	added := 0
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		block, err := e.store.FindFirstByTag(ctx, tagCategories, token, acc.exclude())
		if err != nil {
			return added, err
		}
		if acc.add(block) {
			added++
		}
	}
	return added, nil
}

func (e *Engine) semantic(ctx context.Context, acc *accumulator, query pgvector.Vector) (int, error) {
	scored, err := e.store.NearestByCategory(ctx, models.CategorySupportingProject, query, SemanticLimit, acc.exclude())
	if err != nil {
		return 0, err
	}
	added := 0
	for _, s := range scored {
		if added == SemanticLimit {
			break
		}
		if acc.add(s.Block) {
			added++
		}
	}
	return added, nil
}

func (e *Engine) single(ctx context.Context, acc *accumulator, category models.Category, order repositories.RecordOrder) (int, error) {
	block, err := e.store.FirstByCategory(ctx, category, order, acc.exclude())
	if err != nil {
		return 0, err
	}
	if acc.add(block) {
		return 1, nil
	}
	return 0, nil
}
