// Package memory provides in-process repository implementations. All data is
// lost when the process exits.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/upb/vector-cv/models"
	"github.com/upb/vector-cv/repositories"
)

// ContentBlockStore is an in-memory repositories.ContentBlockRepository with
// the same ordering and distance semantics as the PostgreSQL store
type ContentBlockStore struct {
	mu     sync.RWMutex
	blocks map[uuid.UUID]*models.ContentBlock
}

// NewContentBlockStore creates an empty store
func NewContentBlockStore() *ContentBlockStore {
	return &ContentBlockStore{blocks: make(map[uuid.UUID]*models.ContentBlock)}
}

func (s *ContentBlockStore) Create(_ context.Context, block *models.ContentBlock) error {
	if !block.Category.Valid() {
		return fmt.Errorf("invalid category: %q", block.Category)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.blocks[block.ID]; exists {
		return fmt.Errorf("content block %s already exists", block.ID)
	}
	s.blocks[block.ID] = cloneBlock(block)
	return nil
}

func (s *ContentBlockStore) GetByID(_ context.Context, id uuid.UUID) (*models.ContentBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	block, ok := s.blocks[id]
	if !ok {
		return nil, fmt.Errorf("content block %s: %w", id, repositories.ErrNotFound)
	}
	return cloneBlock(block), nil
}

func (s *ContentBlockStore) GetByTitle(_ context.Context, title string) (*models.ContentBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, block := range s.sorted() {
		if block.Title == title {
			return cloneBlock(block), nil
		}
	}
	return nil, fmt.Errorf("content block %q: %w", title, repositories.ErrNotFound)
}

func (s *ContentBlockStore) List(_ context.Context) ([]*models.ContentBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := s.sorted()
	out := make([]*models.ContentBlock, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		out = append(out, cloneBlock(sorted[i]))
	}
	return out, nil
}

func (s *ContentBlockStore) Update(_ context.Context, block *models.ContentBlock) error {
	if !block.Category.Valid() {
		return fmt.Errorf("invalid category: %q", block.Category)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.blocks[block.ID]
	if !ok {
		return fmt.Errorf("content block %s: %w", block.ID, repositories.ErrNotFound)
	}
	updated := cloneBlock(block)
	updated.CreatedAt = existing.CreatedAt
	s.blocks[block.ID] = updated
	return nil
}

func (s *ContentBlockStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blocks[id]; !ok {
		return fmt.Errorf("content block %s: %w", id, repositories.ErrNotFound)
	}
	delete(s.blocks, id)
	return nil
}

func (s *ContentBlockStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks), nil
}

func (s *ContentBlockStore) ListByCategory(_ context.Context, category models.Category) ([]*models.ContentBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.ContentBlock{}
	for _, block := range s.sorted() {
		if block.Category == category {
			out = append(out, cloneBlock(block))
		}
	}
	return out, nil
}

func (s *ContentBlockStore) FindFirstByTag(_ context.Context, categories []models.Category, token string, exclude []uuid.UUID) (*models.ContentBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	excluded := idSet(exclude)
	for _, block := range s.sorted() {
		if _, skip := excluded[block.ID]; skip || !inCategories(block.Category, categories) {
			continue
		}
		if block.HasTagContaining(token) {
			return cloneBlock(block), nil
		}
	}
	return nil, nil
}

func (s *ContentBlockStore) NearestByCategory(_ context.Context, category models.Category, query pgvector.Vector, k int, exclude []uuid.UUID) ([]repositories.ScoredBlock, error) {
	if k <= 0 {
		return []repositories.ScoredBlock{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	excluded := idSet(exclude)
	q := query.Slice()
	scored := []repositories.ScoredBlock{}
	for _, block := range s.sorted() {
		if _, skip := excluded[block.ID]; skip || block.Category != category {
			continue
		}
		scored = append(scored, repositories.ScoredBlock{
			Block:    cloneBlock(block),
			Distance: CosineDistance(q, block.Embedding.Slice()),
		})
	}

	// stable sort keeps created_at/id order for equal distances
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Distance < scored[j].Distance
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (s *ContentBlockStore) FirstByCategory(_ context.Context, category models.Category, order repositories.RecordOrder, exclude []uuid.UUID) (*models.ContentBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	excluded := idSet(exclude)
	sorted := s.sorted()
	if order == repositories.OrderNewest {
		for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
			sorted[i], sorted[j] = sorted[j], sorted[i]
		}
	}

	for _, block := range sorted {
		if _, skip := excluded[block.ID]; skip || block.Category != category {
			continue
		}
		return cloneBlock(block), nil
	}
	return nil, nil
}

// sorted returns blocks ordered by created_at then id. Caller holds the lock.
func (s *ContentBlockStore) sorted() []*models.ContentBlock {
	out := make([]*models.ContentBlock, 0, len(s.blocks))
	for _, block := range s.blocks {
		out = append(out, block)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// CosineDistance returns 1 - cosine similarity. Mismatched lengths or a zero
// vector yield the maximum distance of 2 so such blocks sort last.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

func cloneBlock(b *models.ContentBlock) *models.ContentBlock {
	c := *b
	c.Tags = append([]string{}, b.Tags...)
	c.Embedding = pgvector.NewVector(append([]float32{}, b.Embedding.Slice()...))
	return &c
}

func idSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func inCategories(c models.Category, categories []models.Category) bool {
	for _, candidate := range categories {
		if c == candidate {
			return true
		}
	}
	return false
}
