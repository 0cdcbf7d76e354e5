package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/upb/vector-cv/models"
	"github.com/upb/vector-cv/repositories"
)

// NewRepositories returns a full in-memory repository set
func NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		ContentBlocks:   NewContentBlockStore(),
		Profiles:        NewProfileStore(),
		Applications:    NewJobApplicationStore(),
		StyleGuidelines: NewStyleGuidelineStore(),
	}
}

// ProfileStore keeps the singleton profile
type ProfileStore struct {
	mu      sync.RWMutex
	profile *models.ProfileInfo
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{}
}

func (s *ProfileStore) Get(_ context.Context) (*models.ProfileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.profile == nil {
		return nil, fmt.Errorf("profile: %w", repositories.ErrNotFound)
	}
	p := *s.profile
	return &p, nil
}

func (s *ProfileStore) Upsert(_ context.Context, profile *models.ProfileInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile != nil {
		profile.ID = s.profile.ID
		profile.CreatedAt = s.profile.CreatedAt
	}
	p := *profile
	s.profile = &p
	return nil
}

// JobApplicationStore keeps job applications by id
type JobApplicationStore struct {
	mu   sync.RWMutex
	apps map[uuid.UUID]*models.JobApplication
}

func NewJobApplicationStore() *JobApplicationStore {
	return &JobApplicationStore{apps: make(map[uuid.UUID]*models.JobApplication)}
}

func (s *JobApplicationStore) Create(_ context.Context, app *models.JobApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.apps[app.ID]; exists {
		return fmt.Errorf("job application %s already exists", app.ID)
	}
	c := *app
	s.apps[app.ID] = &c
	return nil
}

func (s *JobApplicationStore) GetByID(_ context.Context, id uuid.UUID) (*models.JobApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.apps[id]
	if !ok {
		return nil, fmt.Errorf("job application %s: %w", id, repositories.ErrNotFound)
	}
	c := *app
	return &c, nil
}

func (s *JobApplicationStore) List(_ context.Context) ([]*models.JobApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.JobApplication, 0, len(s.apps))
	for _, app := range s.apps {
		c := *app
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

func (s *JobApplicationStore) UpdateTracking(_ context.Context, app *models.JobApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.apps[app.ID]
	if !ok {
		return fmt.Errorf("job application %s: %w", app.ID, repositories.ErrNotFound)
	}
	existing.Status = app.Status
	existing.Notes = app.Notes
	existing.AppliedDate = app.AppliedDate
	existing.UpdatedAt = app.UpdatedAt
	return nil
}

// StyleGuidelineStore keeps style guidelines in insertion order
type StyleGuidelineStore struct {
	mu         sync.RWMutex
	guidelines []*models.StyleGuideline
}

func NewStyleGuidelineStore() *StyleGuidelineStore {
	return &StyleGuidelineStore{}
}

func (s *StyleGuidelineStore) Create(_ context.Context, g *models.StyleGuideline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *g
	s.guidelines = append(s.guidelines, &c)
	return nil
}

func (s *StyleGuidelineStore) ListActive(_ context.Context) ([]*models.StyleGuideline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.StyleGuideline{}
	for _, g := range s.guidelines {
		if g.IsActive {
			c := *g
			out = append(out, &c)
		}
	}
	return out, nil
}

// TransactionManager runs fn directly. In-memory writes are applied
// immediately and are not rolled back.
type TransactionManager struct{}

func (TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return noopTx{ctx: ctx}, nil
}

func (m TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	return fn(ctx, noopTx{ctx: ctx})
}

type noopTx struct{ ctx context.Context }

func (noopTx) Commit() error              { return nil }
func (noopTx) Rollback() error            { return nil }
func (t noopTx) Context() context.Context { return t.ctx }
