package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/upb/vector-cv/models"
)

// ErrNotFound is wrapped by every repository lookup that matches no row
var ErrNotFound = errors.New("not found")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction.
	// Repositories called with the supplied context join the transaction.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	Commit() error
	Rollback() error
	Context() context.Context
}

// RecordOrder picks which record a single-record category lookup returns
type RecordOrder int

const (
	// OrderOldest returns the record with the earliest created_at, ties by id
	OrderOldest RecordOrder = iota
	// OrderNewest returns the record with the latest created_at, ties by id
	OrderNewest
)

// ScoredBlock is a content block paired with its cosine distance to a query vector
type ScoredBlock struct {
	Block    *models.ContentBlock
	Distance float64
}

// ContentBlockRepository stores content blocks and answers the queries the
// selection engine depends on. Every category query returns records in
// created_at order with id as tie-break so results are reproducible.
type ContentBlockRepository interface {
	// Create inserts a block. The block category must be valid.
	Create(ctx context.Context, block *models.ContentBlock) error

	// GetByID retrieves a block by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.ContentBlock, error)

	// GetByTitle retrieves the oldest block with the given title
	GetByTitle(ctx context.Context, title string) (*models.ContentBlock, error)

	// List returns all blocks, newest first
	List(ctx context.Context) ([]*models.ContentBlock, error)

	// Update replaces a block's mutable fields
	Update(ctx context.Context, block *models.ContentBlock) error

	// Delete removes a block
	Delete(ctx context.Context, id uuid.UUID) error

	// Count returns the number of stored blocks
	Count(ctx context.Context) (int, error)

	// ListByCategory returns every block of the category, oldest first
	ListByCategory(ctx context.Context, category models.Category) ([]*models.ContentBlock, error)

	// FindFirstByTag returns the oldest block in any of the categories, not in
	// exclude, with a tag containing token case-insensitively. Returns nil
	// when nothing matches.
	FindFirstByTag(ctx context.Context, categories []models.Category, token string, exclude []uuid.UUID) (*models.ContentBlock, error)

	// NearestByCategory returns up to k blocks of the category, not in
	// exclude, ordered by ascending cosine distance to query
	NearestByCategory(ctx context.Context, category models.Category, query pgvector.Vector, k int, exclude []uuid.UUID) ([]ScoredBlock, error)

	// FirstByCategory returns one block of the category, not in exclude,
	// chosen by order. Returns nil when nothing matches.
	FirstByCategory(ctx context.Context, category models.Category, order RecordOrder, exclude []uuid.UUID) (*models.ContentBlock, error)
}

// ProfileRepository handles the singleton profile row
type ProfileRepository interface {
	// Get returns the profile or an ErrNotFound error
	Get(ctx context.Context) (*models.ProfileInfo, error)

	// Upsert creates the profile on first write and overwrites it afterwards.
	// The stored row is written back into profile.
	Upsert(ctx context.Context, profile *models.ProfileInfo) error
}

// JobApplicationRepository handles job application records
type JobApplicationRepository interface {
	Create(ctx context.Context, app *models.JobApplication) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobApplication, error)

	// List returns applications, newest first
	List(ctx context.Context) ([]*models.JobApplication, error)

	// UpdateTracking persists status, notes and applied date only
	UpdateTracking(ctx context.Context, app *models.JobApplication) error
}

// StyleGuidelineRepository handles style guidelines
type StyleGuidelineRepository interface {
	Create(ctx context.Context, guideline *models.StyleGuideline) error

	// ListActive returns active guidelines, oldest first
	ListActive(ctx context.Context) ([]*models.StyleGuideline, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	ContentBlocks   ContentBlockRepository
	Profiles        ProfileRepository
	Applications    JobApplicationRepository
	StyleGuidelines StyleGuidelineRepository
}
