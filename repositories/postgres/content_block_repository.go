package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/upb/vector-cv/models"
	"github.com/upb/vector-cv/repositories"
	"go.uber.org/zap"
)

const blockColumns = `id, title, organization, body, tags, category, priority, embedding, created_at, updated_at`

var errInvalidCategory = errors.New("invalid category")

// ContentBlockRepository implements repositories.ContentBlockRepository on
// PostgreSQL with the pgvector extension
type ContentBlockRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewContentBlockRepository creates a new content block repository
func NewContentBlockRepository(db *DB, logger *zap.Logger) *ContentBlockRepository {
	return &ContentBlockRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new content block
func (r *ContentBlockRepository) Create(ctx context.Context, block *models.ContentBlock) error {
	if !block.Category.Valid() {
		return fmt.Errorf("%w: %q", errInvalidCategory, block.Category)
	}

	tags, err := marshalTags(block.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO experience_blocks (` + blockColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	executor := GetExecutor(ctx, r.db)
	_, err = executor.ExecContext(ctx, query,
		block.ID,
		block.Title,
		block.Organization,
		block.Body,
		tags,
		string(block.Category),
		block.Priority,
		block.Embedding,
		block.CreatedAt,
		block.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create content block: %w", err)
	}

	r.logger.Debug("content block created",
		zap.String("id", block.ID.String()),
		zap.String("category", block.Category.String()))
	return nil
}

// GetByID retrieves a content block by ID
func (r *ContentBlockRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ContentBlock, error) {
	query := `SELECT ` + blockColumns + ` FROM experience_blocks WHERE id = $1`

	block, err := scanBlock(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("content block %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get content block: %w", err)
	}
	return block, nil
}

// GetByTitle retrieves the oldest content block with the given title
func (r *ContentBlockRepository) GetByTitle(ctx context.Context, title string) (*models.ContentBlock, error) {
	query := `
		SELECT ` + blockColumns + `
		FROM experience_blocks
		WHERE title = $1
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`

	block, err := scanBlock(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, title))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("content block %q: %w", title, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get content block by title: %w", err)
	}
	return block, nil
}

// List returns all content blocks, newest first
func (r *ContentBlockRepository) List(ctx context.Context) ([]*models.ContentBlock, error) {
	query := `
		SELECT ` + blockColumns + `
		FROM experience_blocks
		ORDER BY created_at DESC, id DESC
	`
	return r.queryBlocks(ctx, query)
}

// Update updates a content block
func (r *ContentBlockRepository) Update(ctx context.Context, block *models.ContentBlock) error {
	if !block.Category.Valid() {
		return fmt.Errorf("%w: %q", errInvalidCategory, block.Category)
	}

	tags, err := marshalTags(block.Tags)
	if err != nil {
		return err
	}

	query := `
		UPDATE experience_blocks
		SET title = $2, organization = $3, body = $4, tags = $5, category = $6,
			priority = $7, embedding = $8, updated_at = $9
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		block.ID,
		block.Title,
		block.Organization,
		block.Body,
		tags,
		string(block.Category),
		block.Priority,
		block.Embedding,
		block.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update content block: %w", err)
	}

	if err := expectOneRow(result, "content block", block.ID); err != nil {
		return err
	}

	r.logger.Debug("content block updated", zap.String("id", block.ID.String()))
	return nil
}

// Delete deletes a content block
func (r *ContentBlockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM experience_blocks WHERE id = $1`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete content block: %w", err)
	}

	if err := expectOneRow(result, "content block", id); err != nil {
		return err
	}

	r.logger.Debug("content block deleted", zap.String("id", id.String()))
	return nil
}

// Count returns the number of stored blocks
func (r *ContentBlockRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM experience_blocks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count content blocks: %w", err)
	}
	return n, nil
}

// ListByCategory returns every block of the category, oldest first
func (r *ContentBlockRepository) ListByCategory(ctx context.Context, category models.Category) ([]*models.ContentBlock, error) {
	query := `
		SELECT ` + blockColumns + `
		FROM experience_blocks
		WHERE category = $1
		ORDER BY created_at ASC, id ASC
	`
	return r.queryBlocks(ctx, query, string(category))
}

// FindFirstByTag returns the oldest block in categories, not excluded, with a
// tag containing token case-insensitively
func (r *ContentBlockRepository) FindFirstByTag(ctx context.Context, categories []models.Category, token string, exclude []uuid.UUID) (*models.ContentBlock, error) {
	query := `
		SELECT ` + blockColumns + `
		FROM experience_blocks b
		WHERE b.category = ANY($1::text[])
			AND NOT (b.id = ANY($2::uuid[]))
			AND EXISTS (
				SELECT 1 FROM jsonb_array_elements_text(b.tags) AS t(tag)
				WHERE t.tag ILIKE $3 ESCAPE '\'
			)
		ORDER BY b.created_at ASC, b.id ASC
	`

	blocks, err := r.queryBlocks(ctx, query,
		pq.Array(categoryStrings(categories)),
		pq.Array(idStrings(exclude)),
		"%"+escapeLike(token)+"%",
	)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, nil
	}
	return blocks[0], nil
}

// NearestByCategory returns up to k blocks ordered by ascending cosine distance
func (r *ContentBlockRepository) NearestByCategory(ctx context.Context, category models.Category, query pgvector.Vector, k int, exclude []uuid.UUID) ([]repositories.ScoredBlock, error) {
	if k <= 0 {
		return []repositories.ScoredBlock{}, nil
	}

	sqlQuery := `
		SELECT ` + blockColumns + `, embedding <=> $2::vector AS distance
		FROM experience_blocks
		WHERE category = $1
			AND NOT (id = ANY($3::uuid[]))
		ORDER BY distance ASC, created_at ASC, id ASC
		LIMIT $4
	`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, sqlQuery,
		string(category),
		query,
		pq.Array(idStrings(exclude)),
		k,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearest content blocks: %w", err)
	}
	defer rows.Close()

	scored := []repositories.ScoredBlock{}
	for rows.Next() {
		var distance float64
		block, err := scanBlock(rows, &distance)
		if errors.Is(err, errInvalidCategory) {
			r.logger.Warn("skipping block with invalid category", zap.Error(err))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan content block: %w", err)
		}
		scored = append(scored, repositories.ScoredBlock{Block: block, Distance: distance})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating content blocks: %w", err)
	}

	return scored, nil
}

// FirstByCategory returns one block of the category chosen by order
func (r *ContentBlockRepository) FirstByCategory(ctx context.Context, category models.Category, order repositories.RecordOrder, exclude []uuid.UUID) (*models.ContentBlock, error) {
	orderBy := "created_at ASC, id ASC"
	if order == repositories.OrderNewest {
		orderBy = "created_at DESC, id DESC"
	}

	query := `
		SELECT ` + blockColumns + `
		FROM experience_blocks
		WHERE category = $1
			AND NOT (id = ANY($2::uuid[]))
		ORDER BY ` + orderBy + `
		LIMIT 1
	`

	block, err := scanBlock(GetExecutor(ctx, r.db).QueryRowContext(ctx, query,
		string(category),
		pq.Array(idStrings(exclude)),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if errors.Is(err, errInvalidCategory) {
			r.logger.Warn("skipping block with invalid category", zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get first content block: %w", err)
	}
	return block, nil
}

func (r *ContentBlockRepository) queryBlocks(ctx context.Context, query string, args ...interface{}) ([]*models.ContentBlock, error) {
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query content blocks: %w", err)
	}
	defer rows.Close()

	blocks := []*models.ContentBlock{}
	for rows.Next() {
		block, err := scanBlock(rows)
		if errors.Is(err, errInvalidCategory) {
			r.logger.Warn("skipping block with invalid category", zap.Error(err))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan content block: %w", err)
		}
		blocks = append(blocks, block)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating content blocks: %w", err)
	}

	return blocks, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanBlock reads blockColumns plus any extra trailing destinations
func scanBlock(row rowScanner, extra ...interface{}) (*models.ContentBlock, error) {
	block := &models.ContentBlock{}
	var (
		tags     []byte
		category string
	)

	dest := []interface{}{
		&block.ID,
		&block.Title,
		&block.Organization,
		&block.Body,
		&tags,
		&category,
		&block.Priority,
		&block.Embedding,
		&block.CreatedAt,
		&block.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	block.Category = models.Category(category)
	if !block.Category.Valid() {
		return nil, fmt.Errorf("%w: block %s has %q", errInvalidCategory, block.ID, category)
	}

	block.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &block.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}

	return block, nil
}

func marshalTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	return data, nil
}

func expectOneRow(result sql.Result, entity string, id uuid.UUID) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, repositories.ErrNotFound)
	}
	return nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func categoryStrings(categories []models.Category) []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
