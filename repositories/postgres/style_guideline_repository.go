package postgres

import (
	"context"
	"fmt"

	"github.com/upb/vector-cv/models"
	"go.uber.org/zap"
)

// StyleGuidelineRepository implements repositories.StyleGuidelineRepository
type StyleGuidelineRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewStyleGuidelineRepository creates a new style guideline repository
func NewStyleGuidelineRepository(db *DB, logger *zap.Logger) *StyleGuidelineRepository {
	return &StyleGuidelineRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new style guideline
func (r *StyleGuidelineRepository) Create(ctx context.Context, g *models.StyleGuideline) error {
	query := `
		INSERT INTO style_guidelines (id, name, description, rules, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	rules := []byte(g.Rules)
	if len(rules) == 0 {
		rules = []byte(`{}`)
	}

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		g.ID,
		g.Name,
		g.Description,
		rules,
		g.IsActive,
		g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create style guideline: %w", err)
	}

	r.logger.Debug("style guideline created", zap.String("id", g.ID.String()), zap.String("name", g.Name))
	return nil
}

// ListActive returns active guidelines, oldest first
func (r *StyleGuidelineRepository) ListActive(ctx context.Context) ([]*models.StyleGuideline, error) {
	query := `
		SELECT id, name, description, rules, is_active, created_at
		FROM style_guidelines
		WHERE is_active = TRUE
		ORDER BY created_at ASC, id ASC
	`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list style guidelines: %w", err)
	}
	defer rows.Close()

	guidelines := []*models.StyleGuideline{}
	for rows.Next() {
		g := &models.StyleGuideline{}
		var rules []byte
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &rules, &g.IsActive, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan style guideline: %w", err)
		}
		g.Rules = rules
		guidelines = append(guidelines, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating style guidelines: %w", err)
	}

	return guidelines, nil
}
