package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/vector-cv/models"
	"github.com/upb/vector-cv/repositories"
	"go.uber.org/zap"
)

// ProfileRepository implements repositories.ProfileRepository.
// The personal_info table carries a unique singleton column so concurrent
// first writes cannot create two rows.
type ProfileRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *DB, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the profile
func (r *ProfileRepository) Get(ctx context.Context) (*models.ProfileInfo, error) {
	query := `
		SELECT id, name, email, phone, location, linkedin, github, portfolio, summary, created_at, updated_at
		FROM personal_info
		LIMIT 1
	`

	p := &models.ProfileInfo{}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query).Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.Location,
		&p.LinkedIn,
		&p.GitHub,
		&p.Portfolio,
		&p.Summary,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile: %w", repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return p, nil
}

// Upsert creates the profile or overwrites the existing one
func (r *ProfileRepository) Upsert(ctx context.Context, p *models.ProfileInfo) error {
	query := `
		INSERT INTO personal_info (id, name, email, phone, location, linkedin, github, portfolio, summary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (singleton) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			location = EXCLUDED.location,
			linkedin = EXCLUDED.linkedin,
			github = EXCLUDED.github,
			portfolio = EXCLUDED.portfolio,
			summary = EXCLUDED.summary,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`

	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query,
		p.ID,
		p.Name,
		p.Email,
		p.Phone,
		p.Location,
		p.LinkedIn,
		p.GitHub,
		p.Portfolio,
		p.Summary,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	r.logger.Debug("profile upserted", zap.String("id", p.ID.String()))
	return nil
}
