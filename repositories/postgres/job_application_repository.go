package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/upb/vector-cv/models"
	"github.com/upb/vector-cv/repositories"
	"go.uber.org/zap"
)

const applicationColumns = `id, company_name, job_title, raw_spec, job_url, generated_cv, generated_cover_letter,
	skills_gap_report, selected_block_ids, status, applied_date, notes, created_at, updated_at`

// JobApplicationRepository implements repositories.JobApplicationRepository
type JobApplicationRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewJobApplicationRepository creates a new job application repository
func NewJobApplicationRepository(db *DB, logger *zap.Logger) *JobApplicationRepository {
	return &JobApplicationRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new job application
func (r *JobApplicationRepository) Create(ctx context.Context, app *models.JobApplication) error {
	query := `
		INSERT INTO job_applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::uuid[], $10, $11, $12, $13, $14)
	`

	report := []byte(app.SkillsGapReport)
	if len(report) == 0 {
		report = []byte(`{}`)
	}

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		app.ID,
		app.CompanyName,
		app.JobTitle,
		app.RawSpec,
		app.JobURL,
		app.GeneratedCV,
		app.GeneratedCoverLetter,
		report,
		pq.Array(idStrings(app.SelectedBlockIDs)),
		string(app.Status),
		nullTime(app),
		app.Notes,
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job application: %w", err)
	}

	r.logger.Debug("job application created",
		zap.String("id", app.ID.String()),
		zap.String("company", app.CompanyName))
	return nil
}

// GetByID retrieves a job application by ID
func (r *JobApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.JobApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM job_applications WHERE id = $1`

	app, err := scanApplication(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job application %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job application: %w", err)
	}
	return app, nil
}

// List returns job applications, newest first
func (r *JobApplicationRepository) List(ctx context.Context) ([]*models.JobApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM job_applications ORDER BY created_at DESC, id DESC`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list job applications: %w", err)
	}
	defer rows.Close()

	apps := []*models.JobApplication{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job application: %w", err)
		}
		apps = append(apps, app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job applications: %w", err)
	}

	return apps, nil
}

// UpdateTracking persists status, notes and applied date. Generated content
// columns are never written after creation.
func (r *JobApplicationRepository) UpdateTracking(ctx context.Context, app *models.JobApplication) error {
	query := `
		UPDATE job_applications
		SET status = $2, notes = $3, applied_date = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		app.ID,
		string(app.Status),
		app.Notes,
		nullTime(app),
		app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update job application: %w", err)
	}

	if err := expectOneRow(result, "job application", app.ID); err != nil {
		return err
	}

	r.logger.Debug("job application updated",
		zap.String("id", app.ID.String()),
		zap.String("status", string(app.Status)))
	return nil
}

func scanApplication(row rowScanner) (*models.JobApplication, error) {
	app := &models.JobApplication{}
	var (
		report      []byte
		blockIDs    pq.StringArray
		status      string
		appliedDate sql.NullTime
	)

	err := row.Scan(
		&app.ID,
		&app.CompanyName,
		&app.JobTitle,
		&app.RawSpec,
		&app.JobURL,
		&app.GeneratedCV,
		&app.GeneratedCoverLetter,
		&report,
		&blockIDs,
		&status,
		&appliedDate,
		&app.Notes,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	app.SkillsGapReport = report
	app.Status = models.ApplicationStatus(status)
	if appliedDate.Valid {
		t := appliedDate.Time
		app.AppliedDate = &t
	}

	app.SelectedBlockIDs = make([]uuid.UUID, 0, len(blockIDs))
	for _, raw := range blockIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid selected block id %q: %w", raw, err)
		}
		app.SelectedBlockIDs = append(app.SelectedBlockIDs, id)
	}

	return app, nil
}

func nullTime(app *models.JobApplication) sql.NullTime {
	if app.AppliedDate == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *app.AppliedDate, Valid: true}
}
