package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/upb/vector-cv/config"
	"go.uber.org/zap"
)

// SchemaVersion is recorded in schema_migrations once InitSchema succeeds
const SchemaVersion = 1

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// WrapDB adapts an existing pool, e.g. one opened by sqlmock
func WrapDB(db *sql.DB, logger *zap.Logger) *DB {
	return &DB{DB: db, logger: logger}
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// InitSchema creates the pgvector extension and every table the service
// uses. dimensions fixes the embedding column width; changing it later
// requires re-embedding every block.
func (db *DB) InitSchema(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("invalid embedding dimensions: %d", dimensions)
	}

	schema := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;

		CREATE TABLE IF NOT EXISTS schema_migrations (
			version BIGINT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS experience_blocks (
			id UUID PRIMARY KEY,
			title VARCHAR(200) NOT NULL,
			organization VARCHAR(200) NOT NULL DEFAULT '',
			body TEXT NOT NULL,
			tags JSONB NOT NULL DEFAULT '[]'::jsonb,
			category VARCHAR(50) NOT NULL CHECK (category IN (
				'pillar_project', 'supporting_project', 'employment', 'education', 'skills_summary'
			)),
			priority VARCHAR(10) NOT NULL DEFAULT '3',
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS personal_info (
			id UUID PRIMARY KEY,
			singleton BOOLEAN NOT NULL DEFAULT TRUE UNIQUE CHECK (singleton),
			name VARCHAR(200) NOT NULL,
			email VARCHAR(200) NOT NULL DEFAULT '',
			phone VARCHAR(50) NOT NULL DEFAULT '',
			location VARCHAR(200) NOT NULL DEFAULT '',
			linkedin VARCHAR(500) NOT NULL DEFAULT '',
			github VARCHAR(500) NOT NULL DEFAULT '',
			portfolio VARCHAR(500) NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS style_guidelines (
			id UUID PRIMARY KEY,
			name VARCHAR(200) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			rules JSONB NOT NULL DEFAULT '{}'::jsonb,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS job_applications (
			id UUID PRIMARY KEY,
			company_name VARCHAR(200) NOT NULL,
			job_title VARCHAR(200) NOT NULL,
			raw_spec TEXT NOT NULL,
			job_url TEXT NOT NULL DEFAULT '',
			generated_cv TEXT NOT NULL DEFAULT '',
			generated_cover_letter TEXT NOT NULL DEFAULT '',
			skills_gap_report JSONB NOT NULL DEFAULT '{}'::jsonb,
			selected_block_ids UUID[] NOT NULL DEFAULT '{}',
			status VARCHAR(20) NOT NULL DEFAULT 'draft' CHECK (status IN (
				'draft', 'applied', 'interviewing', 'rejected', 'offer', 'accepted'
			)),
			applied_date TIMESTAMP,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_experience_blocks_category ON experience_blocks(category, created_at, id);
		CREATE INDEX IF NOT EXISTS idx_experience_blocks_title ON experience_blocks(title);
		CREATE INDEX IF NOT EXISTS idx_job_applications_created_at ON job_applications(created_at DESC);
	`, dimensions)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	if _, err := db.ExecContext(ctx,
		`INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`,
		SchemaVersion,
	); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	db.logger.Info("database schema initialized",
		zap.Int("version", SchemaVersion),
		zap.Int("embedding_dimensions", dimensions))
	return nil
}
