// Package sqlite persists acquisition jobs in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/emanuelef/yt-resolve-go/internal/domain"
)

// Repository provides database operations for jobs.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (or creates) jobs.db inside dataDir.
func NewRepository(dataDir string) (*Repository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "jobs.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := configureDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("Database initialized", "path", dbPath)

	return &Repository{db: db}, nil
}

func configureDB(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			ref TEXT NOT NULL,
			video_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			status TEXT DEFAULT 'pending',
			result TEXT,
			is_local_file INTEGER DEFAULT 0,
			mirror_key TEXT,
			error TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			completed_at DATETIME
		);

		CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
		CREATE INDEX IF NOT EXISTS idx_jobs_created ON jobs(created_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

const jobColumns = `id, ref, video_id, mode, status, result, is_local_file, mirror_key, error, created_at, completed_at`

// Create inserts a new job.
func (r *Repository) Create(ctx context.Context, job *domain.Job) error {
	query := `INSERT INTO jobs (` + jobColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		job.ID,
		job.Ref,
		job.VideoID,
		job.Mode,
		job.Status,
		job.Result,
		job.IsLocalFile,
		job.MirrorKey,
		job.Error,
		job.CreatedAt,
		job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by its ID. A missing job yields nil, nil.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// Update writes the mutable fields of job.
func (r *Repository) Update(ctx context.Context, job *domain.Job) error {
	query := `
		UPDATE jobs
		SET status = ?, result = ?, is_local_file = ?, mirror_key = ?, error = ?, completed_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		job.Status,
		job.Result,
		job.IsLocalFile,
		job.MirrorKey,
		job.Error,
		job.CompletedAt,
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("job not found: %s", job.ID)
	}
	return nil
}

// ListUnfinished returns pending and processing jobs, oldest first.
func (r *Repository) ListUnfinished(ctx context.Context) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status IN (?, ?) ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, domain.JobStatusPending, domain.JobStatusProcessing)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// DeleteOlderThan deletes jobs created more than age ago.
func (r *Repository) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	threshold := time.Now().UTC().Add(-age)

	result, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old jobs: %w", err)
	}
	return result.RowsAffected()
}

// CountByStatus returns the number of jobs with the given status.
func (r *Repository) CountByStatus(ctx context.Context, status domain.JobStatus) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs WHERE status = ?", status).Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*domain.Job, error) {
	job := &domain.Job{}
	var result, mirrorKey, errorMsg sql.NullString
	var completedAt sql.NullTime

	err := s.Scan(
		&job.ID,
		&job.Ref,
		&job.VideoID,
		&job.Mode,
		&job.Status,
		&result,
		&job.IsLocalFile,
		&mirrorKey,
		&errorMsg,
		&job.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Result = result.String
	job.MirrorKey = mirrorKey.String
	job.Error = errorMsg.String
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return job, nil
}
