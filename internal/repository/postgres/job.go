package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"evently-backend/internal/domain"
	"evently-backend/internal/logger"
	"evently-backend/internal/repository"
)

const jobColumns = `id, type, payload, scheduled_at, status, attempts, max_attempts, processed_at, error, created_at, updated_at`

type jobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) repository.JobRepository {
	return &jobRepository{db: db}
}

func scanJob(row scanner) (*domain.Job, error) {
	j := &domain.Job{}
	var payload []byte
	err := row.Scan(&j.ID, &j.Type, &payload, &j.ScheduledAt, &j.Status, &j.Attempts, &j.MaxAttempts,
		&j.ProcessedAt, &j.Error, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	j.Payload = payload
	return j, nil
}

func (r *jobRepository) Create(ctx context.Context, j *domain.Job) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = domain.JobStatusPending
	}
	payload := []byte(j.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	query := `INSERT INTO job_queue (` + jobColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(ctx, query, j.ID, j.Type, payload, j.ScheduledAt, j.Status, j.Attempts, j.MaxAttempts,
		j.ProcessedAt, j.Error, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", mapError(err))
	}
	return nil
}

func (r *jobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM job_queue WHERE id = $1`
	return scanJob(r.db.QueryRowContext(ctx, query, id))
}

func (r *jobRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM job_queue
	          WHERE status = 'PENDING' AND scheduled_at <= $1 AND attempts < max_attempts
	          ORDER BY scheduled_at ASC, created_at ASC, id ASC
	          LIMIT $2`
	logger.DatabaseCall("list_due_jobs", query, "limit", limit)
	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due jobs: %w", mapError(err))
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.DatabaseResult("list_due_jobs", int64(len(jobs)), nil)
	return jobs, nil
}

func (r *jobRepository) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	query := `UPDATE job_queue SET status = 'PROCESSING', attempts = attempts + 1, updated_at = $2
	          WHERE id = $1 AND status = 'PENDING' AND attempts < max_attempts`
	res, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", mapError(err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *jobRepository) Complete(ctx context.Context, id string, now time.Time) error {
	query := `UPDATE job_queue SET status = 'COMPLETED', processed_at = $2, error = NULL, updated_at = $2
	          WHERE id = $1 AND status = 'PROCESSING'`
	res, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", mapError(err))
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("job %s is no longer processing: %w", id, repository.ErrConflict)
	}
	return nil
}

func (r *jobRepository) Fail(ctx context.Context, id string, reason string, now time.Time) (domain.JobStatus, error) {
	query := `UPDATE job_queue
	          SET status = CASE WHEN attempts >= max_attempts THEN 'FAILED' ELSE 'PENDING' END,
	              error = $2, updated_at = $3
	          WHERE id = $1 AND status = 'PROCESSING'
	          RETURNING status`
	var status domain.JobStatus
	if err := r.db.QueryRowContext(ctx, query, id, reason, now).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("job %s is no longer processing: %w", id, repository.ErrConflict)
		}
		return "", fmt.Errorf("failed to record job failure: %w", mapError(err))
	}
	return status, nil
}

func (r *jobRepository) ReclaimStuck(ctx context.Context, staleBefore, now time.Time) (int64, error) {
	query := `UPDATE job_queue
	          SET status = CASE WHEN attempts >= max_attempts THEN 'FAILED' ELSE 'PENDING' END,
	              error = 'processing timed out', updated_at = $2
	          WHERE status = 'PROCESSING' AND updated_at < $1`
	logger.DatabaseCall("reclaim_stuck_jobs", query, "stale_before", staleBefore)
	res, err := r.db.ExecContext(ctx, query, staleBefore, now)
	if err != nil {
		logger.DatabaseResult("reclaim_stuck_jobs", 0, err)
		return 0, fmt.Errorf("failed to reclaim stuck jobs: %w", mapError(err))
	}
	rows, err := res.RowsAffected()
	logger.DatabaseResult("reclaim_stuck_jobs", rows, err)
	return rows, err
}

func (r *jobRepository) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM job_queue WHERE status = 'COMPLETED' AND processed_at < $1`
	logger.DatabaseCall("delete_completed_jobs", query, "cutoff", cutoff)
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		logger.DatabaseResult("delete_completed_jobs", 0, err)
		return 0, fmt.Errorf("failed to delete completed jobs: %w", mapError(err))
	}
	rows, err := res.RowsAffected()
	logger.DatabaseResult("delete_completed_jobs", rows, err)
	return rows, err
}
