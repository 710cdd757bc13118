package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"evently-backend/internal/domain"
	"evently-backend/internal/repository"
)

type jobRepository struct {
	db *DB
}

func (r *jobRepository) Create(ctx context.Context, j *domain.Job) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if _, ok := r.db.jobs[j.ID]; ok {
		return fmt.Errorf("job %s: %w", j.ID, repository.ErrConflict)
	}
	if j.Status == "" {
		j.Status = domain.JobStatusPending
	}
	if len(j.Payload) == 0 {
		j.Payload = []byte("{}")
	}
	stored := *j
	stored.Payload = append([]byte(nil), j.Payload...)
	r.db.jobs[j.ID] = stored
	return nil
}

func (r *jobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	j, ok := r.db.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &j, nil
}

func (r *jobRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Job, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rows := sortedValues(r.db.jobs, func(a, b domain.Job) bool {
		if !a.ScheduledAt.Equal(b.ScheduledAt) {
			return a.ScheduledAt.Before(b.ScheduledAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	var out []domain.Job
	for _, j := range rows {
		if len(out) == limit {
			break
		}
		if j.Status == domain.JobStatusPending && !j.ScheduledAt.After(now) && j.Attempts < j.MaxAttempts {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *jobRepository) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	j, ok := r.db.jobs[id]
	if !ok || j.Status != domain.JobStatusPending || j.Attempts >= j.MaxAttempts {
		return false, nil
	}
	j.Status = domain.JobStatusProcessing
	j.Attempts++
	j.UpdatedAt = now
	r.db.jobs[id] = j
	return true, nil
}

func (r *jobRepository) Complete(ctx context.Context, id string, now time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	j, ok := r.db.jobs[id]
	if !ok || j.Status != domain.JobStatusProcessing {
		return fmt.Errorf("job %s is no longer processing: %w", id, repository.ErrConflict)
	}
	j.Status = domain.JobStatusCompleted
	j.ProcessedAt = &now
	j.Error = nil
	j.UpdatedAt = now
	r.db.jobs[id] = j
	return nil
}

func (r *jobRepository) Fail(ctx context.Context, id string, reason string, now time.Time) (domain.JobStatus, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	j, ok := r.db.jobs[id]
	if !ok || j.Status != domain.JobStatusProcessing {
		return "", fmt.Errorf("job %s is no longer processing: %w", id, repository.ErrConflict)
	}
	j.Status = nextJobStatus(j)
	j.Error = &reason
	j.UpdatedAt = now
	r.db.jobs[id] = j
	return j.Status, nil
}

func (r *jobRepository) ReclaimStuck(ctx context.Context, staleBefore, now time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	reason := "processing timed out"
	for id, j := range r.db.jobs {
		if j.Status == domain.JobStatusProcessing && j.UpdatedAt.Before(staleBefore) {
			j.Status = nextJobStatus(j)
			j.Error = &reason
			j.UpdatedAt = now
			r.db.jobs[id] = j
			n++
		}
	}
	return n, nil
}

func (r *jobRepository) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for id, j := range r.db.jobs {
		if j.Status == domain.JobStatusCompleted && j.ProcessedAt != nil && j.ProcessedAt.Before(cutoff) {
			delete(r.db.jobs, id)
			n++
		}
	}
	return n, nil
}

func nextJobStatus(j domain.Job) domain.JobStatus {
	if j.Attempts >= j.MaxAttempts {
		return domain.JobStatusFailed
	}
	return domain.JobStatusPending
}
