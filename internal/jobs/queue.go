package jobs

import (
	"context"
	"fmt"

	"evently-backend/internal/domain"
	"evently-backend/internal/logger"
)

// ProcessJobQueue returns stuck jobs to the queue and runs a batch of due jobs.
func (jr *JobRunner) ProcessJobQueue(ctx context.Context) error {
	return jr.runWithRecovery("ProcessJobQueue", func() error {
		now := jr.now()
		if jr.settings.StuckAfter > 0 {
			reclaimed, err := jr.store.JobRepository.ReclaimStuck(ctx, now.Add(-jr.settings.StuckAfter), now)
			if err != nil {
				return fmt.Errorf("failed to reclaim stuck jobs: %w", err)
			}
			if reclaimed > 0 {
				logger.Warn("Reclaimed stuck jobs", "count", reclaimed)
			}
		}

		jobs, err := jr.store.JobRepository.ListDue(ctx, now, jr.settings.JobBatchSize)
		if err != nil {
			return fmt.Errorf("failed to list due jobs: %w", err)
		}
		logger.Info("Found pending jobs", "count", len(jobs))

		var completed, failed int
		for i := range jobs {
			if ctx.Err() != nil {
				break
			}
			switch jr.processJob(ctx, &jobs[i]) {
			case domain.JobStatusCompleted:
				completed++
			case domain.JobStatusPending, domain.JobStatusFailed:
				failed++
			}
		}

		logger.Info("Finished processing job queue", "completed", completed, "failed", failed)
		return nil
	})
}

// processJob claims and runs one job and returns the status it was left in.
// An empty status means the job was not touched.
func (jr *JobRunner) processJob(ctx context.Context, job *domain.Job) domain.JobStatus {
	log := logger.With("job_id", job.ID, "type", job.Type)

	claimed, err := jr.store.JobRepository.Claim(ctx, job.ID, jr.now())
	if err != nil {
		log.Error("Failed to claim job", "error", err)
		return ""
	}
	if !claimed {
		log.Debug("Job claimed elsewhere")
		return ""
	}
	job.Status = domain.JobStatusProcessing
	job.Attempts++

	if runErr := jr.dispatch(ctx, job); runErr != nil {
		status, err := jr.store.JobRepository.Fail(ctx, job.ID, runErr.Error(), jr.now())
		if err != nil {
			log.Error("Failed to record job failure", "error", err, "cause", runErr)
			return ""
		}
		log.Warn("Job failed", "attempt", job.Attempts, "max_attempts", job.MaxAttempts, "status", status, "error", runErr)
		return status
	}

	if err := jr.store.JobRepository.Complete(ctx, job.ID, jr.now()); err != nil {
		log.Error("Failed to mark job completed", "error", err)
		return ""
	}
	log.Info("Completed job", "attempt", job.Attempts)
	return domain.JobStatusCompleted
}

// dispatch runs the handler and turns a panic into a failed attempt.
func (jr *JobRunner) dispatch(ctx context.Context, job *domain.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job handler panicked: %v", r)
		}
	}()
	return jr.registry.Dispatch(ctx, job)
}
