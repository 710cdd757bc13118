package jobs

import (
	"context"
	"fmt"

	"evently-backend/internal/logger"
)

type SweepResult struct {
	DeletedJobs    int64
	DeletedInvites int64
}

// Cleanup is the scheduled retention sweep.
func (jr *JobRunner) Cleanup(ctx context.Context) error {
	return jr.runWithRecovery("Cleanup", func() error {
		_, err := jr.Sweep(ctx)
		return err
	})
}

// Sweep deletes COMPLETED jobs and terminal invites older than their retention windows.
func (jr *JobRunner) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := jr.now()

	deletedJobs, err := jr.store.JobRepository.DeleteCompletedBefore(ctx, now.Add(-jr.settings.CompletedJobRetention))
	if err != nil {
		return res, fmt.Errorf("failed to delete completed jobs: %w", err)
	}
	res.DeletedJobs = deletedJobs

	deletedInvites, err := jr.store.InviteRepository.DeleteTerminalBefore(ctx, now.Add(-jr.settings.TerminalInviteRetention))
	if err != nil {
		return res, fmt.Errorf("failed to delete terminal invites: %w", err)
	}
	res.DeletedInvites = deletedInvites

	logger.Info("Deleted old jobs and invites", "jobs", res.DeletedJobs, "invites", res.DeletedInvites)
	return res, nil
}
