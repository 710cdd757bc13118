package jobs

import (
	"context"
	"errors"
	"fmt"

	"evently-backend/internal/domain"
	"evently-backend/internal/logger"
	"evently-backend/internal/mail"
	"evently-backend/internal/service"
)

// ProcessPendingInvites mails a batch of PENDING invites, then expires every
// PENDING or SENT invite whose window has closed.
func (jr *JobRunner) ProcessPendingInvites(ctx context.Context) error {
	return jr.runWithRecovery("ProcessPendingInvites", func() error {
		invites, err := jr.store.InviteRepository.ListDeliverable(ctx, jr.now(), jr.settings.InviteBatchSize)
		if err != nil {
			return fmt.Errorf("failed to list pending invites: %w", err)
		}
		logger.Info("Found pending invites", "count", len(invites))

		var sent, failed, skipped int
	batch:
		for i := range invites {
			if ctx.Err() != nil {
				break
			}
			inv := &invites[i]
			status, err := jr.delivery.Deliver(ctx, inv, domain.InviteStatusPending)
			switch {
			case errors.Is(err, service.ErrNotClaimed):
				skipped++
				logger.Debug("Invite claimed elsewhere", "invite_id", inv.ID)
			case mail.IsCircuitOpen(err):
				failed++
				logger.Warn("Mail provider unavailable, leaving the rest of the batch for the next run", "invite_id", inv.ID)
				break batch
			case err != nil:
				failed++
				logger.Warn("Failed to send invite", "invite_id", inv.ID, "status", status, "attempt", inv.Attempts+1, "error", err)
			default:
				sent++
				logger.Info("Sent invite", "invite_id", inv.ID)
			}
		}

		expired, err := jr.store.InviteRepository.ExpireOverdue(ctx, jr.now())
		if err != nil {
			return fmt.Errorf("failed to expire overdue invites: %w", err)
		}

		logger.Info("Finished processing invites", "sent", sent, "failed", failed, "skipped", skipped, "expired", expired)
		return nil
	})
}
