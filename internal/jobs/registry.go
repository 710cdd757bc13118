package jobs

import (
	"context"
	"errors"
	"fmt"

	"evently-backend/internal/domain"
	"evently-backend/internal/logger"
	"evently-backend/internal/mail"
	"evently-backend/internal/push"
	"evently-backend/internal/repository"
)

// Handler runs one job. Handlers may be called more than once for the same job.
type Handler func(ctx context.Context, job *domain.Job) error

// HandlerDeps are the collaborators the job handlers call out to.
type HandlerDeps struct {
	Store  *repository.Store
	Push   push.Sender
	Mail   mail.Gateway
	AppURL string
}

// Registry is the fixed dispatch table from job type to handler.
type Registry struct {
	handlers map[domain.JobType]Handler
}

// NewRegistry builds the handler for every known job type. sweep backs CLEANUP_DATA.
func NewRegistry(deps HandlerDeps, sweep func(ctx context.Context) (SweepResult, error)) *Registry {
	h := &handlers{deps: deps, sweep: sweep}
	return &Registry{handlers: map[domain.JobType]Handler{
		domain.JobTypeSendInviteEmail:   h.sendInviteEmail,
		domain.JobTypeSendNotification:  h.sendNotification,
		domain.JobTypeSendEventReminder: h.sendEventReminder,
		domain.JobTypeGenerateReport:    h.generateReport,
		domain.JobTypeCleanupData:       h.cleanupData,
	}}
}

// Dispatch runs the handler for job.Type, or returns *domain.UnknownJobTypeError.
func (r *Registry) Dispatch(ctx context.Context, job *domain.Job) error {
	handler, ok := r.handlers[job.Type]
	if !ok {
		return &domain.UnknownJobTypeError{Type: string(job.Type)}
	}
	return handler(ctx, job)
}

type handlers struct {
	deps  HandlerDeps
	sweep func(ctx context.Context) (SweepResult, error)
}

// Invite emails are delivered by ProcessPendingInvites; the job type is kept for old producers.
func (h *handlers) sendInviteEmail(ctx context.Context, job *domain.Job) error {
	logger.Debug("Invite email jobs are handled by the invite processor", "job_id", job.ID)
	return nil
}

func (h *handlers) sendNotification(ctx context.Context, job *domain.Job) error {
	if h.deps.Push == nil {
		return errors.New("push sender is not configured")
	}
	var payload domain.NotificationPayload
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}

	id, err := h.deps.Push.Send(ctx, push.Notification{
		DeviceToken: payload.DeviceToken,
		Title:       payload.Title,
		Body:        payload.Body,
		Data:        payload.Data,
	})
	if err != nil {
		return err
	}
	logger.Info("Sent notification", "job_id", job.ID, "user_id", payload.UserID, "message_id", id)
	return nil
}

func (h *handlers) sendEventReminder(ctx context.Context, job *domain.Job) error {
	if h.deps.Mail == nil {
		return errors.New("mail gateway is not configured")
	}
	var payload domain.EventReminderPayload
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}

	event, err := h.deps.Store.EventRepository.GetByID(ctx, payload.EventID)
	if err != nil {
		return fmt.Errorf("failed to load event %s: %w", payload.EventID, err)
	}
	participants, err := h.deps.Store.ParticipationRepository.ListByEvent(ctx, event.ID, []domain.ParticipationStatus{domain.ParticipationStatusRegistered})
	if err != nil {
		return fmt.Errorf("failed to list participants: %w", err)
	}

	var sent int
	var lastErr error
	for _, p := range participants {
		msg, err := mail.RenderReminder(mail.ReminderEmail{
			AppURL:        h.deps.AppURL,
			EventID:       event.ID,
			EventTitle:    event.Title,
			StartsAt:      event.StartDateTime,
			RecipientName: p.UserName,
			Email:         p.UserEmail,
		})
		if err != nil {
			return err
		}
		if _, err := h.deps.Mail.Send(ctx, msg); err != nil {
			lastErr = err
			if mail.IsCircuitOpen(err) {
				break
			}
			logger.Warn("Failed to send event reminder", "job_id", job.ID, "participation_id", p.ID, "error", err)
			continue
		}
		sent++
	}

	// A partial batch is not retried: the recipients already mailed would get a duplicate.
	if sent == 0 && lastErr != nil {
		return fmt.Errorf("failed to send any reminder for event %s: %w", event.ID, lastErr)
	}
	logger.Info("Sent event reminders", "job_id", job.ID, "event_id", event.ID, "sent", sent, "participants", len(participants))
	return nil
}

func (h *handlers) generateReport(ctx context.Context, job *domain.Job) error {
	var payload domain.ReportPayload
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}

	event, err := h.deps.Store.EventRepository.GetByID(ctx, payload.EventID)
	if err != nil {
		return fmt.Errorf("failed to load event %s: %w", payload.EventID, err)
	}
	counts, err := h.deps.Store.ParticipationRepository.CountByStatus(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("failed to count participations: %w", err)
	}

	logger.Info("Generated participation report",
		"job_id", job.ID,
		"event_id", event.ID,
		"attendee_count", event.AttendeeCount,
		"registered", counts[domain.ParticipationStatusRegistered],
		"attended", counts[domain.ParticipationStatusAttended],
		"cancelled", counts[domain.ParticipationStatusCancelled],
		"waitlisted", counts[domain.ParticipationStatusWaitlisted],
	)
	return nil
}

func (h *handlers) cleanupData(ctx context.Context, job *domain.Job) error {
	_, err := h.sweep(ctx)
	return err
}
