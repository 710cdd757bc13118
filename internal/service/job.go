package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"evently-backend/internal/domain"
	"evently-backend/internal/logger"
	"evently-backend/internal/repository"
)

type jobService struct {
	store       *repository.Store
	maxAttempts int32
	now         Clock
}

func NewJobService(store *repository.Store, defaultMaxAttempts int32, now Clock) JobService {
	if now == nil {
		now = SystemClock
	}
	return &jobService{store: store, maxAttempts: defaultMaxAttempts, now: now}
}

func (s *jobService) Enqueue(ctx context.Context, jobType string, payload json.RawMessage, opts EnqueueOptions) (*domain.Job, error) {
	t, err := domain.ParseJobType(jobType)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("job payload for %s is not valid JSON", t)
	}

	now := s.now()
	scheduledAt := opts.ScheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = now
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = s.maxAttempts
	}

	job := &domain.Job{
		ID:          uuid.NewString(),
		Type:        t,
		Payload:     payload,
		ScheduledAt: scheduledAt,
		Status:      domain.JobStatusPending,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.JobRepository.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue %s job: %w", t, err)
	}

	logger.Info("Job enqueued", "job_id", job.ID, "type", t, "scheduled_at", scheduledAt)
	return job, nil
}

func (s *jobService) ScheduleEventJob(ctx context.Context, requesterID, eventID, jobType string, scheduledAt time.Time) (*domain.Job, error) {
	t, err := domain.ParseJobType(jobType)
	if err != nil {
		return nil, err
	}
	if !t.IsEventScoped() {
		return nil, domain.ErrJobNotSchedulable
	}

	event, err := s.store.EventRepository.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	if event.OrganizationID == nil {
		return nil, domain.ErrEventHasNoHost
	}

	membership, err := s.store.MembershipRepository.Get(ctx, requesterID, *event.OrganizationID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	if membership == nil || !membership.Role.CanManageEvents() {
		return nil, domain.ErrNotEventManager
	}

	var body any = domain.EventReminderPayload{EventID: event.ID}
	if t == domain.JobTypeGenerateReport {
		body = domain.ReportPayload{EventID: event.ID}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", t, err)
	}
	job, err := s.Enqueue(ctx, string(t), payload, EnqueueOptions{ScheduledAt: scheduledAt})
	if err != nil {
		return nil, err
	}
	logger.Info("Event job scheduled", "job_id", job.ID, "type", t, "event_id", event.ID, "requested_by", requesterID)
	return job, nil
}
