package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type JobType string

const (
	JobTypeSendInviteEmail   JobType = "SEND_INVITE_EMAIL"
	JobTypeSendNotification  JobType = "SEND_NOTIFICATION"
	JobTypeSendEventReminder JobType = "SEND_EVENT_REMINDER"
	JobTypeGenerateReport    JobType = "GENERATE_REPORT"
	JobTypeCleanupData       JobType = "CLEANUP_DATA"
)

var jobTypes = []JobType{
	JobTypeSendInviteEmail,
	JobTypeSendNotification,
	JobTypeSendEventReminder,
	JobTypeGenerateReport,
	JobTypeCleanupData,
}

// JobTypes returns the closed set of job types the queue knows how to run.
func JobTypes() []JobType {
	out := make([]JobType, len(jobTypes))
	copy(out, jobTypes)
	return out
}

// IsKnown reports whether t belongs to the closed set.
func (t JobType) IsKnown() bool {
	for _, known := range jobTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseJobType converts a raw type name, returning *UnknownJobTypeError for anything outside the set.
func ParseJobType(s string) (JobType, error) {
	t := JobType(s)
	if !t.IsKnown() {
		return "", &UnknownJobTypeError{Type: s}
	}
	return t, nil
}

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Job is a typed unit of deferred work in the job queue.
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	Status      JobStatus       `json:"status"`
	Attempts    int32           `json:"attempts"`
	MaxAttempts int32           `json:"max_attempts"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	Error       *string         `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DecodePayload unmarshals the job payload into v.
func (j *Job) DecodePayload(v any) error {
	if len(j.Payload) == 0 {
		return fmt.Errorf("job %s has an empty payload", j.ID)
	}
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", j.Type, err)
	}
	return nil
}

type NotificationPayload struct {
	UserID      string            `json:"userId"`
	DeviceToken string            `json:"deviceToken"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
}

type EventReminderPayload struct {
	EventID string `json:"eventId"`
}

type ReportPayload struct {
	EventID string `json:"eventId"`
}

// IsEventScoped reports whether an event's hosts may schedule the job type for their event.
func (t JobType) IsEventScoped() bool {
	return t == JobTypeSendEventReminder || t == JobTypeGenerateReport
}
