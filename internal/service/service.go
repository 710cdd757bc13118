package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"evently-backend/internal/domain"
)

// ErrNotClaimed is returned by InviteDelivery when another run already moved the invite on.
var ErrNotClaimed = errors.New("invite could not be claimed for delivery")

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}

type InviteService interface {
	CreateInvite(ctx context.Context, requesterID, orgID, email string, role domain.MemberRole) (*domain.Invite, error)
	AcceptInvite(ctx context.Context, token, userID, email string) (*domain.Membership, error)
	ResendInvite(ctx context.Context, requesterID, inviteID string) (*domain.Invite, error)
}

// InviteDelivery sends one invite email and records the outcome on the invite.
type InviteDelivery interface {
	// Deliver spends an attempt on inv while it is still in status from, mails it,
	// and returns the status the invite ended in. A send failure is returned
	// alongside the recorded status.
	Deliver(ctx context.Context, inv *domain.Invite, from domain.InviteStatus) (domain.InviteStatus, error)
}

type JoinRequest struct {
	EventID        string
	UserID         string
	OrganizationID *string
	PaymentRef     *string
}

// ParticipationService is the participation ledger.
type ParticipationService interface {
	Join(ctx context.Context, req JoinRequest) (*domain.Participation, error)
	Cancel(ctx context.Context, participationID, callerUserID string) (*domain.Participation, error)
	MarkAttended(ctx context.Context, participationID, requesterID string) (*domain.Participation, error)
	// ListParticipants returns the event's seated participants. Contact and
	// payment details are only kept for members of the hosting organization
	// and on the requester's own row. An empty requesterID is anonymous.
	ListParticipants(ctx context.Context, eventID, requesterID string) ([]domain.Participant, error)
	ListUserParticipations(ctx context.Context, userID string, filter domain.ParticipationFilter) ([]domain.ParticipationRecord, error)
	// ListOrganizationParticipations requires the requester to be a member of orgID.
	ListOrganizationParticipations(ctx context.Context, requesterID, orgID string, filter domain.ParticipationFilter) ([]domain.ParticipationRecord, error)
	// CheckParticipation returns the caller's active participation, or nil when there is none.
	CheckParticipation(ctx context.Context, eventID, userID string, orgID *string) (*domain.Participation, error)
}

type EnqueueOptions struct {
	ScheduledAt time.Time // zero means now
	MaxAttempts int32     // zero means the configured default
}

type JobService interface {
	// Enqueue queues any known job type. It does no authorization and is meant for in-process producers.
	Enqueue(ctx context.Context, jobType string, payload json.RawMessage, opts EnqueueOptions) (*domain.Job, error)
	// ScheduleEventJob queues a reminder or report for eventID on behalf of an
	// OWNER or ADMIN of the hosting organization. A zero scheduledAt means now.
	ScheduleEventJob(ctx context.Context, requesterID, eventID, jobType string, scheduledAt time.Time) (*domain.Job, error)
}
