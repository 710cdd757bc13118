package repository

import (
	"context"
	"errors"
	"time"

	"evently-backend/internal/domain"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrConflict      = errors.New("record conflicts with an existing row")
	ErrSerialization = errors.New("transaction could not be serialized")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type OrganizationRepository interface {
	Create(ctx context.Context, org *domain.Organization) error
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
}

type MembershipRepository interface {
	Add(ctx context.Context, m *domain.Membership) error
	Get(ctx context.Context, userID, orgID string) (*domain.Membership, error)
}

type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
}

// ParticipationRepository owns the participation rows and the denormalized
// attendee count of each event. Register and Cancel change both in one unit.
type ParticipationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Participation, error)
	// FindActive returns the non-cancelled participation of the user, or of
	// the organization when orgID is set. Returns ErrNotFound when there is none.
	FindActive(ctx context.Context, eventID, userID string, orgID *string) (*domain.Participation, error)
	// Register inserts p and takes a seat only if capacity remains. Returns
	// domain.ErrCapacityExceeded, domain.ErrAlreadyRegistered or
	// domain.ErrPaymentAlreadyUsed without side effects.
	Register(ctx context.Context, p *domain.Participation) error
	// Cancel moves the participation to CANCELLED and releases its seat when it held one.
	Cancel(ctx context.Context, id string, now time.Time) (*domain.Participation, error)
	// MarkAttended moves a REGISTERED participation to ATTENDED. The seat is kept.
	MarkAttended(ctx context.Context, id string, now time.Time) (*domain.Participation, error)
	ListByEvent(ctx context.Context, eventID string, statuses []domain.ParticipationStatus) ([]domain.Participant, error)
	// ListByUser and ListByOrganization return a participation history, latest event start first.
	ListByUser(ctx context.Context, userID string, filter domain.ParticipationFilter, now time.Time) ([]domain.ParticipationRecord, error)
	ListByOrganization(ctx context.Context, orgID string, filter domain.ParticipationFilter, now time.Time) ([]domain.ParticipationRecord, error)
	CountByStatus(ctx context.Context, eventID string) (map[domain.ParticipationStatus]int32, error)
}

type InviteRepository interface {
	Create(ctx context.Context, invite *domain.Invite) error
	GetByID(ctx context.Context, id string) (*domain.Invite, error)
	GetByToken(ctx context.Context, token string) (*domain.Invite, error)
	// FindActive returns the PENDING or SENT invite for the address, or ErrNotFound.
	FindActive(ctx context.Context, orgID, email string) (*domain.Invite, error)
	// ListDeliverable returns PENDING invites with attempts left that have not expired, oldest first.
	ListDeliverable(ctx context.Context, now time.Time, limit int) ([]domain.Invite, error)
	// ClaimDelivery spends one attempt on an invite still in status from.
	// It reports false when the row moved on or has no budget left.
	ClaimDelivery(ctx context.Context, id string, from domain.InviteStatus, now time.Time) (bool, error)
	// CompleteDelivery records a successful send on an invite still in status from.
	CompleteDelivery(ctx context.Context, id string, from domain.InviteStatus, now time.Time) error
	// FailDelivery records a failed send. A PENDING invite with a spent budget
	// becomes FAILED; otherwise the status is kept. Returns the resulting status.
	FailDelivery(ctx context.Context, id string, from domain.InviteStatus, reason string, now time.Time) (domain.InviteStatus, error)
	// Accept inserts the membership and moves the invite to ACCEPTED atomically.
	Accept(ctx context.Context, inviteID string, membership *domain.Membership, now time.Time) error
	MarkExpired(ctx context.Context, id string, now time.Time) error
	// ExpireOverdue moves every PENDING or SENT invite past its expiry to EXPIRED.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
	// DeleteTerminalBefore removes EXPIRED, ACCEPTED and FAILED invites last updated before cutoff.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	// ListDue returns PENDING jobs scheduled at or before now, oldest schedule first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Job, error)
	// Claim moves a PENDING job with budget left to PROCESSING and spends one attempt.
	Claim(ctx context.Context, id string, now time.Time) (bool, error)
	Complete(ctx context.Context, id string, now time.Time) error
	// Fail records a failed attempt: PENDING while budget remains, FAILED after.
	Fail(ctx context.Context, id string, reason string, now time.Time) (domain.JobStatus, error)
	// ReclaimStuck returns PROCESSING jobs untouched since staleBefore to the queue.
	ReclaimStuck(ctx context.Context, staleBefore, now time.Time) (int64, error)
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store aggregates every repository behind one handle.
type Store struct {
	UserRepository
	OrganizationRepository
	MembershipRepository
	EventRepository
	ParticipationRepository
	InviteRepository
	JobRepository
}
