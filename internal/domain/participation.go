package domain

import "time"

type ParticipationStatus string

const (
	ParticipationStatusRegistered ParticipationStatus = "REGISTERED"
	ParticipationStatusAttended   ParticipationStatus = "ATTENDED"
	ParticipationStatusCancelled  ParticipationStatus = "CANCELLED"
	ParticipationStatusWaitlisted ParticipationStatus = "WAITLISTED"
)

// CountsTowardCapacity reports whether a participation in this status occupies a seat.
func (s ParticipationStatus) CountsTowardCapacity() bool {
	return s == ParticipationStatusRegistered || s == ParticipationStatusAttended
}

// IsActive reports whether the participation blocks a second registration.
func (s ParticipationStatus) IsActive() bool {
	return s != ParticipationStatusCancelled
}

// Participation records a user, or an organization acting through a user, joining an event.
type Participation struct {
	ID             string              `json:"id"`
	EventID        string              `json:"event_id"`
	UserID         string              `json:"user_id"`
	OrganizationID *string             `json:"organization_id,omitempty"`
	PaymentRef     *string             `json:"payment_ref,omitempty"`
	IsPaid         bool                `json:"is_paid"`
	Status         ParticipationStatus `json:"status"`
	RegisteredAt   time.Time           `json:"registered_at"`
	CancelledAt    *time.Time          `json:"cancelled_at,omitempty"`
	AttendedAt     *time.Time          `json:"attended_at,omitempty"`
}

// Participant is a participation joined with the registering user's contact details.
type Participant struct {
	Participation
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email,omitempty"`
}

// ParticipationFilter narrows a participation history listing. The zero value lists everything.
type ParticipationFilter struct {
	Status *ParticipationStatus
	// Upcoming keeps events starting at or after now when true, and events already started when false.
	Upcoming *bool
}

// Matches reports whether p, for an event starting at start, passes the filter at now.
func (f ParticipationFilter) Matches(p Participation, start, now time.Time) bool {
	if f.Status != nil && p.Status != *f.Status {
		return false
	}
	if f.Upcoming != nil && *f.Upcoming == start.Before(now) {
		return false
	}
	return true
}

// ParticipationRecord is a participation joined with the event it is for.
type ParticipationRecord struct {
	Participation
	EventTitle         string    `json:"event_title"`
	EventStartDateTime time.Time `json:"event_start_date_time"`
}
