package domain

import "time"

type EventVisibility string

const (
	EventVisibilityPublic  EventVisibility = "PUBLIC"
	EventVisibilityPrivate EventVisibility = "PRIVATE"
)

type Event struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	OrganizationID *string         `json:"organization_id,omitempty"` // hosting organization
	StartDateTime  time.Time       `json:"start_date_time"`
	MaxAttendees   *int32          `json:"max_attendees,omitempty"` // nil means unlimited
	AttendeeCount  int32           `json:"attendee_count"`
	IsFree         bool            `json:"is_free"`
	PriceCents     *int64          `json:"price_cents,omitempty"` // minor units, nil when free or unpriced
	Visibility     EventVisibility `json:"visibility"`
	CreatedAt      time.Time       `json:"created_at"`
}

// IsFull reports whether the event has no remaining capacity.
func (e *Event) IsFull() bool {
	return e.MaxAttendees != nil && e.AttendeeCount >= *e.MaxAttendees
}

// HasStarted reports whether the event start time has passed at now.
func (e *Event) HasStarted(now time.Time) bool {
	return !e.StartDateTime.After(now)
}

// IsHostedBy reports whether orgID is the event's hosting organization.
func (e *Event) IsHostedBy(orgID string) bool {
	return e.OrganizationID != nil && *e.OrganizationID == orgID
}
