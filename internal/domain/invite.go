package domain

import "time"

type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "PENDING"
	InviteStatusSent     InviteStatus = "SENT"
	InviteStatusAccepted InviteStatus = "ACCEPTED"
	InviteStatusExpired  InviteStatus = "EXPIRED"
	InviteStatusFailed   InviteStatus = "FAILED"
)

// IsActive reports whether the invite can still be delivered or accepted.
func (s InviteStatus) IsActive() bool {
	return s == InviteStatusPending || s == InviteStatusSent
}

// IsTerminal reports whether the status is final. Terminal invites are only ever removed by retention.
func (s InviteStatus) IsTerminal() bool {
	return s == InviteStatusAccepted || s == InviteStatusExpired || s == InviteStatusFailed
}

// Invite is a pending organization invitation delivered by email.
type Invite struct {
	ID             string       `json:"id"`
	OrganizationID string       `json:"organization_id"`
	Email          string       `json:"email"`
	Role           MemberRole   `json:"role"`
	InvitedBy      string       `json:"invited_by"`
	Token          string       `json:"-"`
	ExpiresAt      time.Time    `json:"expires_at"`
	Attempts       int32        `json:"attempts"`
	MaxAttempts    int32        `json:"max_attempts"`
	Status         InviteStatus `json:"status"`
	Error          *string      `json:"error,omitempty"`
	LastAttempt    *time.Time   `json:"last_attempt,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// IsExpired reports whether the invite's acceptance window has closed at now.
func (i *Invite) IsExpired(now time.Time) bool {
	return i.ExpiresAt.Before(now)
}

// CanAttempt reports whether another delivery attempt fits in the budget.
func (i *Invite) CanAttempt() bool {
	return i.Attempts < i.MaxAttempts
}
