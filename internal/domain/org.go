package domain

import "time"

type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type MemberRole string

const (
	MemberRoleOwner  MemberRole = "OWNER"
	MemberRoleAdmin  MemberRole = "ADMIN"
	MemberRoleMember MemberRole = "MEMBER"
)

// CanManageInvites reports whether the role may invite or re-invite members.
func (r MemberRole) CanManageInvites() bool {
	return r == MemberRoleOwner || r == MemberRoleAdmin
}

// CanManageEvents reports whether the role may schedule reminders and reports for the organization's events.
func (r MemberRole) CanManageEvents() bool {
	return r == MemberRoleOwner || r == MemberRoleAdmin
}

// IsInvitable reports whether an invite may grant the role. Ownership is never handed out by invite.
func (r MemberRole) IsInvitable() bool {
	return r == MemberRoleAdmin || r == MemberRoleMember
}

type Membership struct {
	UserID         string     `json:"user_id"`
	OrganizationID string     `json:"organization_id"`
	Role           MemberRole `json:"role"`
	JoinedAt       time.Time  `json:"joined_at"`
}
