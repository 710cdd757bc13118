package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a rejection so transports can pick a status code.
type ErrorKind int

const (
	KindInvalid ErrorKind = iota
	KindNotFound
	KindForbidden
	KindConflict
)

// RejectionError is a business-rule refusal. Its message is safe to show to callers.
type RejectionError struct {
	Kind   ErrorKind
	Reason string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

func reject(kind ErrorKind, reason string) *RejectionError {
	return &RejectionError{Kind: kind, Reason: reason}
}

// Participation ledger
var (
	ErrEventNotFound         = reject(KindNotFound, "Event not found")
	ErrParticipationNotFound = reject(KindNotFound, "Participation not found")
	ErrAlreadyRegistered     = reject(KindConflict, "Already registered for this event")
	ErrCapacityExceeded      = reject(KindConflict, "Event is at full capacity")
	ErrPaymentRequired       = reject(KindInvalid, "Payment required for this event")
	ErrPaymentNotVerified    = reject(KindInvalid, "Payment could not be verified")
	ErrPaymentAlreadyUsed    = reject(KindConflict, "Payment reference has already been used")
	ErrNotOrgMember          = reject(KindForbidden, "You must be a member of the organization to register it")
	ErrMembersOnlyEvent      = reject(KindForbidden, "This event is only for organization members")
	ErrOwnOrganizationEvent  = reject(KindInvalid, "Cannot register for your own organization's event")
	ErrNotParticipationOwner = reject(KindForbidden, "Unauthorized: You can only cancel your own registrations")
	ErrEventStarted          = reject(KindInvalid, "Cannot cancel participation for events that have already started")
	ErrAlreadyCancelled      = reject(KindConflict, "Participation is already cancelled")
	ErrNotEventHost          = reject(KindForbidden, "Unauthorized: Only event host can mark attendance")
	ErrEventHasNoHost        = reject(KindInvalid, "Event has no host organization")
	ErrNotRegistered         = reject(KindConflict, "Only registered participants can be marked as attended")
	ErrNotOrgMemberView      = reject(KindForbidden, "Only organization members can view its participations")
	ErrNotEventManager       = reject(KindForbidden, "Only owners and admins of the hosting organization can schedule event jobs")
	ErrJobNotSchedulable     = reject(KindInvalid, "Only SEND_EVENT_REMINDER and GENERATE_REPORT jobs can be scheduled for an event")
)

// Invites
var (
	ErrOrganizationNotFound  = reject(KindNotFound, "Organization not found")
	ErrInviteNotFound        = reject(KindNotFound, "Invite not found")
	ErrInviteExpired         = reject(KindInvalid, "Invite has expired")
	ErrInviteAlreadyAccepted = reject(KindConflict, "Invite has already been accepted")
	ErrInviteNotActive       = reject(KindConflict, "Invite is no longer active")
	ErrInviteEmailMismatch   = reject(KindForbidden, "This invite was sent to a different email address")
	ErrDuplicateInvite       = reject(KindConflict, "An active invite already exists for this email")
	ErrAlreadyMember         = reject(KindConflict, "User is already a member of this organization")
	ErrInsufficientRole      = reject(KindForbidden, "Only organization owners and admins can manage invites")
	ErrInvalidRole           = reject(KindInvalid, "Invite role must be ADMIN or MEMBER")
	ErrUserNotFound          = reject(KindNotFound, "User not found")
)

// IsValidationError reports whether err is a business-rule refusal rather than an infrastructure failure.
func IsValidationError(err error) bool {
	var r *RejectionError
	return errors.As(err, &r)
}

// KindOf returns the rejection kind of err, and false for non-rejections.
func KindOf(err error) (ErrorKind, bool) {
	var r *RejectionError
	if errors.As(err, &r) {
		return r.Kind, true
	}
	return 0, false
}

// UnknownJobTypeError is returned when a job names a type outside the closed set.
type UnknownJobTypeError struct {
	Type string
}

func (e *UnknownJobTypeError) Error() string {
	return fmt.Sprintf("Unknown job type: %s", e.Type)
}
