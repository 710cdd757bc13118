package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"evently-backend/internal/domain"
	"evently-backend/internal/logger"
	"evently-backend/internal/mail"
	"evently-backend/internal/repository"
)

const defaultInviterName = "Someone"

type InviteSettings struct {
	Expiry      time.Duration
	MaxAttempts int32
}

type inviteService struct {
	store    *repository.Store
	delivery InviteDelivery
	settings InviteSettings
	now      Clock
}

func NewInviteService(store *repository.Store, delivery InviteDelivery, settings InviteSettings, now Clock) InviteService {
	if now == nil {
		now = SystemClock
	}
	return &inviteService{store: store, delivery: delivery, settings: settings, now: now}
}

func (s *inviteService) CreateInvite(ctx context.Context, requesterID, orgID, email string, role domain.MemberRole) (*domain.Invite, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if role == "" {
		role = domain.MemberRoleMember
	}
	if !role.IsInvitable() {
		return nil, domain.ErrInvalidRole
	}

	if _, err := s.store.OrganizationRepository.GetByID(ctx, orgID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	if err := s.requireInviteManager(ctx, requesterID, orgID); err != nil {
		return nil, err
	}

	invitee, err := s.store.UserRepository.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if _, err := s.store.MembershipRepository.Get(ctx, invitee.ID, orgID); err == nil {
			return nil, domain.ErrAlreadyMember
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to look up invitee: %w", err)
	}

	if _, err := s.store.InviteRepository.FindActive(ctx, orgID, email); err == nil {
		return nil, domain.ErrDuplicateInvite
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing invites: %w", err)
	}

	token, err := newInviteToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	invite := &domain.Invite{
		OrganizationID: orgID,
		Email:          email,
		Role:           role,
		InvitedBy:      requesterID,
		Token:          token,
		ExpiresAt:      now.Add(s.settings.Expiry),
		MaxAttempts:    s.settings.MaxAttempts,
		Status:         domain.InviteStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.InviteRepository.Create(ctx, invite); err != nil {
		return nil, err
	}

	logger.Info("Invite created", "invite_id", invite.ID, "organization_id", orgID, "role", role)
	return invite, nil
}

func (s *inviteService) AcceptInvite(ctx context.Context, token, userID, email string) (*domain.Membership, error) {
	invite, err := s.store.InviteRepository.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInviteNotFound
		}
		return nil, fmt.Errorf("failed to load invite: %w", err)
	}

	now := s.now()
	switch invite.Status {
	case domain.InviteStatusAccepted:
		return nil, domain.ErrInviteAlreadyAccepted
	case domain.InviteStatusExpired:
		return nil, domain.ErrInviteExpired
	case domain.InviteStatusFailed:
		return nil, domain.ErrInviteNotActive
	}
	if invite.IsExpired(now) {
		if err := s.store.InviteRepository.MarkExpired(ctx, invite.ID, now); err != nil {
			logger.Warn("Failed to mark invite expired", "invite_id", invite.ID, "error", err)
		}
		return nil, domain.ErrInviteExpired
	}
	if !strings.EqualFold(strings.TrimSpace(email), invite.Email) {
		return nil, domain.ErrInviteEmailMismatch
	}

	if _, err := s.store.MembershipRepository.Get(ctx, userID, invite.OrganizationID); err == nil {
		return nil, domain.ErrAlreadyMember
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	membership := &domain.Membership{
		UserID:         userID,
		OrganizationID: invite.OrganizationID,
		Role:           invite.Role,
		JoinedAt:       now,
	}
	if err := s.store.InviteRepository.Accept(ctx, invite.ID, membership, now); err != nil {
		return nil, err
	}

	logger.Info("Invite accepted", "invite_id", invite.ID, "user_id", userID, "organization_id", invite.OrganizationID)
	return membership, nil
}

func (s *inviteService) ResendInvite(ctx context.Context, requesterID, inviteID string) (*domain.Invite, error) {
	invite, err := s.store.InviteRepository.GetByID(ctx, inviteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInviteNotFound
		}
		return nil, fmt.Errorf("failed to load invite: %w", err)
	}
	if err := s.requireInviteManager(ctx, requesterID, invite.OrganizationID); err != nil {
		return nil, err
	}

	if invite.IsExpired(s.now()) {
		return nil, domain.ErrInviteExpired
	}
	// PENDING invites belong to the scheduler; only delivered ones are re-sent by hand.
	if invite.Status != domain.InviteStatusSent || !invite.CanAttempt() {
		return nil, domain.ErrInviteNotActive
	}

	if _, err := s.delivery.Deliver(ctx, invite, domain.InviteStatusSent); err != nil {
		if errors.Is(err, ErrNotClaimed) {
			return nil, domain.ErrInviteNotActive
		}
		return nil, fmt.Errorf("failed to resend invite: %w", err)
	}

	return s.store.InviteRepository.GetByID(ctx, inviteID)
}

func (s *inviteService) requireInviteManager(ctx context.Context, userID, orgID string) error {
	m, err := s.store.MembershipRepository.Get(ctx, userID, orgID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrInsufficientRole
		}
		return fmt.Errorf("failed to load membership: %w", err)
	}
	if !m.Role.CanManageInvites() {
		return domain.ErrInsufficientRole
	}
	return nil
}

func newInviteToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate invite token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

type inviteDelivery struct {
	store   *repository.Store
	gateway mail.Gateway
	appURL  string
	now     Clock
}

func NewInviteDelivery(store *repository.Store, gateway mail.Gateway, appURL string, now Clock) InviteDelivery {
	if now == nil {
		now = SystemClock
	}
	return &inviteDelivery{store: store, gateway: gateway, appURL: appURL, now: now}
}

func (d *inviteDelivery) Deliver(ctx context.Context, inv *domain.Invite, from domain.InviteStatus) (domain.InviteStatus, error) {
	claimed, err := d.store.InviteRepository.ClaimDelivery(ctx, inv.ID, from, d.now())
	if err != nil {
		return from, fmt.Errorf("failed to claim invite %s: %w", inv.ID, err)
	}
	if !claimed {
		return from, ErrNotClaimed
	}

	messageID, sendErr := d.send(ctx, inv)
	if sendErr != nil {
		status, err := d.store.InviteRepository.FailDelivery(ctx, inv.ID, from, sendErr.Error(), d.now())
		if err != nil {
			return from, fmt.Errorf("failed to record delivery failure for invite %s: %w", inv.ID, err)
		}
		return status, sendErr
	}

	if err := d.store.InviteRepository.CompleteDelivery(ctx, inv.ID, from, d.now()); err != nil {
		return from, fmt.Errorf("failed to record delivery of invite %s: %w", inv.ID, err)
	}
	logger.Info("Invite email sent", "invite_id", inv.ID, "message_id", messageID)
	return domain.InviteStatusSent, nil
}

func (d *inviteDelivery) send(ctx context.Context, inv *domain.Invite) (string, error) {
	org, err := d.store.OrganizationRepository.GetByID(ctx, inv.OrganizationID)
	if err != nil {
		return "", fmt.Errorf("failed to load organization %s: %w", inv.OrganizationID, err)
	}

	inviterName := defaultInviterName
	if inviter, err := d.store.UserRepository.GetByID(ctx, inv.InvitedBy); err == nil && inviter.Name != "" {
		inviterName = inviter.Name
	}

	msg, err := mail.RenderInvite(mail.InviteEmail{
		AppURL:           d.appURL,
		Token:            inv.Token,
		Email:            inv.Email,
		OrganizationName: org.Name,
		InviterName:      inviterName,
		Role:             string(inv.Role),
		ExpiresAt:        inv.ExpiresAt,
	})
	if err != nil {
		return "", err
	}

	messageID, err := d.gateway.Send(ctx, msg)
	if err != nil {
		return "", err
	}
	if messageID == "" {
		return "", mail.ErrNoMessageID
	}
	return messageID, nil
}
