package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"evently-backend/internal/domain"
	"evently-backend/internal/repository"
)

type inviteRepository struct {
	db *DB
}

func (r *inviteRepository) Create(ctx context.Context, inv *domain.Invite) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	inv.Email = normalizeEmail(inv.Email)
	if inv.Status == "" {
		inv.Status = domain.InviteStatusPending
	}
	for _, existing := range r.db.invites {
		if existing.Token == inv.Token {
			return fmt.Errorf("invite token: %w", repository.ErrConflict)
		}
		if inv.Status.IsActive() && existing.Status.IsActive() &&
			existing.OrganizationID == inv.OrganizationID && existing.Email == inv.Email {
			return domain.ErrDuplicateInvite
		}
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	r.db.invites[inv.ID] = *inv
	return nil
}

func (r *inviteRepository) GetByID(ctx context.Context, id string) (*domain.Invite, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	inv, ok := r.db.invites[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &inv, nil
}

func (r *inviteRepository) GetByToken(ctx context.Context, token string) (*domain.Invite, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, inv := range r.db.invites {
		if inv.Token == token {
			return &inv, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *inviteRepository) FindActive(ctx context.Context, orgID, email string) (*domain.Invite, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	email = normalizeEmail(email)
	for _, inv := range r.db.invites {
		if inv.OrganizationID == orgID && inv.Email == email && inv.Status.IsActive() {
			return &inv, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *inviteRepository) ListDeliverable(ctx context.Context, now time.Time, limit int) ([]domain.Invite, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rows := sortedValues(r.db.invites, func(a, b domain.Invite) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	var out []domain.Invite
	for _, inv := range rows {
		if len(out) == limit {
			break
		}
		if inv.Status == domain.InviteStatusPending && inv.CanAttempt() && inv.ExpiresAt.After(now) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *inviteRepository) ClaimDelivery(ctx context.Context, id string, from domain.InviteStatus, now time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	inv, ok := r.db.invites[id]
	if !ok || inv.Status != from || !inv.CanAttempt() || !inv.ExpiresAt.After(now) {
		return false, nil
	}
	inv.Attempts++
	inv.LastAttempt = &now
	inv.UpdatedAt = now
	r.db.invites[id] = inv
	return true, nil
}

func (r *inviteRepository) CompleteDelivery(ctx context.Context, id string, from domain.InviteStatus, now time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	inv, ok := r.db.invites[id]
	if !ok || inv.Status != from {
		return fmt.Errorf("invite %s left status %s during delivery: %w", id, from, repository.ErrConflict)
	}
	inv.Status = domain.InviteStatusSent
	inv.Error = nil
	inv.UpdatedAt = now
	r.db.invites[id] = inv
	return nil
}

func (r *inviteRepository) FailDelivery(ctx context.Context, id string, from domain.InviteStatus, reason string, now time.Time) (domain.InviteStatus, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	inv, ok := r.db.invites[id]
	if !ok || inv.Status != from {
		return "", fmt.Errorf("invite %s left status %s during delivery: %w", id, from, repository.ErrConflict)
	}
	if inv.Status == domain.InviteStatusPending && !inv.CanAttempt() {
		inv.Status = domain.InviteStatusFailed
	}
	inv.Error = &reason
	inv.UpdatedAt = now
	r.db.invites[id] = inv
	return inv.Status, nil
}

func (r *inviteRepository) Accept(ctx context.Context, inviteID string, m *domain.Membership, now time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	inv, ok := r.db.invites[inviteID]
	if !ok || !inv.Status.IsActive() || inv.IsExpired(now) {
		return domain.ErrInviteNotActive
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = now
	}
	if err := r.db.addMemberLocked(m); err != nil {
		return domain.ErrAlreadyMember
	}
	inv.Status = domain.InviteStatusAccepted
	inv.UpdatedAt = now
	r.db.invites[inviteID] = inv
	return nil
}

func (r *inviteRepository) MarkExpired(ctx context.Context, id string, now time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if inv, ok := r.db.invites[id]; ok && inv.Status.IsActive() {
		inv.Status = domain.InviteStatusExpired
		inv.UpdatedAt = now
		r.db.invites[id] = inv
	}
	return nil
}

func (r *inviteRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for id, inv := range r.db.invites {
		if inv.Status.IsActive() && inv.IsExpired(now) {
			inv.Status = domain.InviteStatusExpired
			inv.UpdatedAt = now
			r.db.invites[id] = inv
			n++
		}
	}
	return n, nil
}

func (r *inviteRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for id, inv := range r.db.invites {
		if inv.Status.IsTerminal() && inv.UpdatedAt.Before(cutoff) {
			delete(r.db.invites, id)
			n++
		}
	}
	return n, nil
}
