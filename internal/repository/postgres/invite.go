package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"evently-backend/internal/domain"
	"evently-backend/internal/logger"
	"evently-backend/internal/repository"
)

const inviteColumns = `id, organization_id, email, role, invited_by, token, expires_at, attempts, max_attempts,
	status, error, last_attempt, created_at, updated_at`

type inviteRepository struct {
	db *sql.DB
}

func NewInviteRepository(db *sql.DB) repository.InviteRepository {
	return &inviteRepository{db: db}
}

func scanInvite(row scanner) (*domain.Invite, error) {
	inv := &domain.Invite{}
	err := row.Scan(&inv.ID, &inv.OrganizationID, &inv.Email, &inv.Role, &inv.InvitedBy, &inv.Token, &inv.ExpiresAt,
		&inv.Attempts, &inv.MaxAttempts, &inv.Status, &inv.Error, &inv.LastAttempt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return inv, nil
}

func (r *inviteRepository) Create(ctx context.Context, inv *domain.Invite) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.Status == "" {
		inv.Status = domain.InviteStatusPending
	}
	inv.Email = strings.ToLower(inv.Email)

	query := `INSERT INTO pending_invites (` + inviteColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.db.ExecContext(ctx, query, inv.ID, inv.OrganizationID, inv.Email, inv.Role, inv.InvitedBy, inv.Token,
		inv.ExpiresAt, inv.Attempts, inv.MaxAttempts, inv.Status, inv.Error, inv.LastAttempt, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "pending_invites_active") {
			return domain.ErrDuplicateInvite
		}
		return fmt.Errorf("failed to create invite: %w", mapError(err))
	}
	return nil
}

func (r *inviteRepository) GetByID(ctx context.Context, id string) (*domain.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM pending_invites WHERE id = $1`
	return scanInvite(r.db.QueryRowContext(ctx, query, id))
}

func (r *inviteRepository) GetByToken(ctx context.Context, token string) (*domain.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM pending_invites WHERE token = $1`
	return scanInvite(r.db.QueryRowContext(ctx, query, token))
}

func (r *inviteRepository) FindActive(ctx context.Context, orgID, email string) (*domain.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM pending_invites
	          WHERE organization_id = $1 AND email = $2 AND status IN ('PENDING', 'SENT')`
	return scanInvite(r.db.QueryRowContext(ctx, query, orgID, strings.ToLower(email)))
}

func (r *inviteRepository) ListDeliverable(ctx context.Context, now time.Time, limit int) ([]domain.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM pending_invites
	          WHERE status = 'PENDING' AND attempts < max_attempts AND expires_at > $1
	          ORDER BY created_at ASC, id ASC
	          LIMIT $2`
	logger.DatabaseCall("list_deliverable_invites", query, "limit", limit)
	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliverable invites: %w", mapError(err))
	}
	defer rows.Close()

	var invites []domain.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invites = append(invites, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.DatabaseResult("list_deliverable_invites", int64(len(invites)), nil)
	return invites, nil
}

func (r *inviteRepository) ClaimDelivery(ctx context.Context, id string, from domain.InviteStatus, now time.Time) (bool, error) {
	query := `UPDATE pending_invites
	          SET attempts = attempts + 1, last_attempt = $3, updated_at = $3
	          WHERE id = $1 AND status = $2 AND attempts < max_attempts AND expires_at > $3`
	res, err := r.db.ExecContext(ctx, query, id, from, now)
	if err != nil {
		return false, fmt.Errorf("failed to claim invite: %w", mapError(err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *inviteRepository) CompleteDelivery(ctx context.Context, id string, from domain.InviteStatus, now time.Time) error {
	query := `UPDATE pending_invites SET status = 'SENT', error = NULL, updated_at = $3
	          WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, now)
	if err != nil {
		return fmt.Errorf("failed to mark invite sent: %w", mapError(err))
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("invite %s left status %s during delivery: %w", id, from, repository.ErrConflict)
	}
	return nil
}

func (r *inviteRepository) FailDelivery(ctx context.Context, id string, from domain.InviteStatus, reason string, now time.Time) (domain.InviteStatus, error) {
	query := `UPDATE pending_invites
	          SET status = CASE WHEN status = 'PENDING' AND attempts >= max_attempts THEN 'FAILED' ELSE status END,
	              error = $3, updated_at = $4
	          WHERE id = $1 AND status = $2
	          RETURNING status`
	var status domain.InviteStatus
	err := r.db.QueryRowContext(ctx, query, id, from, reason, now).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("invite %s left status %s during delivery: %w", id, from, repository.ErrConflict)
		}
		return "", fmt.Errorf("failed to record invite failure: %w", mapError(err))
	}
	return status, nil
}

func (r *inviteRepository) Accept(ctx context.Context, inviteID string, m *domain.Membership, now time.Time) error {
	return runInTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		query := `UPDATE pending_invites SET status = 'ACCEPTED', updated_at = $2
		          WHERE id = $1 AND status IN ('PENDING', 'SENT') AND expires_at >= $2`
		res, err := tx.ExecContext(ctx, query, inviteID, now)
		if err != nil {
			return fmt.Errorf("failed to accept invite: %w", mapError(err))
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrInviteNotActive
		}

		if m.JoinedAt.IsZero() {
			m.JoinedAt = now
		}
		if err := insertMembership(ctx, tx, m); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return domain.ErrAlreadyMember
			}
			return err
		}
		return nil
	})
}

func (r *inviteRepository) MarkExpired(ctx context.Context, id string, now time.Time) error {
	query := `UPDATE pending_invites SET status = 'EXPIRED', updated_at = $2
	          WHERE id = $1 AND status IN ('PENDING', 'SENT')`
	if _, err := r.db.ExecContext(ctx, query, id, now); err != nil {
		return fmt.Errorf("failed to expire invite: %w", mapError(err))
	}
	return nil
}

func (r *inviteRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE pending_invites SET status = 'EXPIRED', updated_at = $1
	          WHERE status IN ('PENDING', 'SENT') AND expires_at < $1`
	logger.DatabaseCall("expire_invites", query)
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		logger.DatabaseResult("expire_invites", 0, err)
		return 0, fmt.Errorf("failed to expire invites: %w", mapError(err))
	}
	rows, err := res.RowsAffected()
	logger.DatabaseResult("expire_invites", rows, err)
	return rows, err
}

func (r *inviteRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM pending_invites
	          WHERE status IN ('EXPIRED', 'ACCEPTED', 'FAILED') AND updated_at < $1`
	logger.DatabaseCall("delete_terminal_invites", query, "cutoff", cutoff)
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		logger.DatabaseResult("delete_terminal_invites", 0, err)
		return 0, fmt.Errorf("failed to delete terminal invites: %w", mapError(err))
	}
	rows, err := res.RowsAffected()
	logger.DatabaseResult("delete_terminal_invites", rows, err)
	return rows, err
}
