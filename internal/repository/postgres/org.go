package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"evently-backend/internal/domain"
	"evently-backend/internal/repository"
)

type organizationRepository struct {
	db *sql.DB
}

func NewOrganizationRepository(db *sql.DB) repository.OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO organizations (id, name, created_at) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, org.ID, org.Name, org.CreatedAt); err != nil {
		return fmt.Errorf("failed to create organization: %w", mapError(err))
	}
	return nil
}

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	org := &domain.Organization{}
	query := `SELECT id, name, created_at FROM organizations WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&org.ID, &org.Name, &org.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return org, nil
}

type membershipRepository struct {
	db *sql.DB
}

func NewMembershipRepository(db *sql.DB) repository.MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) Add(ctx context.Context, m *domain.Membership) error {
	return insertMembership(ctx, r.db, m)
}

func (r *membershipRepository) Get(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	m := &domain.Membership{}
	query := `SELECT user_id, organization_id, role, joined_at FROM organization_members
	          WHERE user_id = $1 AND organization_id = $2`
	err := r.db.QueryRowContext(ctx, query, userID, orgID).Scan(&m.UserID, &m.OrganizationID, &m.Role, &m.JoinedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return m, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertMembership(ctx context.Context, db execer, m *domain.Membership) error {
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	query := `INSERT INTO organization_members (user_id, organization_id, role, joined_at) VALUES ($1, $2, $3, $4)`
	if _, err := db.ExecContext(ctx, query, m.UserID, m.OrganizationID, m.Role, m.JoinedAt); err != nil {
		return fmt.Errorf("failed to add member: %w", mapError(err))
	}
	return nil
}
