package memory

import (
	"context"
	"fmt"
	"time"

	"evently-backend/internal/domain"
	"evently-backend/internal/repository"
)

type userRepository struct {
	db *DB
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user.Email = normalizeEmail(user.Email)
	if _, ok := r.db.users[user.ID]; ok {
		return fmt.Errorf("user %s: %w", user.ID, repository.ErrConflict)
	}
	for _, u := range r.db.users {
		if u.Email == user.Email {
			return fmt.Errorf("user email %s: %w", user.Email, repository.ErrConflict)
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.db.users[user.ID] = *user
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	email = normalizeEmail(email)
	for _, u := range r.db.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

type organizationRepository struct {
	db *DB
}

func (r *organizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.orgs[org.ID]; ok {
		return fmt.Errorf("organization %s: %w", org.ID, repository.ErrConflict)
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}
	r.db.orgs[org.ID] = *org
	return nil
}

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	org, ok := r.db.orgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &org, nil
}

type membershipRepository struct {
	db *DB
}

func (r *membershipRepository) Add(ctx context.Context, m *domain.Membership) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.addMemberLocked(m)
}

func (r *membershipRepository) Get(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	m, ok := r.db.members[memberKey{userID: userID, orgID: orgID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (d *DB) addMemberLocked(m *domain.Membership) error {
	key := memberKey{userID: m.UserID, orgID: m.OrganizationID}
	if _, ok := d.members[key]; ok {
		return fmt.Errorf("membership %s/%s: %w", m.UserID, m.OrganizationID, repository.ErrConflict)
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	d.members[key] = *m
	return nil
}

type eventRepository struct {
	db *DB
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.events[e.ID]; ok {
		return fmt.Errorf("event %s: %w", e.ID, repository.ErrConflict)
	}
	if e.Visibility == "" {
		e.Visibility = domain.EventVisibilityPublic
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	r.db.events[e.ID] = *e
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	e, ok := r.db.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}
