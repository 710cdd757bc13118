package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"evently-backend/internal/domain"
	"evently-backend/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO users (id, email, name, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, user.ID, strings.ToLower(user.Email), user.Name, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapError(err))
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT id, email, name, created_at FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT id, email, name, created_at FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(email)))
}

func scanUser(row scanner) (*domain.User, error) {
	u := &domain.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return u, nil
}
