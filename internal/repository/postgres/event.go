package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"evently-backend/internal/domain"
	"evently-backend/internal/repository"
)

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) repository.EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Visibility == "" {
		e.Visibility = domain.EventVisibilityPublic
	}
	query := `INSERT INTO events (id, title, organization_id, start_date_time, max_attendees, attendee_count, is_free, price_cents, visibility, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query, e.ID, e.Title, e.OrganizationID, e.StartDateTime, e.MaxAttendees,
		e.AttendeeCount, e.IsFree, e.PriceCents, e.Visibility, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", mapError(err))
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	e := &domain.Event{}
	query := `SELECT id, title, organization_id, start_date_time, max_attendees, attendee_count, is_free, price_cents, visibility, created_at
	          FROM events WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.Title, &e.OrganizationID, &e.StartDateTime,
		&e.MaxAttendees, &e.AttendeeCount, &e.IsFree, &e.PriceCents, &e.Visibility, &e.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return e, nil
}
