package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"evently-backend/internal/domain"
	"evently-backend/internal/logger"
	"evently-backend/internal/repository"
)

const participationColumns = `id, event_id, user_id, organization_id, payment_ref, is_paid, status, registered_at, cancelled_at, attended_at`

type participationRepository struct {
	db *sql.DB
}

func NewParticipationRepository(db *sql.DB) repository.ParticipationRepository {
	return &participationRepository{db: db}
}

func scanParticipation(row scanner) (*domain.Participation, error) {
	p := &domain.Participation{}
	err := row.Scan(&p.ID, &p.EventID, &p.UserID, &p.OrganizationID, &p.PaymentRef, &p.IsPaid, &p.Status,
		&p.RegisteredAt, &p.CancelledAt, &p.AttendedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

func (r *participationRepository) GetByID(ctx context.Context, id string) (*domain.Participation, error) {
	query := `SELECT ` + participationColumns + ` FROM event_participations WHERE id = $1`
	return scanParticipation(r.db.QueryRowContext(ctx, query, id))
}

func (r *participationRepository) FindActive(ctx context.Context, eventID, userID string, orgID *string) (*domain.Participation, error) {
	query := `SELECT ` + participationColumns + ` FROM event_participations
	          WHERE event_id = $1 AND status <> 'CANCELLED'
	            AND (user_id = $2 OR ($3::uuid IS NOT NULL AND organization_id = $3::uuid))
	          ORDER BY registered_at DESC LIMIT 1`
	return scanParticipation(r.db.QueryRowContext(ctx, query, eventID, userID, orgID))
}

func (r *participationRepository) Register(ctx context.Context, p *domain.Participation) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = domain.ParticipationStatusRegistered
	}

	return runInTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		// The conditional increment locks the event row, so concurrent joins
		// are serialized on it and the capacity check sees committed counts.
		if p.Status.CountsTowardCapacity() {
			query := `UPDATE events SET attendee_count = attendee_count + 1
			          WHERE id = $1 AND (max_attendees IS NULL OR attendee_count < max_attendees)`
			logger.DatabaseCall("reserve_seat", query, "event_id", p.EventID)
			res, err := tx.ExecContext(ctx, query, p.EventID)
			if err != nil {
				return fmt.Errorf("failed to reserve seat: %w", mapError(err))
			}
			rows, err := res.RowsAffected()
			logger.DatabaseResult("reserve_seat", rows, err)
			if err != nil {
				return fmt.Errorf("failed to reserve seat: %w", err)
			}
			if rows == 0 {
				return domain.ErrCapacityExceeded
			}
		}

		query := `INSERT INTO event_participations (` + participationColumns + `)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
		_, err := tx.ExecContext(ctx, query, p.ID, p.EventID, p.UserID, p.OrganizationID, p.PaymentRef, p.IsPaid,
			p.Status, p.RegisteredAt, p.CancelledAt, p.AttendedAt)
		if err != nil {
			if isUniqueViolation(err, "event_participations_payment_ref") {
				return domain.ErrPaymentAlreadyUsed
			}
			if isUniqueViolation(err, "") {
				return domain.ErrAlreadyRegistered
			}
			return fmt.Errorf("failed to insert participation: %w", mapError(err))
		}
		return nil
	})
}

func (r *participationRepository) Cancel(ctx context.Context, id string, now time.Time) (*domain.Participation, error) {
	var cancelled *domain.Participation
	err := runInTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		var eventID string
		err := tx.QueryRowContext(ctx, `SELECT event_id FROM event_participations WHERE id = $1`, id).Scan(&eventID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrParticipationNotFound
			}
			return fmt.Errorf("failed to load participation: %w", mapError(err))
		}

		// Lock order is event then participation, the same as Register.
		if _, err := tx.ExecContext(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, eventID); err != nil {
			return fmt.Errorf("failed to lock event: %w", mapError(err))
		}

		query := `SELECT ` + participationColumns + ` FROM event_participations WHERE id = $1 FOR UPDATE`
		current, err := scanParticipation(tx.QueryRowContext(ctx, query, id))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrParticipationNotFound
			}
			return fmt.Errorf("failed to lock participation: %w", err)
		}
		if current.Status == domain.ParticipationStatusCancelled {
			return domain.ErrAlreadyCancelled
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE event_participations SET status = 'CANCELLED', cancelled_at = $2 WHERE id = $1`, id, now); err != nil {
			return fmt.Errorf("failed to cancel participation: %w", mapError(err))
		}

		if current.Status.CountsTowardCapacity() {
			if _, err := tx.ExecContext(ctx,
				`UPDATE events SET attendee_count = attendee_count - 1 WHERE id = $1 AND attendee_count > 0`,
				current.EventID); err != nil {
				return fmt.Errorf("failed to release seat: %w", mapError(err))
			}
		}

		current.Status = domain.ParticipationStatusCancelled
		current.CancelledAt = &now
		cancelled = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (r *participationRepository) MarkAttended(ctx context.Context, id string, now time.Time) (*domain.Participation, error) {
	query := `UPDATE event_participations SET status = 'ATTENDED', attended_at = $2
	          WHERE id = $1 AND status = 'REGISTERED'
	          RETURNING ` + participationColumns
	p, err := scanParticipation(r.db.QueryRowContext(ctx, query, id, now))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to mark attendance: %w", err)
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrParticipationNotFound
		}
		return nil, err
	}
	return nil, domain.ErrNotRegistered
}

func (r *participationRepository) ListByEvent(ctx context.Context, eventID string, statuses []domain.ParticipationStatus) ([]domain.Participant, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	query := `SELECT p.id, p.event_id, p.user_id, p.organization_id, p.payment_ref, p.is_paid, p.status,
	                 p.registered_at, p.cancelled_at, p.attended_at, u.name, u.email
	          FROM event_participations p
	          JOIN users u ON u.id = p.user_id
	          WHERE p.event_id = $1 AND p.status = ANY($2)
	          ORDER BY p.registered_at DESC, p.id ASC`
	rows, err := r.db.QueryContext(ctx, query, eventID, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", mapError(err))
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		var pt domain.Participant
		p := &pt.Participation
		if err := rows.Scan(&p.ID, &p.EventID, &p.UserID, &p.OrganizationID, &p.PaymentRef, &p.IsPaid, &p.Status,
			&p.RegisteredAt, &p.CancelledAt, &p.AttendedAt, &pt.UserName, &pt.UserEmail); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}

func (r *participationRepository) ListByUser(ctx context.Context, userID string, filter domain.ParticipationFilter, now time.Time) ([]domain.ParticipationRecord, error) {
	return r.listHistory(ctx, "p.user_id = $1", userID, filter, now)
}

func (r *participationRepository) ListByOrganization(ctx context.Context, orgID string, filter domain.ParticipationFilter, now time.Time) ([]domain.ParticipationRecord, error) {
	return r.listHistory(ctx, "p.organization_id = $1", orgID, filter, now)
}

func (r *participationRepository) listHistory(ctx context.Context, owner, ownerID string, filter domain.ParticipationFilter, now time.Time) ([]domain.ParticipationRecord, error) {
	var status, upcoming any
	if filter.Status != nil {
		status = string(*filter.Status)
	}
	if filter.Upcoming != nil {
		upcoming = *filter.Upcoming
	}

	query := `SELECT p.id, p.event_id, p.user_id, p.organization_id, p.payment_ref, p.is_paid, p.status,
	                 p.registered_at, p.cancelled_at, p.attended_at, e.title, e.start_date_time
	          FROM event_participations p
	          JOIN events e ON e.id = p.event_id
	          WHERE ` + owner + `
	            AND ($2::text IS NULL OR p.status = $2::text)
	            AND ($3::boolean IS NULL OR (e.start_date_time >= $4) = $3::boolean)
	          ORDER BY e.start_date_time DESC, p.id ASC`
	logger.DatabaseCall("list_participation_history", query, "owner_id", ownerID)
	rows, err := r.db.QueryContext(ctx, query, ownerID, status, upcoming, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list participations: %w", mapError(err))
	}
	defer rows.Close()

	out := []domain.ParticipationRecord{}
	for rows.Next() {
		var rec domain.ParticipationRecord
		p := &rec.Participation
		if err := rows.Scan(&p.ID, &p.EventID, &p.UserID, &p.OrganizationID, &p.PaymentRef, &p.IsPaid, &p.Status,
			&p.RegisteredAt, &p.CancelledAt, &p.AttendedAt, &rec.EventTitle, &rec.EventStartDateTime); err != nil {
			return nil, fmt.Errorf("failed to scan participation: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *participationRepository) CountByStatus(ctx context.Context, eventID string) (map[domain.ParticipationStatus]int32, error) {
	query := `SELECT status, COUNT(*) FROM event_participations WHERE event_id = $1 GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to count participations: %w", mapError(err))
	}
	defer rows.Close()

	counts := make(map[domain.ParticipationStatus]int32)
	for rows.Next() {
		var status domain.ParticipationStatus
		var n int32
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan participation count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
