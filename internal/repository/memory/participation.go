package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"evently-backend/internal/domain"
	"evently-backend/internal/repository"
)

type participationRepository struct {
	db *DB
}

func (r *participationRepository) GetByID(ctx context.Context, id string) (*domain.Participation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.participations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *participationRepository) FindActive(ctx context.Context, eventID, userID string, orgID *string) (*domain.Participation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if p := r.db.findActiveLocked(eventID, userID, orgID); p != nil {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (d *DB) findActiveLocked(eventID, userID string, orgID *string) *domain.Participation {
	for _, p := range d.participations {
		if p.EventID != eventID || !p.Status.IsActive() {
			continue
		}
		if p.UserID == userID || (orgID != nil && p.OrganizationID != nil && *p.OrganizationID == *orgID) {
			return &p
		}
	}
	return nil
}

func (r *participationRepository) Register(ctx context.Context, p *domain.Participation) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	event, ok := r.db.events[p.EventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	if p.Status == "" {
		p.Status = domain.ParticipationStatusRegistered
	}
	if p.Status.CountsTowardCapacity() && event.IsFull() {
		return domain.ErrCapacityExceeded
	}
	if r.db.findActiveLocked(p.EventID, p.UserID, p.OrganizationID) != nil {
		return domain.ErrAlreadyRegistered
	}
	if p.PaymentRef != nil {
		for _, existing := range r.db.participations {
			if existing.PaymentRef != nil && *existing.PaymentRef == *p.PaymentRef {
				return domain.ErrPaymentAlreadyUsed
			}
		}
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status.CountsTowardCapacity() {
		event.AttendeeCount++
		r.db.events[event.ID] = event
	}
	r.db.participations[p.ID] = *p
	return nil
}

func (r *participationRepository) Cancel(ctx context.Context, id string, now time.Time) (*domain.Participation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.participations[id]
	if !ok {
		return nil, domain.ErrParticipationNotFound
	}
	if p.Status == domain.ParticipationStatusCancelled {
		return nil, domain.ErrAlreadyCancelled
	}

	if p.Status.CountsTowardCapacity() {
		if event, ok := r.db.events[p.EventID]; ok && event.AttendeeCount > 0 {
			event.AttendeeCount--
			r.db.events[event.ID] = event
		}
	}
	p.Status = domain.ParticipationStatusCancelled
	p.CancelledAt = &now
	r.db.participations[id] = p
	return &p, nil
}

func (r *participationRepository) MarkAttended(ctx context.Context, id string, now time.Time) (*domain.Participation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.participations[id]
	if !ok {
		return nil, domain.ErrParticipationNotFound
	}
	if p.Status != domain.ParticipationStatusRegistered {
		return nil, domain.ErrNotRegistered
	}
	p.Status = domain.ParticipationStatusAttended
	p.AttendedAt = &now
	r.db.participations[id] = p
	return &p, nil
}

func (r *participationRepository) ListByEvent(ctx context.Context, eventID string, statuses []domain.ParticipationStatus) ([]domain.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rows := sortedValues(r.db.participations, func(a, b domain.Participation) bool {
		if !a.RegisteredAt.Equal(b.RegisteredAt) {
			return a.RegisteredAt.After(b.RegisteredAt)
		}
		return a.ID < b.ID
	})

	var out []domain.Participant
	for _, p := range rows {
		if p.EventID != eventID || !slices.Contains(statuses, p.Status) {
			continue
		}
		u, ok := r.db.users[p.UserID]
		if !ok {
			continue
		}
		out = append(out, domain.Participant{Participation: p, UserName: u.Name, UserEmail: u.Email})
	}
	return out, nil
}

func (r *participationRepository) ListByUser(ctx context.Context, userID string, filter domain.ParticipationFilter, now time.Time) ([]domain.ParticipationRecord, error) {
	return r.listHistory(filter, now, func(p domain.Participation) bool {
		return p.UserID == userID
	}), nil
}

func (r *participationRepository) ListByOrganization(ctx context.Context, orgID string, filter domain.ParticipationFilter, now time.Time) ([]domain.ParticipationRecord, error) {
	return r.listHistory(filter, now, func(p domain.Participation) bool {
		return p.OrganizationID != nil && *p.OrganizationID == orgID
	}), nil
}

func (r *participationRepository) listHistory(filter domain.ParticipationFilter, now time.Time, owned func(domain.Participation) bool) []domain.ParticipationRecord {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	out := []domain.ParticipationRecord{}
	for _, p := range r.db.participations {
		event, ok := r.db.events[p.EventID]
		if !ok || !owned(p) || !filter.Matches(p, event.StartDateTime, now) {
			continue
		}
		out = append(out, domain.ParticipationRecord{
			Participation:      p,
			EventTitle:         event.Title,
			EventStartDateTime: event.StartDateTime,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EventStartDateTime.Equal(out[j].EventStartDateTime) {
			return out[i].EventStartDateTime.After(out[j].EventStartDateTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *participationRepository) CountByStatus(ctx context.Context, eventID string) (map[domain.ParticipationStatus]int32, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	counts := make(map[domain.ParticipationStatus]int32)
	for _, p := range r.db.participations {
		if p.EventID == eventID {
			counts[p.Status]++
		}
	}
	return counts, nil
}
