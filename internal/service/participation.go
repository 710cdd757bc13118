package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"evently-backend/internal/domain"
	"evently-backend/internal/logger"
	"evently-backend/internal/payment"
	"evently-backend/internal/repository"
)

type participationService struct {
	store    *repository.Store
	payments payment.Verifier
	now      Clock
}

func NewParticipationService(store *repository.Store, payments payment.Verifier, now Clock) ParticipationService {
	if now == nil {
		now = SystemClock
	}
	if payments == nil {
		payments = payment.PresenceVerifier{}
	}
	return &participationService{store: store, payments: payments, now: now}
}

func (s *participationService) Join(ctx context.Context, req JoinRequest) (*domain.Participation, error) {
	event, err := s.loadEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.ParticipationRepository.FindActive(ctx, event.ID, req.UserID, req.OrganizationID); err == nil {
		return nil, domain.ErrAlreadyRegistered
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing participation: %w", err)
	}

	if req.OrganizationID != nil {
		if event.IsHostedBy(*req.OrganizationID) {
			return nil, domain.ErrOwnOrganizationEvent
		}
		isMember, err := s.isMember(ctx, req.UserID, *req.OrganizationID)
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, domain.ErrNotOrgMember
		}
	}

	if event.Visibility == domain.EventVisibilityPrivate {
		if event.OrganizationID == nil {
			return nil, domain.ErrMembersOnlyEvent
		}
		isMember, err := s.isMember(ctx, req.UserID, *event.OrganizationID)
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, domain.ErrMembersOnlyEvent
		}
	}

	// Fail fast before asking the payment provider; Register re-checks atomically.
	if event.IsFull() {
		return nil, domain.ErrCapacityExceeded
	}

	var paymentRef *string
	if !event.IsFree {
		if req.PaymentRef == nil || strings.TrimSpace(*req.PaymentRef) == "" {
			return nil, domain.ErrPaymentRequired
		}
		ref := strings.TrimSpace(*req.PaymentRef)
		if err := s.payments.Verify(ctx, event, ref); err != nil {
			return nil, err
		}
		paymentRef = &ref
	}

	p := &domain.Participation{
		EventID:        event.ID,
		UserID:         req.UserID,
		OrganizationID: req.OrganizationID,
		PaymentRef:     paymentRef,
		IsPaid:         paymentRef != nil,
		Status:         domain.ParticipationStatusRegistered,
		RegisteredAt:   s.now(),
	}
	if err := s.store.ParticipationRepository.Register(ctx, p); err != nil {
		return nil, err
	}

	logger.Info("Participant registered", "participation_id", p.ID, "event_id", event.ID, "user_id", req.UserID)
	return p, nil
}

func (s *participationService) Cancel(ctx context.Context, participationID, callerUserID string) (*domain.Participation, error) {
	p, err := s.loadParticipation(ctx, participationID)
	if err != nil {
		return nil, err
	}
	if p.UserID != callerUserID {
		return nil, domain.ErrNotParticipationOwner
	}

	event, err := s.loadEvent(ctx, p.EventID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if event.HasStarted(now) {
		return nil, domain.ErrEventStarted
	}
	if p.Status == domain.ParticipationStatusCancelled {
		return nil, domain.ErrAlreadyCancelled
	}

	cancelled, err := s.store.ParticipationRepository.Cancel(ctx, p.ID, now)
	if err != nil {
		return nil, err
	}

	logger.Info("Participation cancelled", "participation_id", p.ID, "event_id", p.EventID, "previous_status", p.Status)
	return cancelled, nil
}

func (s *participationService) MarkAttended(ctx context.Context, participationID, requesterID string) (*domain.Participation, error) {
	p, err := s.loadParticipation(ctx, participationID)
	if err != nil {
		return nil, err
	}
	event, err := s.loadEvent(ctx, p.EventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizationID == nil {
		return nil, domain.ErrEventHasNoHost
	}

	isHost, err := s.isMember(ctx, requesterID, *event.OrganizationID)
	if err != nil {
		return nil, err
	}
	if !isHost {
		return nil, domain.ErrNotEventHost
	}
	if p.Status != domain.ParticipationStatusRegistered {
		return nil, domain.ErrNotRegistered
	}

	attended, err := s.store.ParticipationRepository.MarkAttended(ctx, p.ID, s.now())
	if err != nil {
		return nil, err
	}

	logger.Info("Participant marked attended", "participation_id", p.ID, "event_id", p.EventID, "marked_by", requesterID)
	return attended, nil
}

func (s *participationService) ListParticipants(ctx context.Context, eventID, requesterID string) ([]domain.Participant, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.ParticipationRepository.ListByEvent(ctx, eventID, []domain.ParticipationStatus{
		domain.ParticipationStatusRegistered,
		domain.ParticipationStatusAttended,
	})
	if err != nil {
		return nil, err
	}

	isHost := false
	if requesterID != "" && event.OrganizationID != nil {
		if isHost, err = s.isMember(ctx, requesterID, *event.OrganizationID); err != nil {
			return nil, err
		}
	}
	if isHost {
		return participants, nil
	}
	for i := range participants {
		if requesterID != "" && participants[i].UserID == requesterID {
			continue
		}
		participants[i].UserEmail = ""
		participants[i].PaymentRef = nil
	}
	return participants, nil
}

func (s *participationService) ListUserParticipations(ctx context.Context, userID string, filter domain.ParticipationFilter) ([]domain.ParticipationRecord, error) {
	records, err := s.store.ParticipationRepository.ListByUser(ctx, userID, filter, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list user participations: %w", err)
	}
	return records, nil
}

func (s *participationService) ListOrganizationParticipations(ctx context.Context, requesterID, orgID string, filter domain.ParticipationFilter) ([]domain.ParticipationRecord, error) {
	if _, err := s.store.OrganizationRepository.GetByID(ctx, orgID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	isMember, err := s.isMember(ctx, requesterID, orgID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, domain.ErrNotOrgMemberView
	}

	records, err := s.store.ParticipationRepository.ListByOrganization(ctx, orgID, filter, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list organization participations: %w", err)
	}
	return records, nil
}

func (s *participationService) CheckParticipation(ctx context.Context, eventID, userID string, orgID *string) (*domain.Participation, error) {
	p, err := s.store.ParticipationRepository.FindActive(ctx, eventID, userID, orgID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check participation: %w", err)
	}
	return p, nil
}

func (s *participationService) loadEvent(ctx context.Context, id string) (*domain.Event, error) {
	event, err := s.store.EventRepository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	return event, nil
}

func (s *participationService) loadParticipation(ctx context.Context, id string) (*domain.Participation, error) {
	p, err := s.store.ParticipationRepository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrParticipationNotFound
		}
		return nil, fmt.Errorf("failed to load participation: %w", err)
	}
	return p, nil
}

func (s *participationService) isMember(ctx context.Context, userID, orgID string) (bool, error) {
	_, err := s.store.MembershipRepository.Get(ctx, userID, orgID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to load membership: %w", err)
}
