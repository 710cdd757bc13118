package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"evently-backend/internal/domain"
	"evently-backend/internal/service"
)

type ParticipationHandler struct {
	ledger service.ParticipationService
}

func NewParticipationHandler(ledger service.ParticipationService) *ParticipationHandler {
	return &ParticipationHandler{ledger: ledger}
}

type joinRequest struct {
	OrganizationID *string `json:"organization_id" validate:"omitempty,uuid"`
	PaymentRef     *string `json:"payment_ref" validate:"omitempty,max=255"`
}

type participantsResponse struct {
	Participants []domain.Participant `json:"participants"`
	Count        int                  `json:"count"`
}

type historyResponse struct {
	Participations []domain.ParticipationRecord `json:"participations"`
	Count          int                          `json:"count"`
}

type historyQuery struct {
	Status   string `json:"status" validate:"omitempty,oneof=REGISTERED ATTENDED CANCELLED WAITLISTED"`
	Upcoming string `json:"upcoming" validate:"omitempty,boolean"`
}

type checkResponse struct {
	Registered    bool                  `json:"registered"`
	Participation *domain.Participation `json:"participation,omitempty"`
}

// HandleJoin handles POST /api/events/{id}/participations
func (h *ParticipationHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	var req joinRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.ledger.Join(r.Context(), service.JoinRequest{
		EventID:        mux.Vars(r)["id"],
		UserID:         claims.UserID,
		OrganizationID: req.OrganizationID,
		PaymentRef:     req.PaymentRef,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// HandleCancel handles DELETE /api/participations/{id}
func (h *ParticipationHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	p, err := h.ledger.Cancel(r.Context(), mux.Vars(r)["id"], claims.UserID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// HandleMarkAttended handles POST /api/participations/{id}/attend
func (h *ParticipationHandler) HandleMarkAttended(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	p, err := h.ledger.MarkAttended(r.Context(), mux.Vars(r)["id"], claims.UserID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// HandleListParticipants handles GET /api/events/{id}/participants
func (h *ParticipationHandler) HandleListParticipants(w http.ResponseWriter, r *http.Request) {
	var requesterID string
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		requesterID = claims.UserID
	}

	participants, err := h.ledger.ListParticipants(r.Context(), mux.Vars(r)["id"], requesterID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if participants == nil {
		participants = []domain.Participant{}
	}
	respondJSON(w, http.StatusOK, participantsResponse{Participants: participants, Count: len(participants)})
}

// HandleCheck handles GET /api/events/{id}/participation?organization_id=
func (h *ParticipationHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	var orgID *string
	if v := r.URL.Query().Get("organization_id"); v != "" {
		orgID = &v
	}

	p, err := h.ledger.CheckParticipation(r.Context(), mux.Vars(r)["id"], claims.UserID, orgID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, checkResponse{Registered: p != nil, Participation: p})
}

// HandleListMine handles GET /api/me/participations?status=&upcoming=
func (h *ParticipationHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	filter, err := parseHistoryFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := h.ledger.ListUserParticipations(r.Context(), claims.UserID, filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, historyResponse{Participations: records, Count: len(records)})
}

// HandleListOrganization handles GET /api/organizations/{id}/participations?status=&upcoming=
func (h *ParticipationHandler) HandleListOrganization(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	filter, err := parseHistoryFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := h.ledger.ListOrganizationParticipations(r.Context(), claims.UserID, mux.Vars(r)["id"], filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, historyResponse{Participations: records, Count: len(records)})
}

func parseHistoryFilter(r *http.Request) (domain.ParticipationFilter, error) {
	q := historyQuery{
		Status:   r.URL.Query().Get("status"),
		Upcoming: r.URL.Query().Get("upcoming"),
	}
	if err := validateRequest(&q); err != nil {
		return domain.ParticipationFilter{}, err
	}

	var filter domain.ParticipationFilter
	if q.Status != "" {
		status := domain.ParticipationStatus(q.Status)
		filter.Status = &status
	}
	if q.Upcoming != "" {
		upcoming, err := strconv.ParseBool(q.Upcoming)
		if err != nil {
			return domain.ParticipationFilter{}, err
		}
		filter.Upcoming = &upcoming
	}
	return filter, nil
}
