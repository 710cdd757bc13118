package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"evently-backend/internal/domain"
	"evently-backend/internal/service"
)

type InviteHandler struct {
	invites service.InviteService
}

func NewInviteHandler(invites service.InviteService) *InviteHandler {
	return &InviteHandler{invites: invites}
}

type createInviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=ADMIN MEMBER"`
}

type createInviteResponse struct {
	Message  string `json:"message"`
	InviteID string `json:"invite_id"`
}

// HandleCreate handles POST /api/organizations/{id}/invites
func (h *InviteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	var req createInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	invite, err := h.invites.CreateInvite(r.Context(), claims.UserID, mux.Vars(r)["id"], req.Email, domain.MemberRole(req.Role))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, createInviteResponse{
		Message:  "Invitation created successfully. An email will be sent shortly.",
		InviteID: invite.ID,
	})
}

// HandleAccept handles POST /api/invites/{token}/accept
func (h *InviteHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	membership, err := h.invites.AcceptInvite(r.Context(), mux.Vars(r)["token"], claims.UserID, claims.Email)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, membership)
}

// HandleResend handles POST /api/invites/{id}/resend
func (h *InviteHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	invite, err := h.invites.ResendInvite(r.Context(), claims.UserID, mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, invite)
}
