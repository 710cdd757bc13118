package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"evently-backend/internal/security"
)

// APIHandlers are the handlers served by the API process.
type APIHandlers struct {
	Participations *ParticipationHandler
	Invites        *InviteHandler
	Jobs           *JobHandler
}

// NewAPIRouter builds the routes of the API server.
func NewAPIRouter(tm security.TokenManager, h APIHandlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(LogRequests)
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	public := api.NewRoute().Subrouter()
	public.Use(OptionalAuth(tm))
	public.HandleFunc("/events/{id}/participants", h.Participations.HandleListParticipants).Methods(http.MethodGet)

	authed := api.NewRoute().Subrouter()
	authed.Use(RequireAuth(tm))
	authed.HandleFunc("/events/{id}/participations", h.Participations.HandleJoin).Methods(http.MethodPost)
	authed.HandleFunc("/events/{id}/participation", h.Participations.HandleCheck).Methods(http.MethodGet)
	authed.HandleFunc("/participations/{id}", h.Participations.HandleCancel).Methods(http.MethodDelete)
	authed.HandleFunc("/participations/{id}/attend", h.Participations.HandleMarkAttended).Methods(http.MethodPost)
	authed.HandleFunc("/me/participations", h.Participations.HandleListMine).Methods(http.MethodGet)
	authed.HandleFunc("/organizations/{id}/participations", h.Participations.HandleListOrganization).Methods(http.MethodGet)
	authed.HandleFunc("/organizations/{id}/invites", h.Invites.HandleCreate).Methods(http.MethodPost)
	authed.HandleFunc("/invites/{token}/accept", h.Invites.HandleAccept).Methods(http.MethodPost)
	authed.HandleFunc("/invites/{id}/resend", h.Invites.HandleResend).Methods(http.MethodPost)
	authed.HandleFunc("/events/{id}/jobs", h.Jobs.HandleScheduleEventJob).Methods(http.MethodPost)

	return r
}

// NewTriggerRouter builds the routes of the cronjob process.
func NewTriggerRouter(h *TriggerHandler) *mux.Router {
	r := mux.NewRouter()
	r.Use(LogRequests)
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/trigger", h.HandleTrigger).Methods(http.MethodPost)
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
