package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"evently-backend/internal/service"
)

type JobHandler struct {
	jobs service.JobService
}

func NewJobHandler(jobs service.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

type scheduleEventJobRequest struct {
	Type        string     `json:"type" validate:"required,oneof=SEND_EVENT_REMINDER GENERATE_REPORT"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

type scheduleEventJobResponse struct {
	JobID       string    `json:"job_id"`
	Type        string    `json:"type"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// HandleScheduleEventJob handles POST /api/events/{id}/jobs
func (h *JobHandler) HandleScheduleEventJob(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	var req scheduleEventJobRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var at time.Time
	if req.ScheduledAt != nil {
		at = req.ScheduledAt.UTC()
	}

	job, err := h.jobs.ScheduleEventJob(r.Context(), claims.UserID, mux.Vars(r)["id"], req.Type, at)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, scheduleEventJobResponse{JobID: job.ID, Type: string(job.Type), ScheduledAt: job.ScheduledAt})
}
