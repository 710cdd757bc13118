package http

import (
	"context"
	"errors"
	"net/http"

	"evently-backend/internal/scheduler"
	"evently-backend/internal/security"
)

// Triggerer runs a scheduler task on demand. *scheduler.Scheduler implements it.
type Triggerer interface {
	Trigger(ctx context.Context, task scheduler.Task) error
}

type TriggerHandler struct {
	auth      *security.TriggerAuthorizer
	scheduler Triggerer
}

func NewTriggerHandler(auth *security.TriggerAuthorizer, s Triggerer) *TriggerHandler {
	return &TriggerHandler{auth: auth, scheduler: s}
}

type triggerRequest struct {
	Type string `json:"type"`
}

var triggerMessages = map[scheduler.Task]string{
	scheduler.TaskInvites: "Invite processing triggered successfully",
	scheduler.TaskJobs:    "Job queue processing triggered successfully",
	scheduler.TaskCleanup: "Cleanup triggered successfully",
	scheduler.TaskAll:     "All jobs triggered successfully",
}

// HandleTrigger handles POST /api/jobs/trigger
func (h *TriggerHandler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	if !h.auth.Authorize(r) {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req triggerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := scheduler.ParseTask(req.Type)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job type. Use: invites, jobs, cleanup, or all")
		return
	}

	if err := h.scheduler.Trigger(r.Context(), task); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: triggerMessages[task]})
}
