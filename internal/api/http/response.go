package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"evently-backend/internal/domain"
	"evently-backend/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondServiceError maps business rejections and unknown job types to 4xx
// and everything else to a generic 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var rejection *domain.RejectionError
	if errors.As(err, &rejection) {
		logger.Debug("Request rejected", "path", r.URL.Path, "reason", rejection.Reason)
		respondError(w, statusForKind(rejection.Kind), rejection.Reason)
		return
	}
	var unknown *domain.UnknownJobTypeError
	if errors.As(err, &unknown) {
		respondError(w, http.StatusBadRequest, unknown.Error())
		return
	}

	logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	respondError(w, http.StatusInternalServerError, "Internal Server Error")
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
