package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorStatus maps the error taxonomy to an HTTP status and error kind.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusServiceUnavailable, "configuration"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNoEligibleEntries):
		return http.StatusUnprocessableEntity, "no_eligible_entries"
	case errors.Is(err, domain.ErrLimitExceeded):
		return http.StatusUnprocessableEntity, "limit_exceeded"
	case errors.Is(err, domain.ErrVerificationInconclusive):
		return http.StatusServiceUnavailable, "verification_inconclusive"
	case errors.Is(err, domain.ErrDrawInProgress):
		return http.StatusConflict, "draw_in_progress"
	case errors.Is(err, domain.ErrAlreadyMonitoring):
		return http.StatusConflict, "already_monitoring"
	case errors.Is(err, domain.ErrNotMonitoring):
		return http.StatusConflict, "not_monitoring"
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrInvariantViolation):
		return http.StatusInternalServerError, "invariant_violation"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status, kind := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("kind", kind).Error("Request failed")
	}
	writeError(w, status, kind, err.Error())
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: kind, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
