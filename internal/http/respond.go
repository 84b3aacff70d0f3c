package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/taskhive/api/internal/domain"
	"github.com/taskhive/api/internal/repository"
	"github.com/taskhive/api/internal/service/auth"
	"github.com/taskhive/api/internal/service/task"
)

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeServiceError maps domain errors onto the HTTP error taxonomy:
// validation 400, auth 401, ownership 403, missing resource 404,
// summarization gateway failure 500, everything else a generic 500.
func (r *Router) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, task.ErrMissingDescription):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "not authorized to access this task")
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, task.ErrSummarizeFailed):
		writeError(w, http.StatusInternalServerError, task.ErrSummarizeFailed.Error())
	default:
		r.logger.Error("unhandled service error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
