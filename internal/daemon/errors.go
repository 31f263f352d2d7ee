package daemon

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/weboryskills/practice/internal/domain"
)

// errorResponse is the body of every non-2xx response
type errorResponse struct {
	Error   string `json:"error"`
	Status  int    `json:"status"`
	Details string `json:"details,omitempty"`
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func jsonError(w http.ResponseWriter, status int, message string, err error) {
	resp := errorResponse{Error: message, Status: status}
	if err != nil {
		resp.Details = err.Error()
	}
	jsonResponse(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP statuses
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			jsonError(w, http.StatusBadRequest, "invalid request", verr)
			return
		}
		jsonError(w, http.StatusBadRequest, "invalid request", err)
	case errors.Is(err, domain.ErrUserNotFound):
		jsonError(w, http.StatusNotFound, "user not found", nil)
	case errors.Is(err, domain.ErrOracleFailure):
		w.Header().Set("Retry-After", "5")
		jsonError(w, http.StatusServiceUnavailable, "scoring unavailable, retry later", nil)
		s.logger.Warn("oracle failure",
			"correlation_id", GetCorrelationID(r.Context()),
			"error", err)
	default:
		jsonError(w, http.StatusInternalServerError, "internal server error", nil)
		s.logger.Error("request failed",
			"correlation_id", GetCorrelationID(r.Context()),
			"path", r.URL.Path,
			"error", err)
	}
}
