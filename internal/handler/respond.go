package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/novameet/meeting-agent-service/internal/domain"
	"github.com/novameet/meeting-agent-service/pkg/logger"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Base().Error("failed to encode response", zap.Error(err))
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain sentinels onto HTTP statuses. ErrNotFound is
// a single uniform message for both missing and unowned entities.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAgentInUse):
		writeErrorMessage(w, http.StatusConflict, "agent is referenced by existing meetings")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeErrorMessage(w, http.StatusConflict, "invalid status transition")
	default:
		logger.Base().Error("internal error", zap.Error(err))
		writeErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
