package http

import (
	"context"
	"net/http"
	"time"

	"energytracker/internal/log"
)

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// handleHealth reports liveness only. It never touches the store.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: s.now().Format(time.RFC3339),
	})
}

// handleReady reports whether the store answers within two seconds.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.Ping(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:    "unavailable",
			Timestamp: s.now().Format(time.RFC3339),
			Error:     err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ready",
		Timestamp: s.now().Format(time.RFC3339),
	})
}
