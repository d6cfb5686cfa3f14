package handlers

import (
	"net/http"
	"time"
)

// HealthResponse represents the health check response
// swagger:model HealthResponse
type HealthResponse struct {
	// Service status
	// default: healthy
	Status string `json:"status"`

	// Service name
	// default: auth-service
	Service string `json:"service"`

	// Current server time, RFC 3339
	Timestamp string `json:"timestamp"`
}

// NewHealthHandler returns the health check handler.
// @Summary Health check
// @Description Reports service liveness
// @Tags health
// @Produce json
// @Success 200 {object} handlers.HealthResponse "Service is healthy"
// @Router /health [get]
func NewHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:    "healthy",
			Service:   "auth-service",
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
}
