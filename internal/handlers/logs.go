package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/monitoringhub/auth-service/internal/logger"
	"github.com/monitoringhub/auth-service/internal/models"
)

// LogsLister defines the interface that the audit listing service must implement.
type LogsLister interface {
	ListAuthLogs(ctx context.Context, limit int) ([]models.AuthLogDB, error)
}

// LogsResponse represents the administrative audit log listing
// swagger:model LogsResponse
type LogsResponse struct {
	Logs []models.AuthLogDB `json:"logs"`
}

// NewListLogsHandler returns an HTTP handler for the administrative audit
// log listing, newest entries first. Role enforcement happens in the
// middleware chain.
// @Summary List authentication audit log
// @Description Returns up to 100 recent authentication attempts, newest first. Administrators only.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum number of entries (default 100)"
// @Success 200 {object} handlers.LogsResponse "Audit entries returned"
// @Failure 401 {object} handlers.ErrorResponse "Missing, malformed or expired token"
// @Failure 403 {object} handlers.ErrorResponse "Insufficient permissions"
// @Router /admin/logs [get]
func NewListLogsHandler(svc LogsLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Bad limits fall back to the default rather than erroring; the
		// repository clamps the upper bound.
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		entries, err := svc.ListAuthLogs(r.Context(), limit)
		if err != nil {
			logger.Log.Errorw("internal server error", "err", err)
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
			return
		}

		writeJSON(w, http.StatusOK, LogsResponse{Logs: entries})
	}
}
