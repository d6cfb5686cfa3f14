package handlers

import (
	"context"
	"net/http"

	"github.com/monitoringhub/auth-service/internal/logger"
	"github.com/monitoringhub/auth-service/internal/models"
)

// UsersLister defines the interface that the user listing service must implement.
type UsersLister interface {
	ListUsers(ctx context.Context) ([]models.UserInfo, error)
}

// UsersResponse represents the administrative user listing
// swagger:model UsersResponse
type UsersResponse struct {
	Users []models.UserInfo `json:"users"`
}

// NewListUsersHandler returns an HTTP handler for the administrative user
// listing. Role enforcement happens in the middleware chain.
// @Summary List users
// @Description Returns all user accounts, newest first. Administrators only.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} handlers.UsersResponse "User list returned"
// @Failure 401 {object} handlers.ErrorResponse "Missing, malformed or expired token"
// @Failure 403 {object} handlers.ErrorResponse "Insufficient permissions"
// @Router /admin/users [get]
func NewListUsersHandler(svc UsersLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := svc.ListUsers(r.Context())
		if err != nil {
			logger.Log.Errorw("internal server error", "err", err)
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
			return
		}

		writeJSON(w, http.StatusOK, UsersResponse{Users: users})
	}
}
