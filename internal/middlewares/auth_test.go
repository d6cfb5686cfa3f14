package middlewares

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/monitoringhub/auth-service/internal/jwt"
	"github.com/monitoringhub/auth-service/internal/models"
)

func userClaims() *jwt.Claims {
	return &jwt.Claims{
		UserID:    uuid.New(),
		Username:  "alice",
		Role:      models.RoleUser,
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name             string
		setup            func(auth *MockAuthorizer, rev *MockRevocationChecker)
		expectedStatus   int
		expectNextCalled bool
	}{
		{
			name: "no token",
			setup: func(auth *MockAuthorizer, rev *MockRevocationChecker) {
				auth.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).
					Return("", jwt.ErrNoAuthorizationHdr)
			},
			expectedStatus:   http.StatusUnauthorized,
			expectNextCalled: false,
		},
		{
			name: "invalid token",
			setup: func(auth *MockAuthorizer, rev *MockRevocationChecker) {
				auth.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).
					Return("sometoken", nil)
				auth.EXPECT().Authorize(gomock.Any(), "sometoken", "").
					Return(nil, jwt.ErrSignatureInvalid)
			},
			expectedStatus:   http.StatusUnauthorized,
			expectNextCalled: false,
		},
		{
			name: "expired token",
			setup: func(auth *MockAuthorizer, rev *MockRevocationChecker) {
				auth.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).
					Return("sometoken", nil)
				auth.EXPECT().Authorize(gomock.Any(), "sometoken", "").
					Return(nil, jwt.ErrTokenExpired)
			},
			expectedStatus:   http.StatusUnauthorized,
			expectNextCalled: false,
		},
		{
			name: "revoked token",
			setup: func(auth *MockAuthorizer, rev *MockRevocationChecker) {
				claims := userClaims()
				auth.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).
					Return("validtoken", nil)
				auth.EXPECT().Authorize(gomock.Any(), "validtoken", "").
					Return(claims, nil)
				rev.EXPECT().IsRevoked(gomock.Any(), claims.UserID, claims.IssuedAt).
					Return(true, nil)
			},
			expectedStatus:   http.StatusUnauthorized,
			expectNextCalled: false,
		},
		{
			name: "revocation check error fails open",
			setup: func(auth *MockAuthorizer, rev *MockRevocationChecker) {
				claims := userClaims()
				auth.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).
					Return("validtoken", nil)
				auth.EXPECT().Authorize(gomock.Any(), "validtoken", "").
					Return(claims, nil)
				rev.EXPECT().IsRevoked(gomock.Any(), claims.UserID, claims.IssuedAt).
					Return(false, errors.New("redis down"))
			},
			expectedStatus:   http.StatusOK,
			expectNextCalled: true,
		},
		{
			name: "valid token",
			setup: func(auth *MockAuthorizer, rev *MockRevocationChecker) {
				claims := userClaims()
				auth.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).
					Return("validtoken", nil)
				auth.EXPECT().Authorize(gomock.Any(), "validtoken", "").
					Return(claims, nil)
				rev.EXPECT().IsRevoked(gomock.Any(), claims.UserID, claims.IssuedAt).
					Return(false, nil)
			},
			expectedStatus:   http.StatusOK,
			expectNextCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockAuth := NewMockAuthorizer(ctrl)
			mockRev := NewMockRevocationChecker(ctrl)
			tt.setup(mockAuth, mockRev)

			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				// Claims must be available downstream.
				assert.NotNil(t, GetClaimsFromContext(r.Context()))
				w.WriteHeader(http.StatusOK)
			})

			handler := AuthMiddleware(mockAuth, mockRev)(next)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectNextCalled, nextCalled)
		})
	}
}

func TestAuthMiddleware_NilRevocationChecker(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := NewMockAuthorizer(ctrl)
	mockAuth.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).Return("t", nil)
	mockAuth.EXPECT().Authorize(gomock.Any(), "t", "").Return(userClaims(), nil)

	handler := AuthMiddleware(mockAuth, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name           string
		claims         *jwt.Claims
		requiredRole   string
		expectedStatus int
	}{
		{
			name:           "admin passes",
			claims:         &jwt.Claims{UserID: uuid.New(), Username: "admin", Role: models.RoleAdmin},
			requiredRole:   models.RoleAdmin,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "user is forbidden",
			claims:         &jwt.Claims{UserID: uuid.New(), Username: "alice", Role: models.RoleUser},
			requiredRole:   models.RoleAdmin,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "unauthenticated request",
			claims:         nil,
			requiredRole:   models.RoleAdmin,
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireRole(tt.requiredRole)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			if tt.claims != nil {
				req = req.WithContext(SetClaimsToContext(req.Context(), tt.claims))
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}
