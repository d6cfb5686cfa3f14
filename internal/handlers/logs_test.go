package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/monitoringhub/auth-service/internal/models"
)

func TestListLogsHandler(t *testing.T) {
	username := "john_doe"
	entries := []models.AuthLogDB{
		{
			ID:        2,
			Username:  &username,
			Action:    models.ActionLogin,
			Success:   true,
			IPAddress: "203.0.113.7",
			UserAgent: "curl/8.0",
			Timestamp: time.Now().UTC().Truncate(time.Second),
		},
		{
			ID:        1,
			Username:  nil,
			Action:    models.ActionLoginFailed,
			Success:   false,
			IPAddress: "203.0.113.8",
			UserAgent: "curl/8.0",
			Timestamp: time.Now().UTC().Truncate(time.Second),
		},
	}

	tests := []struct {
		name          string
		target        string
		expectedLimit int
		mockSetup     func(svc *MockLogsLister, limit int)
		expectedCode  int
		expectLogs    int
	}{
		{
			name:          "default limit",
			target:        "/admin/logs",
			expectedLimit: 0,
			mockSetup: func(svc *MockLogsLister, limit int) {
				svc.EXPECT().ListAuthLogs(gomock.Any(), limit).Return(entries, nil)
			},
			expectedCode: http.StatusOK,
			expectLogs:   2,
		},
		{
			name:          "explicit limit",
			target:        "/admin/logs?limit=1",
			expectedLimit: 1,
			mockSetup: func(svc *MockLogsLister, limit int) {
				svc.EXPECT().ListAuthLogs(gomock.Any(), limit).Return(entries[:1], nil)
			},
			expectedCode: http.StatusOK,
			expectLogs:   1,
		},
		{
			// Garbage limits fall back to the default instead of erroring.
			name:          "non numeric limit",
			target:        "/admin/logs?limit=abc",
			expectedLimit: 0,
			mockSetup: func(svc *MockLogsLister, limit int) {
				svc.EXPECT().ListAuthLogs(gomock.Any(), limit).Return(entries, nil)
			},
			expectedCode: http.StatusOK,
			expectLogs:   2,
		},
		{
			name:          "internal error",
			target:        "/admin/logs",
			expectedLimit: 0,
			mockSetup: func(svc *MockLogsLister, limit int) {
				svc.EXPECT().ListAuthLogs(gomock.Any(), limit).Return(nil, errors.New("database error"))
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockSvc := NewMockLogsLister(ctrl)
			tt.mockSetup(mockSvc, tt.expectedLimit)

			w := httptest.NewRecorder()
			NewListLogsHandler(mockSvc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedCode == http.StatusOK {
				var resp LogsResponse
				assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Len(t, resp.Logs, tt.expectLogs)
			}
		})
	}
}
