package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/monitoringhub/auth-service/internal/services"
)

func TestRegisterHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := NewMockRegisterer(ctrl)

	tests := []struct {
		name         string
		inputBody    interface{}
		mockSetup    func()
		expectedCode int
		expectedBody interface{}
	}{
		{
			name: "success",
			inputBody: RegisterRequest{
				Username: "john_doe",
				Email:    "john@example.com",
				Password: "secret123",
			},
			mockSetup: func() {
				mockSvc.EXPECT().
					Register(gomock.Any(), "john_doe", "john@example.com", "secret123", "").
					Return(nil)
			},
			expectedCode: http.StatusCreated,
			expectedBody: &RegisterResponse{
				Message: "User registered successfully",
			},
		},
		{
			name:         "invalid JSON",
			inputBody:    "{invalid json}",
			mockSetup:    func() {},
			expectedCode: http.StatusBadRequest,
			expectedBody: &ErrorResponse{
				Error: "Required fields: username, email, password",
			},
		},
		{
			name: "missing fields",
			inputBody: RegisterRequest{
				Username: "john_doe",
			},
			mockSetup: func() {
				mockSvc.EXPECT().
					Register(gomock.Any(), "john_doe", "", "", "").
					Return(services.ErrValidation)
			},
			expectedCode: http.StatusBadRequest,
			expectedBody: &ErrorResponse{
				Error: "Required fields: username, email, password",
			},
		},
		{
			name: "duplicate username or email",
			inputBody: RegisterRequest{
				Username: "john_doe",
				Email:    "john@example.com",
				Password: "secret123",
			},
			mockSetup: func() {
				mockSvc.EXPECT().
					Register(gomock.Any(), "john_doe", "john@example.com", "secret123", "").
					Return(services.ErrUserAlreadyExists)
			},
			expectedCode: http.StatusBadRequest,
			expectedBody: &ErrorResponse{
				Error: "Username or email already exists",
			},
		},
		{
			name: "internal error",
			inputBody: RegisterRequest{
				Username: "john_doe",
				Email:    "john@example.com",
				Password: "secret123",
			},
			mockSetup: func() {
				mockSvc.EXPECT().
					Register(gomock.Any(), "john_doe", "john@example.com", "secret123", "").
					Return(errors.New("database error"))
			},
			expectedCode: http.StatusInternalServerError,
			expectedBody: &ErrorResponse{
				Error: "Internal server error",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()

			var bodyBytes []byte
			switch v := tt.inputBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				bodyBytes, _ = json.Marshal(v)
			}

			req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(bodyBytes))
			w := httptest.NewRecorder()

			handler := NewRegisterHandler(mockSvc)
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedCode, w.Code)

			var respBody interface{}
			switch tt.expectedCode {
			case http.StatusCreated:
				respBody = &RegisterResponse{}
			default:
				respBody = &ErrorResponse{}
			}
			err := json.Unmarshal(w.Body.Bytes(), respBody)
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedBody, respBody)
		})
	}
}
