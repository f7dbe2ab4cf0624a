package handlers_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avery/hireflow/internal/api/dto"
	"github.com/avery/hireflow/internal/api/handlers"
	"github.com/avery/hireflow/internal/auth"
	"github.com/avery/hireflow/internal/membership"
	"github.com/avery/hireflow/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupAuthTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)

	ledger := membership.NewService(tc.DB, discardLogger())
	authService := auth.NewService(tc.DB, tc.JWTService, ledger)
	handler := handlers.NewAuthHandler(authService)

	r := chi.NewRouter()
	r.Post("/api/v1/auth/register", handler.Register)
	r.Post("/api/v1/auth/login", handler.Login)
	r.Post("/api/v1/auth/logout", handler.Logout)

	return r, tc
}

func TestAuthHandler_Register(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
	}{
		{
			name: "valid registration",
			body: map[string]interface{}{
				"email":        "founder@example.com",
				"password":     "supersecret",
				"name":         "Founder",
				"company_name": "Acme",
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "duplicate email",
			body: map[string]interface{}{
				"email":    "founder@example.com",
				"password": "supersecret",
				"name":     "Imposter",
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "short password",
			body: map[string]interface{}{
				"email":    "other@example.com",
				"password": "short",
				"name":     "Other",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "missing email",
			body: map[string]interface{}{
				"password": "supersecret",
				"name":     "NoEmail",
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/register", tt.body)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code, "Body: %s", rr.Body.String())

			if tt.wantStatus == http.StatusCreated {
				var resp dto.AuthResponse
				testutil.ParseJSONResponse(t, rr, &resp)
				assert.NotEmpty(t, resp.Token)
				assert.Equal(t, "admin", resp.User.Role)
				assert.Equal(t, "Acme", resp.User.CompanyName)
			}
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", map[string]interface{}{
		"email":    tc.Admin.Email,
		"password": "testpassword123",
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, "Body: %s", rr.Body.String())

	var resp dto.AuthResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, tc.Company.ID.String(), resp.User.CompanyID)

	// Wrong credentials
	req = testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", map[string]interface{}{
		"email":    tc.Admin.Email,
		"password": "wrong",
	})
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
