package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/roomrent/backend/internal/models"
	"github.com/roomrent/backend/internal/services"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRevocation struct {
	mock.Mock
}

func (m *MockRevocation) IsBlacklisted(ctx context.Context, token string) bool {
	return m.Called(token).Bool(0)
}

type MockStandingEvaluator struct {
	mock.Mock
}

func (m *MockStandingEvaluator) EvaluateStanding(ctx context.Context, accountID string) (*models.Account, error) {
	args := m.Called(accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func signToken(t *testing.T, userID, role string) string {
	viper.Set("jwt.secret_key", "middleware-secret")
	claims := services.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("middleware-secret"))
	require.NoError(t, err)
	return token
}

func sessionEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.SessionFrom(r.Context()))
	})
}

func TestInitAuthMiddleware(t *testing.T) {
	token := signToken(t, "seeker-1", "seeker")

	tests := []struct {
		name       string
		header     string
		query      string
		revoked    bool
		wantStatus int
	}{
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "revoked token", header: "Bearer " + token, revoked: true, wantStatus: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer " + token, wantStatus: http.StatusOK},
		{name: "query token for event streams", query: "?access_token=" + token, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			revocation := &MockRevocation{}
			revocation.On("IsBlacklisted", token).Return(tt.revoked).Maybe()

			r := httptest.NewRequest("GET", "/api/v1/bookings"+tt.query, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			InitAuthMiddleware(revocation)(sessionEcho()).ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				var session models.Session
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
				assert.Equal(t, "seeker-1", session.AccountID)
				assert.Equal(t, models.RoleSeeker, session.Role)
			}
		})
	}
}

func TestRequireAccess(t *testing.T) {
	seeker := &models.Session{AccountID: "seeker-1", Role: models.RoleSeeker}

	tests := []struct {
		name       string
		session    *models.Session
		account    *models.Account
		allowed    []models.Role
		wantStatus int
	}{
		{name: "no session", wantStatus: http.StatusUnauthorized},
		{
			name:       "active seeker",
			session:    seeker,
			account:    &models.Account{ID: "seeker-1", Role: models.RoleSeeker, IsAccountActive: true},
			allowed:    []models.Role{models.RoleSeeker},
			wantStatus: http.StatusOK,
		},
		{
			name:       "provider-only route",
			session:    seeker,
			account:    &models.Account{ID: "seeker-1", Role: models.RoleSeeker, IsAccountActive: true},
			allowed:    []models.Role{models.RoleProvider},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "deactivated account",
			session:    seeker,
			account:    &models.Account{ID: "seeker-1", Role: models.RoleSeeker},
			wantStatus: http.StatusPaymentRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &MockStandingEvaluator{}
			if tt.account != nil {
				ledger.On("EvaluateStanding", tt.account.ID).Return(tt.account, nil)
			}
			gate := services.NewAccessGate(ledger)

			r := httptest.NewRequest("GET", "/api/v1/bookings", nil)
			if tt.session != nil {
				r = r.WithContext(models.WithSession(r.Context(), tt.session))
			}
			w := httptest.NewRecorder()

			RequireAccess(gate, tt.allowed...)(sessionEcho()).ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusPaymentRequired {
				assert.Equal(t, services.DuesPath, w.Header().Get("Location"))
				var body DeactivatedResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, "ACCOUNT_DEACTIVATED", body.Code)
				assert.Equal(t, services.DuesPath, body.Redirect)
			}
		})
	}

	t.Run("store failure", func(t *testing.T) {
		ledger := &MockStandingEvaluator{}
		ledger.On("EvaluateStanding", "seeker-1").Return(nil, services.ErrTransient)

		r := httptest.NewRequest("GET", "/api/v1/bookings", nil)
		r = r.WithContext(models.WithSession(r.Context(), seeker))
		w := httptest.NewRecorder()

		RequireAccess(services.NewAccessGate(ledger))(sessionEcho()).ServeHTTP(w, r)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestSecurityHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	SecurityHeaders(sessionEcho()).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}
