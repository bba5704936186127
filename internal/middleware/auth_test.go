package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dizzybeaver/lambda-execution-engine/internal/config"
	"github.com/dizzybeaver/lambda-execution-engine/pkg/logger"
)

func createTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stdout"})
	require.NoError(t, err)
	return log
}

func signToken(t *testing.T, secret, issuer string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": issuer,
		"sub": "admin",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		cfg        config.AuthConfig
		authHeader string
		wantStatus int
	}{
		{
			name:       "disabled auth passes everything through",
			cfg:        config.AuthConfig{Enabled: false},
			authHeader: "",
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing header rejected",
			cfg:        config.AuthConfig{Enabled: true, SecretKey: "sekrit"},
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed header rejected",
			cfg:        config.AuthConfig{Enabled: true, SecretKey: "sekrit"},
			authHeader: "Token abc",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "bad signature rejected",
			cfg:        config.AuthConfig{Enabled: true, SecretKey: "sekrit"},
			authHeader: "Bearer invalid.token.here",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mw := NewAuthMiddleware(tt.cfg, createTestLogger(t))
			req := httptest.NewRequest(http.MethodGet, "/admin/breakers", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			mw.Handler(okHandler).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	t.Parallel()

	cfg := config.AuthConfig{Enabled: true, SecretKey: "sekrit", Issuer: "gateway"}
	mw := NewAuthMiddleware(cfg, createTestLogger(t))

	var reached bool
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/metrics", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "sekrit", "gateway"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached, "valid token should reach the protected handler")
}

func TestAuthMiddlewareRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	cfg := config.AuthConfig{Enabled: true, SecretKey: "sekrit", Issuer: "gateway"}
	mw := NewAuthMiddleware(cfg, createTestLogger(t))

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/metrics", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "sekrit", "somebody"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
