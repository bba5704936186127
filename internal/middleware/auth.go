// Package middleware provides HTTP middleware for the gateway's admin and
// directive surfaces.
package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/dizzybeaver/lambda-execution-engine/internal/config"
	"github.com/dizzybeaver/lambda-execution-engine/pkg/logger"
)

// AuthMiddleware validates HS256 bearer tokens on protected routes.
// When auth is disabled in configuration it passes every request through.
type AuthMiddleware struct {
	cfg    config.AuthConfig
	logger *logger.Logger
}

// NewAuthMiddleware creates a bearer-token middleware from the auth section
// of the gateway configuration.
func NewAuthMiddleware(cfg config.AuthConfig, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		cfg:    cfg,
		logger: log.MiddlewareLogger("auth"),
	}
}

// Handler wraps next with bearer-token validation.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r)
		if err != nil {
			m.reject(w, r, err)
			return
		}

		claims := jwt.MapClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(m.cfg.SecretKey), nil
		})
		if err != nil || !parsed.Valid {
			m.reject(w, r, fmt.Errorf("invalid token"))
			return
		}

		if m.cfg.Issuer != "" && !claims.VerifyIssuer(m.cfg.Issuer, true) {
			m.reject(w, r, fmt.Errorf("invalid token issuer"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	m.logger.WithFields(map[string]interface{}{
		"path":        r.URL.Path,
		"remote_addr": r.RemoteAddr,
	}).WithError(err).Warn("Request rejected by auth middleware")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": "unauthorized",
	})
}

// extractBearerToken pulls the token out of the Authorization header.
func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("malformed authorization header")
	}
	return parts[1], nil
}
