package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/golang-jwt/jwt/v4"

	"github.com/dizzybeaver/lambda-execution-engine/internal/errors"
	"github.com/dizzybeaver/lambda-execution-engine/internal/gateway"
)

// SecurityModule backs the SECURITY interface with token validation and
// hashing operations.
type SecurityModule struct {
	secretKey []byte
	issuer    string
}

// NewSecurityModule creates the module with the shared HMAC secret
func NewSecurityModule(secretKey, issuer string) *SecurityModule {
	return &SecurityModule{
		secretKey: []byte(secretKey),
		issuer:    issuer,
	}
}

// Handle dispatches one security operation
func (m *SecurityModule) Handle(operation string, params gateway.Params) (interface{}, error) {
	switch operation {
	case "validate_token":
		token, err := stringParam(params, "token")
		if err != nil {
			return nil, err
		}
		claims, err := m.validateToken(token)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"valid": true, "claims": claims}, nil

	case "hash":
		value, err := stringParam(params, "value")
		if err != nil {
			return nil, err
		}
		sum := sha256.Sum256([]byte(value))
		return hex.EncodeToString(sum[:]), nil

	default:
		return nil, fmt.Errorf("security module has no operation %q", operation)
	}
}

// validateToken parses and verifies an HS256 JWT
func (m *SecurityModule) validateToken(tokenString string) (jwt.MapClaims, error) {
	if len(m.secretKey) == 0 {
		return nil, errors.NewError(errors.ErrCodeAuthenticationFailed, "security", "no token secret configured")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeAuthenticationFailed, "security", "token validation failed")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.NewError(errors.ErrCodeAuthenticationFailed, "security", "token claims invalid")
	}

	if m.issuer != "" {
		if issuer, _ := claims["iss"].(string); issuer != m.issuer {
			return nil, errors.NewError(errors.ErrCodeAuthenticationFailed, "security", "token issuer mismatch")
		}
	}
	return claims, nil
}
