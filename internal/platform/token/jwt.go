package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"placet/internal/platform/middleware"
)

// HMACValidator validates HS256 bearer tokens issued by the surrounding
// identity infrastructure. Only the claims this service consumes are mapped.
type HMACValidator struct {
	key []byte
}

func NewHMACValidator(signingKey string) *HMACValidator {
	return &HMACValidator{key: []byte(signingKey)}
}

func (v *HMACValidator) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	out := &middleware.JWTClaims{}
	if sub, err := claims.GetSubject(); err == nil {
		out.UserID = sub
	}
	if cid, ok := claims["client_id"].(string); ok {
		out.ClientID = cid
	}
	return out, nil
}
