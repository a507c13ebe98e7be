package session

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the payload of an access token issued by the community backend.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"user_id"`
	UserType string `json:"user_type"`
	Email    string `json:"email,omitempty"`
}
