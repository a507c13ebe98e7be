// Package testhelpers provides utilities for testing family portal components.
package testhelpers

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateTestToken creates an unsigned backend access token (alg: none),
// accepted when token verification is disabled.
func GenerateTestToken(userID int64, userType, email string, expiresAt time.Time) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))

	payload := fmt.Sprintf(`{"user_id":%d,"user_type":"%s","exp":%d`, userID, userType, expiresAt.Unix())
	if email != "" {
		payload += fmt.Sprintf(`,"email":"%s"`, email)
	}
	payload += "}"

	encodedPayload := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return fmt.Sprintf("%s.%s.", header, encodedPayload)
}

// SignTestToken creates an HS256 backend access token signed with secret,
// shaped like the tokens the community backend issues.
func SignTestToken(secret string, userID int64, userType, email string, expiresAt time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   userID,
		"user_type": userType,
		"email":     email,
		"exp":       expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		panic(fmt.Sprintf("sign test token: %v", err))
	}
	return signed
}
