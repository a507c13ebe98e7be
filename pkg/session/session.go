// Package session owns the authenticated state of a portal visitor.
//
// A Session is created from a successful backend login, persisted in a Store
// (memory or Redis) and referenced from the browser only by its id, carried
// inside a signed gorilla/sessions cookie. Handlers read the current Session
// from the request context after Middleware.RequireSession has loaded it.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mananjary-mi/family-portal/pkg/models"
)

// Session is the server-side state of one logged-in visitor.
type Session struct {
	ID          uuid.UUID `json:"id"`
	AccessToken string    `json:"access_token"`
	UserID      int64     `json:"user_id"`
	UserType    string    `json:"user_type"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IsMember reports whether the session belongs to a community member
// (as opposed to an administrator account without a person record).
func (s *Session) IsMember() bool {
	return s.UserType == models.UserTypeUser
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}

// AccessToken returns the backend access token of the session in ctx.
func AccessToken(ctx context.Context) (string, bool) {
	s, ok := FromContext(ctx)
	if !ok || s.AccessToken == "" {
		return "", false
	}
	return s.AccessToken, true
}
