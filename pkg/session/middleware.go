package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mananjary-mi/family-portal/pkg/apperrors"
)

// Middleware loads the visitor's session for protected routes.
type Middleware struct {
	manager Manager
	cookie  *Cookie
	logger  *zap.Logger
}

// NewMiddleware creates the session middleware.
func NewMiddleware(manager Manager, cookie *Cookie, logger *zap.Logger) *Middleware {
	return &Middleware{
		manager: manager,
		cookie:  cookie,
		logger:  logger.Named("session-middleware"),
	}
}

// RequireSession rejects requests without a live session with 401 and
// otherwise places the session in the request context.
func (m *Middleware) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := m.cookie.SessionID(r)
		if err != nil {
			m.unauthorized(w, "session_required", "Authentication required")
			return
		}

		s, err := m.manager.Get(r.Context(), id)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrSessionExpired):
			if clearErr := m.cookie.Clear(w, r); clearErr != nil {
				m.logger.Debug("Failed to clear expired session cookie", zap.Error(clearErr))
			}
			m.unauthorized(w, "session_expired", "Session expired, please log in again")
			return
		case errors.Is(err, apperrors.ErrSessionNotFound):
			m.unauthorized(w, "session_required", "Authentication required")
			return
		default:
			m.logger.Error("Failed to load session",
				zap.String("session_id", id.String()),
				zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "internal_error",
				"message": "Failed to load session",
			})
			return
		}

		next(w, r.WithContext(NewContext(r.Context(), s)))
	}
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
