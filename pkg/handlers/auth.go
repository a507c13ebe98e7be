package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mananjary-mi/family-portal/pkg/audit"
	"github.com/mananjary-mi/family-portal/pkg/services"
	"github.com/mananjary-mi/family-portal/pkg/session"
)

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=150"`
	Password string `json:"password" validate:"required,max=256"`
	UserType string `json:"user_type,omitempty" validate:"omitempty,oneof=super_admin admin user"`
}

// SessionResponse describes the logged-in visitor.
type SessionResponse struct {
	UserID      int64     `json:"user_id"`
	UserType    string    `json:"user_type"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// LogoutResponse is returned by POST /api/auth/logout.
type LogoutResponse struct {
	Message string `json:"message"`
}

func newSessionResponse(s *session.Session) SessionResponse {
	return SessionResponse{
		UserID:      s.UserID,
		UserType:    s.UserType,
		Email:       s.Email,
		DisplayName: s.DisplayName,
		ExpiresAt:   s.ExpiresAt,
	}
}

// AuthHandler handles login, logout and session lookup.
type AuthHandler struct {
	authService services.AuthService
	cookie      *session.Cookie
	auditor     *audit.SecurityAuditor
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService services.AuthService, cookie *session.Cookie, auditor *audit.SecurityAuditor, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
		auditor:     auditor,
		logger:      logger,
	}
}

// RegisterRoutes registers the auth handler's routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, sessionMiddleware *session.Middleware) {
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/logout", sessionMiddleware.RequireSession(h.Logout))
	mux.HandleFunc("GET /api/auth/session", sessionMiddleware.RequireSession(h.Session))
}

// Login handles POST /api/auth/login.
// It authenticates against the community backend, opens a session and binds
// it to the visitor through a signed cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !DecodeAndValidate(w, r, &req, h.logger) {
		return
	}

	sess, err := h.authService.Login(r.Context(), req.Email, req.Password, req.UserType)
	if err != nil {
		h.auditor.LogLoginFailed(r.Context(), req.Email, err, r.RemoteAddr)
		writeServiceError(w, r, h.logger, err, "not_found")
		return
	}

	if err := h.cookie.Bind(w, r, sess.ID); err != nil {
		h.logger.Error("Failed to set session cookie", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to start session"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	h.auditor.LogLoginSucceeded(r.Context(), sess, r.RemoteAddr)

	if err := WriteJSON(w, http.StatusOK, newSessionResponse(sess)); err != nil {
		h.logger.Error("Failed to encode login response", zap.Error(err))
	}
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		if err := ErrorResponse(w, http.StatusUnauthorized, "session_required", "Authentication required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.authService.Logout(r.Context(), sess); err != nil {
		writeServiceError(w, r, h.logger, err, "not_found")
		return
	}

	h.auditor.LogLogout(r.Context(), r.RemoteAddr)

	if err := h.cookie.Clear(w, r); err != nil {
		h.logger.Warn("Failed to clear session cookie", zap.Error(err))
	}

	if err := WriteJSON(w, http.StatusOK, LogoutResponse{Message: "Logged out"}); err != nil {
		h.logger.Error("Failed to encode logout response", zap.Error(err))
	}
}

// Session handles GET /api/auth/session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		if err := ErrorResponse(w, http.StatusUnauthorized, "session_required", "Authentication required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, newSessionResponse(sess)); err != nil {
		h.logger.Error("Failed to encode session response", zap.Error(err))
	}
}
