package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mananjary-mi/family-portal/pkg/logging"
	"github.com/mananjary-mi/family-portal/pkg/models"
	"github.com/mananjary-mi/family-portal/pkg/session"
)

// BackendAuth is the part of the backend client used for logging in and out.
type BackendAuth interface {
	Login(ctx context.Context, email, password, userType string) (*models.LoginResult, error)
	Logout(ctx context.Context) error
}

// AuthService defines the interface for portal login and logout.
type AuthService interface {
	// Login authenticates against the backend and opens a portal session.
	Login(ctx context.Context, email, password, userType string) (*session.Session, error)
	// Logout closes the session. Backend failures are logged, never returned.
	Logout(ctx context.Context, sess *session.Session) error
}

type authService struct {
	backend  BackendAuth
	sessions session.Manager
	logger   *zap.Logger
}

var _ AuthService = (*authService)(nil)

// NewAuthService creates an auth service.
func NewAuthService(backend BackendAuth, sessions session.Manager, logger *zap.Logger) AuthService {
	return &authService{
		backend:  backend,
		sessions: sessions,
		logger:   logger.Named("auth"),
	}
}

func (s *authService) Login(ctx context.Context, email, password, userType string) (*session.Session, error) {
	result, err := s.backend.Login(ctx, email, password, userType)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Create(ctx, *result)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	s.logger.Info("User logged in",
		zap.Int64("user_id", sess.UserID),
		zap.String("user_type", sess.UserType),
		zap.String("email", logging.RedactEmail(sess.Email)))
	return sess, nil
}

func (s *authService) Logout(ctx context.Context, sess *session.Session) error {
	if err := s.backend.Logout(session.NewContext(ctx, sess)); err != nil {
		s.logger.Warn("Backend logout failed",
			zap.Int64("user_id", sess.UserID),
			zap.String("error", logging.SanitizeError(err)))
	}
	if err := s.sessions.Destroy(ctx, sess.ID); err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}
