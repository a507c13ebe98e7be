package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mananjary-mi/family-portal/pkg/apperrors"
	"github.com/mananjary-mi/family-portal/pkg/models"
)

// Manager owns the session lifecycle: created on login, read on every
// authenticated request, destroyed on logout.
type Manager interface {
	// Create verifies the backend token of login and stores a new session.
	Create(ctx context.Context, login models.LoginResult) (*Session, error)

	// Get returns a live session. Expired sessions are deleted and reported
	// as apperrors.ErrSessionExpired.
	Get(ctx context.Context, id uuid.UUID) (*Session, error)

	// Destroy deletes the session. Destroying an unknown session is not an error.
	Destroy(ctx context.Context, id uuid.UUID) error
}

type manager struct {
	store    Store
	verifier TokenVerifier
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

var _ Manager = (*manager)(nil)

// NewManager creates a Manager. Sessions live at most ttl, or less if the
// backend token expires earlier.
func NewManager(store Store, verifier TokenVerifier, ttl time.Duration, logger *zap.Logger) Manager {
	return &manager{
		store:    store,
		verifier: verifier,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger.Named("session"),
	}
}

func (m *manager) Create(ctx context.Context, login models.LoginResult) (*Session, error) {
	claims, err := m.verifier.Verify(ctx, login.AccessToken)
	if err != nil {
		m.logger.Warn("Rejected backend access token", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}

	if login.Account.ID != 0 && login.Account.ID != claims.UserID {
		m.logger.Warn("Login account does not match token subject",
			zap.Int64("account_id", login.Account.ID),
			zap.Int64("token_user_id", claims.UserID))
		return nil, fmt.Errorf("%w: account does not match token", apperrors.ErrUnauthorized)
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)
	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(expiresAt) {
		expiresAt = claims.ExpiresAt.Time
	}
	if !now.Before(expiresAt) {
		return nil, apperrors.ErrSessionExpired
	}

	userType := login.Account.UserType
	if userType == "" {
		userType = claims.UserType
	}
	email := login.Account.Email
	if email == "" {
		email = claims.Email
	}

	s := &Session{
		ID:          uuid.New(),
		AccessToken: login.AccessToken,
		UserID:      claims.UserID,
		UserType:    userType,
		Email:       email,
		DisplayName: login.Account.DisplayName(),
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}
	if s.DisplayName == "" {
		s.DisplayName = email
	}

	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	m.logger.Info("Session created",
		zap.String("session_id", s.ID.String()),
		zap.Int64("user_id", s.UserID),
		zap.String("user_type", s.UserType),
		zap.Time("expires_at", s.ExpiresAt))

	return s, nil
}

func (m *manager) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.Expired(m.now()) {
		if err := m.store.Delete(ctx, id); err != nil {
			m.logger.Error("Failed to delete expired session",
				zap.String("session_id", id.String()),
				zap.Error(err))
		}
		return nil, apperrors.ErrSessionExpired
	}

	return s, nil
}

func (m *manager) Destroy(ctx context.Context, id uuid.UUID) error {
	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, apperrors.ErrSessionNotFound) {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	m.logger.Info("Session destroyed", zap.String("session_id", id.String()))
	return nil
}
