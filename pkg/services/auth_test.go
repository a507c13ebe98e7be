package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mananjary-mi/family-portal/pkg/apperrors"
	"github.com/mananjary-mi/family-portal/pkg/models"
	"github.com/mananjary-mi/family-portal/pkg/session"
)

// mockBackendAuth is a configurable BackendAuth.
type mockBackendAuth struct {
	result    *models.LoginResult
	loginErr  error
	logoutErr error

	capturedEmail    string
	capturedUserType string
	logoutToken      string
}

func (m *mockBackendAuth) Login(_ context.Context, email, _ string, userType string) (*models.LoginResult, error) {
	m.capturedEmail = email
	m.capturedUserType = userType
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.result, nil
}

func (m *mockBackendAuth) Logout(ctx context.Context) error {
	m.logoutToken, _ = session.AccessToken(ctx)
	return m.logoutErr
}

// mockSessionManager is a configurable session.Manager.
type mockSessionManager struct {
	created    *session.Session
	createErr  error
	destroyErr error

	capturedLogin models.LoginResult
	destroyed     []uuid.UUID
}

func (m *mockSessionManager) Create(_ context.Context, login models.LoginResult) (*session.Session, error) {
	m.capturedLogin = login
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.created, nil
}

func (m *mockSessionManager) Get(context.Context, uuid.UUID) (*session.Session, error) {
	return nil, apperrors.ErrSessionNotFound
}

func (m *mockSessionManager) Destroy(_ context.Context, id uuid.UUID) error {
	m.destroyed = append(m.destroyed, id)
	return m.destroyErr
}

func TestAuthService_Login(t *testing.T) {
	login := &models.LoginResult{AccessToken: "backend-token", Account: models.Account{ID: 2, Email: "jean@example.mg"}}
	sess := &session.Session{ID: uuid.New(), UserID: 2, Email: "jean@example.mg", ExpiresAt: time.Now().Add(time.Hour)}
	backend := &mockBackendAuth{result: login}
	manager := &mockSessionManager{created: sess}
	service := NewAuthService(backend, manager, zap.NewNop())

	got, err := service.Login(context.Background(), "jean@example.mg", "secret", "user")
	require.NoError(t, err)

	assert.Same(t, sess, got)
	assert.Equal(t, "jean@example.mg", backend.capturedEmail)
	assert.Equal(t, "user", backend.capturedUserType)
	assert.Equal(t, *login, manager.capturedLogin)
}

func TestAuthService_Login_BackendRejects(t *testing.T) {
	manager := &mockSessionManager{}
	service := NewAuthService(&mockBackendAuth{loginErr: apperrors.ErrInvalidCredentials}, manager, zap.NewNop())

	_, err := service.Login(context.Background(), "jean@example.mg", "wrong", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	assert.Zero(t, manager.capturedLogin.AccessToken)
}

func TestAuthService_Login_SessionRejects(t *testing.T) {
	backend := &mockBackendAuth{result: &models.LoginResult{AccessToken: "t"}}
	manager := &mockSessionManager{createErr: apperrors.ErrUnauthorized}
	service := NewAuthService(backend, manager, zap.NewNop())

	_, err := service.Login(context.Background(), "jean@example.mg", "secret", "")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestAuthService_Logout(t *testing.T) {
	sess := &session.Session{ID: uuid.New(), AccessToken: "backend-token"}
	backend := &mockBackendAuth{logoutErr: errors.New("connection refused")}
	manager := &mockSessionManager{}
	service := NewAuthService(backend, manager, zap.NewNop())

	// a backend failure does not keep the portal session open
	require.NoError(t, service.Logout(context.Background(), sess))
	assert.Equal(t, "backend-token", backend.logoutToken)
	assert.Equal(t, []uuid.UUID{sess.ID}, manager.destroyed)
}

func TestAuthService_Logout_StoreFailure(t *testing.T) {
	manager := &mockSessionManager{destroyErr: errors.New("redis down")}
	service := NewAuthService(&mockBackendAuth{}, manager, zap.NewNop())

	err := service.Logout(context.Background(), &session.Session{ID: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}
