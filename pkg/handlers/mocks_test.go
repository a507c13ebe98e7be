package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mananjary-mi/family-portal/pkg/apperrors"
	"github.com/mananjary-mi/family-portal/pkg/models"
	"github.com/mananjary-mi/family-portal/pkg/services"
	"github.com/mananjary-mi/family-portal/pkg/session"
)

// mockAuthService is a configurable AuthService.
type mockAuthService struct {
	session   *session.Session
	loginErr  error
	logoutErr error

	mu        sync.Mutex
	logins    []string
	loggedOut []uuid.UUID
}

var _ services.AuthService = (*mockAuthService)(nil)

func (m *mockAuthService) Login(_ context.Context, email, _, _ string) (*session.Session, error) {
	m.mu.Lock()
	m.logins = append(m.logins, email)
	m.mu.Unlock()
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.session, nil
}

func (m *mockAuthService) Logout(_ context.Context, sess *session.Session) error {
	m.mu.Lock()
	m.loggedOut = append(m.loggedOut, sess.ID)
	m.mu.Unlock()
	return m.logoutErr
}

// mockFamilyService serves canned views keyed by root id.
type mockFamilyService struct {
	views   map[int64]*models.FamilyView
	rows    []models.RelationRow
	viewErr error
	rowsErr error

	mu         sync.Mutex
	roots      []int64
	rowFilters []*int64
}

var _ services.FamilyTreeService = (*mockFamilyService)(nil)

func (m *mockFamilyService) GetFamilyView(_ context.Context, rootID int64) (*models.FamilyView, error) {
	m.mu.Lock()
	m.roots = append(m.roots, rootID)
	m.mu.Unlock()
	if m.viewErr != nil {
		return nil, m.viewErr
	}
	view, ok := m.views[rootID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return view, nil
}

func (m *mockFamilyService) ListRelationRows(_ context.Context, forUser *int64) ([]models.RelationRow, error) {
	m.mu.Lock()
	m.rowFilters = append(m.rowFilters, forUser)
	m.mu.Unlock()
	if m.rowsErr != nil {
		return nil, m.rowsErr
	}
	return m.rows, nil
}

// mockSessionManager hands out sessions from a map.
type mockSessionManager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session.Session
}

var _ session.Manager = (*mockSessionManager)(nil)

func newMockSessionManager(sessions ...*session.Session) *mockSessionManager {
	m := &mockSessionManager{sessions: make(map[uuid.UUID]*session.Session)}
	for _, s := range sessions {
		m.sessions[s.ID] = s
	}
	return m
}

func (m *mockSessionManager) Create(_ context.Context, login models.LoginResult) (*session.Session, error) {
	s := testSession(login.Account.ID)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

func (m *mockSessionManager) Get(_ context.Context, id uuid.UUID) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	return s, nil
}

func (m *mockSessionManager) Destroy(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func testSession(userID int64) *session.Session {
	now := time.Now()
	return &session.Session{
		ID:          uuid.New(),
		AccessToken: "backend-token",
		UserID:      userID,
		UserType:    models.UserTypeUser,
		Email:       "rakoto@example.mg",
		DisplayName: "Jean Rakoto",
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}
}

func testPerson(id int64, first, last, gender string) models.Person {
	return models.Person{ID: id, FirstName: first, LastName: last, Gender: gender}
}
