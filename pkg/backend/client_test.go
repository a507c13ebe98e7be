package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mananjary-mi/family-portal/pkg/apperrors"
	"github.com/mananjary-mi/family-portal/pkg/config"
	"github.com/mananjary-mi/family-portal/pkg/models"
	"github.com/mananjary-mi/family-portal/pkg/retry"
	"github.com/mananjary-mi/family-portal/pkg/session"
)

// recordingObserver captures ObserveBackendRequest calls.
type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveBackendRequest(operation string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, fmt.Sprintf("%s:%d", operation, status))
}

func fastRetry() *retry.Config {
	return &retry.Config{
		MaxRetries:       2,
		InitialDelay:     time.Millisecond,
		MaxDelay:         5 * time.Millisecond,
		Multiplier:       2,
		MaxSameErrorType: 5,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.BackendConfig{URL: server.URL, Timeout: 5 * time.Second, MaxRetries: 2}
	opts = append([]Option{WithRetryConfig(fastRetry())}, opts...)
	return NewClient(cfg, zap.NewNop(), opts...)
}

func withToken(token string) context.Context {
	return session.NewContext(context.Background(), &session.Session{AccessToken: token})
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestClient_Login(t *testing.T) {
	var got loginRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		writeJSON(t, w, http.StatusOK, map[string]any{
			"access_token": "backend-token",
			"token_type":   "bearer",
			"user_type":    "user",
			"user_data": map[string]any{
				"id":          2,
				"nom":         "Rakoto",
				"prenom":      "Jean",
				"email":       "jean@example.mg",
				"id_tragnobe": 4,
				"statut":      "valide",
			},
		})
	})

	result, err := client.Login(context.Background(), "jean@example.mg", "secret", "")
	require.NoError(t, err)

	assert.Equal(t, "jean@example.mg", got.Email)
	assert.Equal(t, "secret", got.Password)
	assert.Nil(t, got.UserType)

	assert.Equal(t, "backend-token", result.AccessToken)
	assert.Equal(t, int64(2), result.Account.ID)
	assert.Equal(t, models.UserTypeUser, result.Account.UserType)
	assert.Equal(t, "Jean Rakoto", result.Account.DisplayName())
	require.NotNil(t, result.Account.TragnobeID)
	assert.Equal(t, int64(4), *result.Account.TragnobeID)
	assert.Equal(t, "valide", result.Account.Status)
}

func TestClient_Login_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"wrong password", http.StatusUnauthorized, apperrors.ErrInvalidCredentials},
		{"account pending validation", http.StatusForbidden, apperrors.ErrForbidden},
		{"backend down", http.StatusServiceUnavailable, apperrors.ErrBackendUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				writeJSON(t, w, tt.status, map[string]string{"detail": "Email ou mot de passe incorrect"})
			})

			_, err := client.Login(context.Background(), "jean@example.mg", "wrong", "user")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), "Email ou mot de passe incorrect")
			// login is never retried
			assert.Equal(t, 1, calls)
		})
	}
}

func TestClient_Login_MissingToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"user_type": "user"})
	})

	_, err := client.Login(context.Background(), "jean@example.mg", "secret", "")
	require.Error(t, err)
}

func TestClient_Logout(t *testing.T) {
	var auth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/logout", r.URL.Path)
		auth = r.Header.Get("Authorization")
		writeJSON(t, w, http.StatusOK, map[string]string{"message": "Déconnexion réussie"})
	})

	require.NoError(t, client.Logout(withToken("t0k3n")))
	assert.Equal(t, "Bearer t0k3n", auth)
}

func TestClient_ListPersons(t *testing.T) {
	observer := &recordingObserver{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/", r.URL.Path)
		assert.Equal(t, "Bearer t0k3n", r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, []map[string]any{
			{"id": 1, "nom": "Rakoto", "prenom": "Paul", "genre": "H", "annee_naissance": 1950},
			{"id": 2, "nom": "Rakoto", "prenom": "Jean", "genre": "homme", "date_naissance": "1978-04-12T00:00:00", "photo": "/uploads/2.jpg"},
			{"id": 3, "nom": "Rasoa", "prenom": "Vola", "genre": "F"},
		})
	}, WithObserver(observer))

	persons, err := client.ListPersons(withToken("t0k3n"))
	require.NoError(t, err)
	require.Len(t, persons, 3)

	assert.Equal(t, "Paul Rakoto", persons[0].DisplayName())
	require.NotNil(t, persons[0].BirthYear)
	assert.Equal(t, 1950, *persons[0].BirthYear)

	assert.Equal(t, models.GenderMale, persons[1].Gender)
	require.NotNil(t, persons[1].BirthYear)
	assert.Equal(t, 1978, *persons[1].BirthYear)
	require.NotNil(t, persons[1].Photo)
	assert.Equal(t, "/uploads/2.jpg", *persons[1].Photo)

	assert.Equal(t, models.GenderFemale, persons[2].Gender)
	assert.Nil(t, persons[2].BirthYear)

	assert.Equal(t, []string{"list_persons:200"}, observer.calls)
}

func TestClient_ListPersons_Paginates(t *testing.T) {
	var skips []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		assert.Equal(t, strconv.Itoa(PageSize), r.URL.Query().Get("limit"))
		skips = append(skips, r.URL.Query().Get("skip"))

		n := PageSize
		if skip >= PageSize {
			n = 3
		}
		rows := make([]map[string]any, n)
		for i := range rows {
			rows[i] = map[string]any{"id": skip + i + 1, "nom": "N", "prenom": "P", "genre": "F"}
		}
		writeJSON(t, w, http.StatusOK, rows)
	})

	persons, err := client.ListPersons(withToken("t"))
	require.NoError(t, err)
	assert.Len(t, persons, PageSize+3)
	assert.Equal(t, []string{"0", "100"}, skips)
	assert.Equal(t, int64(PageSize+3), persons[len(persons)-1].ID)
}

func TestClient_ListRelations(t *testing.T) {
	var query string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/relations/", r.URL.Path)
		query = r.URL.Query().Get("user_id")
		writeJSON(t, w, http.StatusOK, []map[string]any{
			{"id": 10, "id_user1": 1, "id_user2": 2, "type_relation": "pere"},
			{"id": 11, "id_user1": 2, "id_user2": 3, "type_relation": "epoux"},
			{"id": 12, "id_user1": 2, "id_user2": 4, "type_relation": "cousin"},
		})
	})

	userID := int64(2)
	relations, err := client.ListRelations(withToken("t"), &userID)
	require.NoError(t, err)

	assert.Equal(t, "2", query)
	assert.Equal(t, []models.Relation{
		{ID: 10, PersonA: 1, PersonB: 2, Kind: models.RelationFatherOf},
		{ID: 11, PersonA: 2, PersonB: 3, Kind: models.RelationHusbandOf},
		{ID: 12, PersonA: 2, PersonB: 4, Kind: models.RelationKind("cousin")},
	}, relations)
}

func TestClient_ListRelations_Unscoped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("user_id"))
		writeJSON(t, w, http.StatusOK, []map[string]any{})
	})

	relations, err := client.ListRelations(withToken("t"), nil)
	require.NoError(t, err)
	assert.Empty(t, relations)
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	calls := 0
	observer := &recordingObserver{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(t, w, http.StatusOK, []map[string]any{})
	}, WithObserver(observer))

	_, err := client.ListRelations(withToken("t"), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []string{"list_relations:502", "list_relations:502", "list_relations:200"}, observer.calls)
}

func TestClient_DoesNotRetryAuthFailures(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
	})

	_, err := client.ListPersons(withToken("expired"))
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Equal(t, 1, calls)
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.ListPersons(withToken("t"))
	assert.ErrorIs(t, err, apperrors.ErrBackendUnavailable)
	assert.Equal(t, 3, calls)
}

func TestClient_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(withToken("t"))
	cancel()

	_, err := client.ListPersons(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base     string
		segments []string
		want     string
	}{
		{"http://localhost:8000", []string{"api", "v1", "users/"}, "http://localhost:8000/api/v1/users/"},
		{"http://localhost:8000/", []string{"api", "v1", "auth", "login"}, "http://localhost:8000/api/v1/auth/login"},
		{"https://famille.example.mg/backend", []string{"api", "v1", "relations/"}, "https://famille.example.mg/backend/api/v1/relations/"},
	}

	for _, tt := range tests {
		got, err := buildURL(tt.base, nil, tt.segments...)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestDetailOf(t *testing.T) {
	assert.Equal(t, "Relation non trouvée", detailOf([]byte(`{"detail":"Relation non trouvée"}`)))
	assert.Equal(t, "plain failure", detailOf([]byte("plain failure")))
	assert.Contains(t, detailOf([]byte(`{"detail":[{"loc":["body","email"],"msg":"invalid"}]}`)), "invalid")
	assert.Empty(t, detailOf(nil))
}

func TestYearOf(t *testing.T) {
	for in, want := range map[string]int{
		"1978-04-12T00:00:00":       1978,
		"1978-04-12T00:00:00Z":      1978,
		"1978-04-12":                1978,
		"1978-04-12 08:00:00.12345": 1978,
	} {
		got := yearOf(in)
		require.NotNil(t, got, in)
		assert.Equal(t, want, *got, in)
	}
	assert.Nil(t, yearOf("unknown"))
}
