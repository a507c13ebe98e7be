// Package backend provides a client for the community backend REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mananjary-mi/family-portal/pkg/apperrors"
	"github.com/mananjary-mi/family-portal/pkg/config"
	"github.com/mananjary-mi/family-portal/pkg/logging"
	"github.com/mananjary-mi/family-portal/pkg/models"
	"github.com/mananjary-mi/family-portal/pkg/retry"
	"github.com/mananjary-mi/family-portal/pkg/session"
)

// PageSize is the number of rows requested per listing call.
// The backend caps listings at 100 rows when no limit is given.
const PageSize = 100

// maxPages bounds pagination so a misbehaving backend cannot loop us forever.
const maxPages = 1000

// Observer receives the outcome of every backend call.
type Observer interface {
	ObserveBackendRequest(operation string, status int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveBackendRequest(string, int, time.Duration) {}

// Client provides access to the community backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      *retry.Config
	observer   Observer
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithObserver reports request durations to o.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithRetryConfig replaces the retry policy used for idempotent calls.
func WithRetryConfig(cfg *retry.Config) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// NewClient creates a backend client from configuration.
func NewClient(cfg config.BackendConfig, logger *zap.Logger, opts ...Option) *Client {
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.MaxRetries

	c := &Client{
		baseURL: cfg.URL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retry:    retryCfg,
		observer: nopObserver{},
		logger:   logger.Named("backend"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges credentials for a backend access token.
// userType is optional; the backend detects it when empty.
func (c *Client) Login(ctx context.Context, email, password, userType string) (*models.LoginResult, error) {
	payload := loginRequest{Email: email, Password: password}
	if userType != "" {
		payload.UserType = &userType
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	// Login is not idempotent from the backend's point of view (it writes an
	// activity log), so it is never retried.
	respBody, err := c.do(ctx, "login", http.MethodPost, nil, body, "", "api", "v1", "auth", "login")
	if err != nil {
		c.logger.Info("Backend login failed",
			zap.String("email", logging.RedactEmail(email)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, err
	}

	var resp loginResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse login response: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login response carries no access token")
	}

	result := resp.toLoginResult()
	c.logger.Debug("Backend login succeeded",
		zap.Int64("user_id", result.Account.ID),
		zap.String("user_type", result.Account.UserType))
	return result, nil
}

// Logout tells the backend the session ended. The backend does not revoke
// tokens, so failures are reported but harmless.
func (c *Client) Logout(ctx context.Context) error {
	token, _ := session.AccessToken(ctx)
	_, err := c.do(ctx, "logout", http.MethodPost, nil, nil, token, "api", "v1", "auth", "logout")
	return err
}

// ListPersons returns every community member visible to the session in ctx.
func (c *Client) ListPersons(ctx context.Context) ([]models.Person, error) {
	rows, err := listAll[userDTO](ctx, c, "list_persons", nil, "api", "v1", "users/")
	if err != nil {
		return nil, err
	}

	persons := make([]models.Person, 0, len(rows))
	for _, row := range rows {
		persons = append(persons, row.toPerson())
	}
	return persons, nil
}

// ListRelations returns relations, optionally only those touching forUser.
func (c *Client) ListRelations(ctx context.Context, forUser *int64) ([]models.Relation, error) {
	query := url.Values{}
	if forUser != nil {
		query.Set("user_id", strconv.FormatInt(*forUser, 10))
	}

	rows, err := listAll[relationDTO](ctx, c, "list_relations", query, "api", "v1", "relations/")
	if err != nil {
		return nil, err
	}

	relations := make([]models.Relation, 0, len(rows))
	for _, row := range rows {
		relations = append(relations, row.toRelation())
	}
	return relations, nil
}

// listAll pages through a skip/limit listing until a short page comes back.
func listAll[T any](ctx context.Context, c *Client, operation string, query url.Values, segments ...string) ([]T, error) {
	token, _ := session.AccessToken(ctx)

	var all []T
	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("skip", strconv.Itoa(page*PageSize))
		q.Set("limit", strconv.Itoa(PageSize))

		body, err := retry.DoIfRetryableWithResult(ctx, c.retry, func() ([]byte, error) {
			return c.do(ctx, operation, http.MethodGet, q, nil, token, segments...)
		})
		if err != nil {
			return nil, err
		}

		var rows []T
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("failed to parse %s response: %w", operation, err)
		}
		all = append(all, rows...)
		if len(rows) < PageSize {
			return all, nil
		}
	}
	return nil, fmt.Errorf("%s: more than %d pages", operation, maxPages)
}

// do executes one request and returns the body of a 2xx response.
// Non-2xx answers become *retry.StatusError wrapped with the matching sentinel.
func (c *Client) do(ctx context.Context, operation, method string, query url.Values, body []byte, token string, segments ...string) ([]byte, error) {
	endpoint, err := buildURL(c.baseURL, query, segments...)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observer.ObserveBackendRequest(operation, 0, time.Since(start))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to call backend: %w: %w", apperrors.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	c.observer.ObserveBackendRequest(operation, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	statusErr := &retry.StatusError{
		Method:     method,
		Path:       req.URL.Path,
		StatusCode: resp.StatusCode,
		Body:       detailOf(respBody),
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.Error("Backend returned error",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
			zap.String("body", logging.SanitizeBody(respBody)))
	}
	return nil, classify(operation, statusErr)
}

// classify wraps a status error with the sentinel callers branch on.
func classify(operation string, err *retry.StatusError) error {
	switch {
	case err.StatusCode == http.StatusUnauthorized && operation == "login":
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidCredentials, err)
	case err.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	case err.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %w", apperrors.ErrForbidden, err)
	case err.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w", apperrors.ErrNotFound, err)
	case err.IsRetryable():
		return fmt.Errorf("%w: %w", apperrors.ErrBackendUnavailable, err)
	default:
		return err
	}
}

// detailOf extracts the backend's {"detail": "..."} message, falling back to
// the sanitized raw body.
func detailOf(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var msg string
		if err := json.Unmarshal(payload.Detail, &msg); err == nil {
			return logging.TruncateString(msg, logging.MaxBodyLogLength)
		}
		return logging.SanitizeBody(payload.Detail)
	}
	return logging.SanitizeBody(body)
}

// buildURL constructs a URL by parsing the base and joining path segments.
// A trailing slash on the last segment is kept: the backend routes listings at "users/".
func buildURL(baseURL string, query url.Values, pathSegments ...string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	segments := append([]string{u.Path}, pathSegments...)
	u.Path = path.Join(segments...)
	if n := len(pathSegments); n > 0 && strings.HasSuffix(pathSegments[n-1], "/") {
		u.Path += "/"
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}
