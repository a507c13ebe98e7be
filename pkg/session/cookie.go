package session

import (
	"crypto/sha256"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/mananjary-mi/family-portal/pkg/apperrors"
)

const cookieKeySessionID = "sid"

// Cookie binds a session id to the browser through a signed cookie.
// The cookie holds nothing but the id; everything else stays server-side.
type Cookie struct {
	store *sessions.CookieStore
	name  string
}

// NewCookie creates the cookie binding.
//
// The secret is SHA-256 hashed to derive the signing key, so any passphrase
// works. It must be identical across restarts and instances, otherwise every
// visitor is logged out.
//
// Security settings:
//   - HttpOnly: true (inaccessible to JavaScript)
//   - Secure: derived from baseURL (false only for plain http)
//   - SameSite: Lax (the portal is reached through links from the community site)
func NewCookie(name, secret, baseURL string, maxAge time.Duration) *Cookie {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   isHTTPS(baseURL),
		SameSite: http.SameSiteLaxMode,
	}

	return &Cookie{store: store, name: name}
}

// Bind writes the cookie carrying id.
func (c *Cookie) Bind(w http.ResponseWriter, r *http.Request, id uuid.UUID) error {
	// A cookie signed with an old key fails to decode; start from a fresh one.
	cs, _ := c.store.Get(r, c.name)
	cs.Values[cookieKeySessionID] = id.String()
	cs.Options.MaxAge = c.store.Options.MaxAge
	return cs.Save(r, w)
}

// SessionID reads the session id from the request cookie.
// Returns apperrors.ErrSessionNotFound when the cookie is missing or invalid.
func (c *Cookie) SessionID(r *http.Request) (uuid.UUID, error) {
	cs, err := c.store.Get(r, c.name)
	if err != nil {
		return uuid.Nil, apperrors.ErrSessionNotFound
	}
	raw, ok := cs.Values[cookieKeySessionID].(string)
	if !ok || raw == "" {
		return uuid.Nil, apperrors.ErrSessionNotFound
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.Join(apperrors.ErrSessionNotFound, err)
	}
	return id, nil
}

// Clear expires the cookie in the browser.
func (c *Cookie) Clear(w http.ResponseWriter, r *http.Request) error {
	cs, _ := c.store.Get(r, c.name)
	delete(cs.Values, cookieKeySessionID)
	cs.Options.MaxAge = -1
	return cs.Save(r, w)
}

// isHTTPS reports whether baseURL uses HTTPS. Empty or invalid URLs count as
// HTTPS so cookies stay Secure by default.
func isHTTPS(baseURL string) bool {
	if baseURL == "" {
		return true
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return true
	}
	return parsed.Scheme != "http"
}
