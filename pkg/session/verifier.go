package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/mananjary-mi/family-portal/pkg/config"
)

// TokenVerifier checks a backend access token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*TokenClaims, error)
}

// NewTokenVerifier builds the verifier selected by cfg.Mode.
// In jwks mode the key set is fetched immediately and refreshed in the
// background until ctx is done.
func NewTokenVerifier(ctx context.Context, cfg config.AuthConfig) (TokenVerifier, error) {
	switch cfg.Mode {
	case config.AuthModeNone, "":
		return unverifiedVerifier{}, nil
	case config.AuthModeHMAC:
		if cfg.TokenSecret == "" {
			return nil, errors.New("hmac token verification requires a secret")
		}
		return &hmacVerifier{secret: []byte(cfg.TokenSecret)}, nil
	case config.AuthModeJWKS:
		jwks, err := keyfunc.NewDefaultCtx(ctx, []string{cfg.JWKSURL})
		if err != nil {
			return nil, fmt.Errorf("failed to create JWKS client for %s: %w", cfg.JWKSURL, err)
		}
		return &jwksVerifier{jwks: jwks}, nil
	default:
		return nil, fmt.Errorf("unknown token verification mode %q", cfg.Mode)
	}
}

// unverifiedVerifier parses tokens without checking the signature.
// Used for local development against a backend whose key is not shared.
type unverifiedVerifier struct{}

func (unverifiedVerifier) Verify(_ context.Context, token string) (*TokenClaims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, _, err := parser.ParseUnverified(token, &TokenClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claimsOf(parsed)
}

// hmacVerifier checks HS256 signatures with the backend's shared secret.
type hmacVerifier struct {
	secret []byte
}

func (v *hmacVerifier) Verify(_ context.Context, token string) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	return claimsOf(parsed)
}

// jwksVerifier checks RSA/EC signatures against a published key set.
type jwksVerifier struct {
	jwks keyfunc.Keyfunc
}

func (v *jwksVerifier) Verify(ctx context.Context, token string) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &TokenClaims{}, v.jwks.KeyfuncCtx(ctx),
		jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	return claimsOf(parsed)
}

func claimsOf(token *jwt.Token) (*TokenClaims, error) {
	claims, ok := token.Claims.(*TokenClaims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	if claims.UserID == 0 {
		return nil, errors.New("token has no user_id claim")
	}
	return claims, nil
}

var (
	_ TokenVerifier = unverifiedVerifier{}
	_ TokenVerifier = (*hmacVerifier)(nil)
	_ TokenVerifier = (*jwksVerifier)(nil)
)
