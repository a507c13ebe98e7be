package crypto

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

// Test key generated with: openssl rand -base64 32
const testKey = "dGVzdC1rZXktZm9yLXVuaXQtdGVzdHMtMzItYnl0ZXM=" // "test-key-for-unit-tests-32-bytes"

var sessionA = []byte("0b7c2a4e-4d8e-4a55-9d5c-6b1f4f3b2a10")

func TestNewTokenCipher(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "valid 32-byte base64 key", key: testKey},
		{name: "passphrase hashed to 32 bytes", key: "family-portal-local"},
		{name: "short base64 key hashed", key: base64.StdEncoding.EncodeToString([]byte("sixteen-byte-key"))},
		{name: "empty key", key: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewTokenCipher(tt.key)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidKey) {
					t.Errorf("expected ErrInvalidKey, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c == nil {
				t.Fatal("expected cipher, got nil")
			}
		})
	}
}

func TestTokenCipher_SealOpen(t *testing.T) {
	c, err := NewTokenCipher(testKey)
	if err != nil {
		t.Fatalf("failed to create cipher: %v", err)
	}

	token := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.sig"
	sealed, err := c.Seal(token, sessionA)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	if !IsSealed(sealed) {
		t.Errorf("expected sealed prefix, got %q", sealed)
	}
	if strings.Contains(sealed, token) {
		t.Error("sealed value contains the plaintext token")
	}

	opened, err := c.Open(sealed, sessionA)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if opened != token {
		t.Errorf("expected %q, got %q", token, opened)
	}
}

func TestTokenCipher_SealIsRandomized(t *testing.T) {
	c, _ := NewTokenCipher(testKey)

	first, _ := c.Seal("same-token", sessionA)
	second, _ := c.Seal("same-token", sessionA)
	if first == second {
		t.Error("expected different sealed values for the same token")
	}
}

func TestTokenCipher_EmptyToken(t *testing.T) {
	c, _ := NewTokenCipher(testKey)

	sealed, err := c.Seal("", sessionA)
	if err != nil || sealed != "" {
		t.Errorf("expected empty result, got %q, %v", sealed, err)
	}
	opened, err := c.Open("", sessionA)
	if err != nil || opened != "" {
		t.Errorf("expected empty result, got %q, %v", opened, err)
	}
}

func TestTokenCipher_OpenFailures(t *testing.T) {
	c, _ := NewTokenCipher(testKey)
	other, _ := NewTokenCipher("another-key")

	sealed, err := c.Seal("access-token", sessionA)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	tampered := sealed[:len(sealed)-2] + "AA"
	if tampered == sealed {
		tampered = sealed[:len(sealed)-2] + "BB"
	}

	tests := []struct {
		name    string
		cipher  *TokenCipher
		value   string
		context []byte
	}{
		{name: "other session", cipher: c, value: sealed, context: []byte("another-session")},
		{name: "wrong key", cipher: other, value: sealed, context: sessionA},
		{name: "tampered", cipher: c, value: tampered, context: sessionA},
		{name: "plaintext", cipher: c, value: "access-token", context: sessionA},
		{name: "bad encoding", cipher: c, value: "v1.%%%", context: sessionA},
		{name: "too short", cipher: c, value: "v1.AAAA", context: sessionA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cipher.Open(tt.value, tt.context)
			if !errors.Is(err, ErrDecryptionFailed) {
				t.Errorf("expected ErrDecryptionFailed, got %v", err)
			}
		})
	}
}
