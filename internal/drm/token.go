package drm

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Sealer turns session ids into opaque client-held tokens and back. Tokens
// are XChaCha20-Poly1305 sealed, so a client can neither read nor forge the
// session id inside; the raw storage locator never appears in a token.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer expects a 32-byte key, hex encoded.
func NewSealer(hexKey string) (*Sealer, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode token key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("token key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

type tokenPayload struct {
	SessionID string `json:"sid"`
	Nonce     string `json:"n"`
}

// Seal produces the opaque token for a session id.
func (s *Sealer) Seal(sessionID string) (string, error) {
	inner := make([]byte, 8)
	if _, err := rand.Read(inner); err != nil {
		return "", fmt.Errorf("token nonce: %w", err)
	}

	plaintext, err := json.Marshal(tokenPayload{SessionID: sessionID, Nonce: hex.EncodeToString(inner)})
	if err != nil {
		return "", fmt.Errorf("marshal token payload: %w", err)
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("aead nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open recovers the session id. Any decode or authentication failure is
// ErrSessionInvalid; the caller learns nothing about which check failed.
func (s *Sealer) Open(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrSessionInvalid
	}

	nonceSize := s.aead.NonceSize()
	if len(raw) <= nonceSize {
		return "", ErrSessionInvalid
	}

	plaintext, err := s.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", ErrSessionInvalid
	}

	var payload tokenPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return "", ErrSessionInvalid
	}
	if payload.SessionID == "" {
		return "", ErrSessionInvalid
	}
	return payload.SessionID, nil
}
