// Package secrets seals aggregator access tokens before they are stored.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"freedash/internal/logger"
)

const sealedPrefix = "v1:"

// ErrMalformed is returned by Open for values that carry the sealed prefix but
// cannot be decoded or authenticated.
var ErrMalformed = errors.New("secrets: malformed sealed value")

// Sealer encrypts short secrets with XChaCha20-Poly1305. A Sealer built with
// an empty key stores values as-is, which keeps local development usable
// without key management.
type Sealer struct {
	key []byte
}

// NewSealer returns a Sealer for the given 32-byte key, or a passthrough
// Sealer when key is empty.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) == 0 {
		logger.Get().Warn("PLAID_TOKEN_KEY not set; access tokens are stored unsealed")
		return &Sealer{}, nil
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("secrets: key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Sealer{key: k}, nil
}

// Enabled reports whether values are actually encrypted.
func (s *Sealer) Enabled() bool {
	return len(s.key) > 0
}

// Seal encrypts plaintext. The output is "v1:" followed by base64 of nonce and ciphertext.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if !s.Enabled() {
		return plaintext, nil
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	out := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Unprefixed values are returned unchanged so rows written
// before a key was configured keep working.
func (s *Sealer) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	if !s.Enabled() {
		return "", fmt.Errorf("secrets: sealed value found but no key configured")
	}

	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", ErrMalformed
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrMalformed
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrMalformed
	}
	return string(plaintext), nil
}
