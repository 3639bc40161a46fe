package security

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// HKDF info strings. Each purpose gets its own key from the one secret.
const (
	PurposeSessionPayload = "paas-auth/session-payload/v1"
	PurposeSessionCookie  = "paas-auth/session-cookie/v1"
	PurposeStateCookie    = "paas-auth/oauth-state-cookie/v1"
	PurposeUserTokens     = "paas-auth/user-tokens/v1"
)

var errSealedTooShort = errors.New("sealed value too short")

// DeriveKey expands secret into a 32-byte key bound to purpose.
func DeriveKey(secret []byte, purpose string) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty secret")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(purpose)), key); err != nil {
		return nil, err
	}
	return key, nil
}

// Sealer is XChaCha20-Poly1305 with a random 24-byte nonce prefixed to the ciphertext.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(secret []byte, purpose string) (*Sealer, error) {
	key, err := DeriveKey(secret, purpose)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	if len(sealed) < ns+s.aead.Overhead() {
		return nil, errSealedTooShort
	}
	return s.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
}
