package postgres

import (
	"database/sql"
	"encoding/base64"
	"strings"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

// sealedPrefix marks a token column written through a TokenSealer.
const sealedPrefix = "sealed:v1:"

// TokenSealer encrypts provider tokens before they reach a column.
type TokenSealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

func (r *UserRepo) sealToken(tok *string) (*string, error) {
	if tok == nil {
		return nil, nil
	}
	sealed, err := r.sealer.Seal([]byte(*tok))
	if err != nil {
		return nil, domain.ErrRandomFailed(err)
	}
	s := sealedPrefix + base64.RawStdEncoding.EncodeToString(sealed)
	return &s, nil
}

// openToken returns nil for a column sealed under another secret.
// Values without the prefix predate sealing and are returned as stored.
func (r *UserRepo) openToken(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	enc, ok := strings.CutPrefix(ns.String, sealedPrefix)
	if !ok {
		return nullPtr(ns)
	}
	raw, err := base64.RawStdEncoding.DecodeString(enc)
	if err != nil {
		return nil
	}
	plain, err := r.sealer.Open(raw)
	if err != nil {
		return nil
	}
	s := string(plain)
	return &s
}
