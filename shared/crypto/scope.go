package crypto

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/blake2b"
)

var ErrInvalidEmail = errors.New("invalid email format")

// ScopeKey derives the storage scope for a user's local state from their
// email. The email is normalized first so that "A@x.io " and "a@x.io" share
// one scope; the clear-text address is never persisted.
func ScopeKey(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", ErrInvalidEmail
	}
	sum := blake2b.Sum256([]byte(email))
	return hex.EncodeToString(sum[:]), nil
}

// ShortScope is a log-friendly prefix of a scope key.
func ShortScope(scope string) string {
	if len(scope) <= 12 {
		return scope
	}
	return scope[:12]
}
