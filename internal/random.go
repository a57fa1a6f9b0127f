package internal

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// SessionTokenSize is the number of random bytes behind a session token.
const SessionTokenSize = 32

var sessionTokenLen = base64.RawURLEncoding.EncodedLen(SessionTokenSize)

// NewSessionToken returns a fresh token: SessionTokenSize bytes from
// crypto/rand rendered as unpadded base64url.
func NewSessionToken() (string, error) {
	var raw [SessionTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("read token entropy: %w", err)
	}
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ValidTokenShape reports whether token could have been issued by this service:
// either a current base64url token or a canonical UUID from earlier releases.
func ValidTokenShape(token string) bool {
	switch len(token) {
	case sessionTokenLen:
		raw, err := base64.RawURLEncoding.DecodeString(token)
		return err == nil && len(raw) == SessionTokenSize
	case 36:
		_, err := uuid.Parse(token)
		return err == nil
	default:
		return false
	}
}
