// Package profile holds the encrypted profile records owned by a user.
package profile

import (
	"context"
	"errors"
	"strings"
	"time"
)

// EncryptionXChaCha20Poly1305 is the only accepted client-side cipher.
const EncryptionXChaCha20Poly1305 = "XChaCha20-Poly1305"

const (
	maxNameLength = 128
	maxHashLength = 64 * 1024
)

var (
	ErrUnsupportedEncryption = errors.New("invalid encryption type, only XChaCha20-Poly1305 is supported")
	ErrInvalidName           = errors.New("profile name must be 1-128 characters")
	ErrInvalidHash           = errors.New("profile hash must be non-empty and at most 64 KiB")
)

// Profile is an opaque ciphertext blob stored on behalf of a user. The server
// never sees the key.
type Profile struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Hash      string    `json:"hash"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInput is a request to store a new profile.
type CreateInput struct {
	Name           string `json:"name"`
	Hash           string `json:"hash"`
	EncryptionType string `json:"encryption_type"`
}

// Validate checks the input before it reaches storage.
func (in CreateInput) Validate() error {
	if in.EncryptionType != EncryptionXChaCha20Poly1305 {
		return ErrUnsupportedEncryption
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > maxNameLength {
		return ErrInvalidName
	}
	if in.Hash == "" || len(in.Hash) > maxHashLength {
		return ErrInvalidHash
	}
	return nil
}

// Repository persists profiles.
type Repository interface {
	Create(ctx context.Context, userID int64, in CreateInput) (Profile, error)
	ListByUser(ctx context.Context, userID int64) ([]Profile, error)
}
