package nuggetauth

import (
	"context"
	"time"
)

// UserRecord is the account record returned by [UserProvider]. PasswordHash
// is the PHC-encoded credential hash; it never leaves the engine.
type UserRecord struct {
	UserID       int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUserInput is passed to [UserProvider.CreateUser]. The password is
// already hashed.
type CreateUserInput struct {
	Username     string
	PasswordHash string
}

// UserProvider is the relational user repository the engine depends on.
//
// GetUserByUsername returns ErrUserNotFound for a missing username.
// CreateUser returns ErrAccountExists for a taken username. Any other error is
// treated as the store being unavailable.
type UserProvider interface {
	GetUserByUsername(ctx context.Context, username string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
}

// PasswordUpdater is optionally implemented by a UserProvider to receive
// re-hashed credentials after a login with outdated Argon2 parameters.
type PasswordUpdater interface {
	UpdatePasswordHash(ctx context.Context, userID int64, newHash string) error
}

// User is the public view of an account. It has no credential fields.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func publicUser(u UserRecord) User {
	return User{
		ID:        u.UserID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Identity is the authenticated caller produced by [Engine.Validate].
type Identity struct {
	UserID int64
	// IPChanged is set when advisory IP binding accepted a request from an
	// address other than the one the session was issued to.
	IPChanged bool
	ExpiresAt time.Time
}
