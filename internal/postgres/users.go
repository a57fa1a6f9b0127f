package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nuggetsync/nuggetauth"
)

const pgUniqueViolation = "23505"

// UserRepository implements [nuggetauth.UserProvider] and
// [nuggetauth.PasswordUpdater] over the users table.
type UserRepository struct {
	pool *pgxpool.Pool
}

var (
	_ nuggetauth.UserProvider    = (*UserRepository)(nil)
	_ nuggetauth.PasswordUpdater = (*UserRepository)(nil)
)

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (nuggetauth.UserRecord, error) {
	const q = `
SELECT id, username, password, created_at, updated_at
FROM users
WHERE username = $1`

	var u nuggetauth.UserRecord
	err := r.pool.QueryRow(ctx, q, username).Scan(&u.UserID, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nuggetauth.UserRecord{}, nuggetauth.ErrUserNotFound
		}
		return nuggetauth.UserRecord{}, err
	}
	return u, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, in nuggetauth.CreateUserInput) (nuggetauth.UserRecord, error) {
	const q = `
INSERT INTO users (username, password)
VALUES ($1, $2)
RETURNING id, username, password, created_at, updated_at`

	var u nuggetauth.UserRecord
	err := r.pool.QueryRow(ctx, q, in.Username, in.PasswordHash).Scan(&u.UserID, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nuggetauth.UserRecord{}, nuggetauth.ErrAccountExists
		}
		return nuggetauth.UserRecord{}, err
	}
	return u, nil
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, userID int64, newHash string) error {
	const q = `UPDATE users SET password = $2, updated_at = now() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, q, userID, newHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nuggetauth.ErrUserNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation
}
