package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nuggetsync/nuggetauth/internal/profile"
)

// ProfileRepository implements [profile.Repository].
type ProfileRepository struct {
	pool *pgxpool.Pool
}

var _ profile.Repository = (*ProfileRepository)(nil)

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) Create(ctx context.Context, userID int64, in profile.CreateInput) (profile.Profile, error) {
	const q = `
INSERT INTO profiles (user_id, name, hash)
VALUES ($1, $2, $3)
RETURNING id, user_id, name, hash, updated_at`

	var p profile.Profile
	err := r.pool.QueryRow(ctx, q, userID, in.Name, in.Hash).Scan(&p.ID, &p.UserID, &p.Name, &p.Hash, &p.UpdatedAt)
	if err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}

// ListByUser returns the user's profiles oldest first. No rows is an empty
// slice, not an error.
func (r *ProfileRepository) ListByUser(ctx context.Context, userID int64) ([]profile.Profile, error) {
	const q = `
SELECT id, user_id, name, hash, updated_at
FROM profiles
WHERE user_id = $1
ORDER BY id`

	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (profile.Profile, error) {
		var p profile.Profile
		err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Hash, &p.UpdatedAt)
		return p, err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []profile.Profile{}
	}
	return out, nil
}
