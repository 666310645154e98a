package dao

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/impulsa-inbox/internal/domain/user/entity"
)

// ProfilePostgres reads user profiles from the PostgreSQL users table
type ProfilePostgres struct {
	pool *pgxpool.Pool
}

// NewProfilePostgres creates a new PostgreSQL profile repository
func NewProfilePostgres(pool *pgxpool.Pool) *ProfilePostgres {
	return &ProfilePostgres{pool: pool}
}

// GetByIDs returns the profiles that exist among ids, keyed by id
func (r *ProfilePostgres) GetByIDs(ctx context.Context, ids []int64) (map[int64]entity.Profile, error) {
	profiles := make(map[int64]entity.Profile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	query := `
		SELECT id, COALESCE(full_name, ''), COALESCE(email, ''), COALESCE(profile_image, '')
		FROM users
		WHERE id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p entity.Profile
		if err := rows.Scan(&p.ID, &p.FullName, &p.Email, &p.ProfileImage); err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		profiles[p.ID] = p
	}

	return profiles, rows.Err()
}
