package dao

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/vadim/impulsa-inbox/internal/domain/user/entity"
)

// ProfileSQLite reads user profiles from the SQLite users table
type ProfileSQLite struct {
	db *sql.DB
}

// NewProfileSQLite creates a new SQLite profile repository
func NewProfileSQLite(db *sql.DB) *ProfileSQLite {
	return &ProfileSQLite{db: db}
}

// GetByIDs returns the profiles that exist among ids, keyed by id
func (r *ProfileSQLite) GetByIDs(ctx context.Context, ids []int64) (map[int64]entity.Profile, error) {
	profiles := make(map[int64]entity.Profile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `
		SELECT id, full_name, email, COALESCE(profile_image, '')
		FROM users
		WHERE id IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var p entity.Profile
		if err := rows.Scan(&p.ID, &p.FullName, &p.Email, &p.ProfileImage); err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		profiles[p.ID] = p
	}

	return profiles, rows.Err()
}

// Create inserts a user. Used for seeding local databases.
func (r *ProfileSQLite) Create(ctx context.Context, p *entity.Profile) error {
	query := `INSERT INTO users (full_name, email, profile_image) VALUES (?, ?, NULLIF(?, '')) RETURNING id`

	if err := r.db.QueryRowContext(ctx, query, p.FullName, p.Email, p.ProfileImage).Scan(&p.ID); err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}
