package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vadim/impulsa-inbox/internal/domain/user/entity"
)

// ProfileRepository defines the interface for profile storage
type ProfileRepository interface {
	GetByIDs(ctx context.Context, ids []int64) (map[int64]entity.Profile, error)
}

// ImageResolver turns a stored image key into a URL
type ImageResolver interface {
	ImageURL(ctx context.Context, key string) (string, error)
}

// Directory looks up public user profiles with loadable image URLs
type Directory struct {
	repo   ProfileRepository
	images ImageResolver
	logger *slog.Logger
}

// New creates a new directory. images may be nil, in which case image keys
// are returned as stored.
func New(repo ProfileRepository, images ImageResolver, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{repo: repo, images: images, logger: logger}
}

// Profiles returns the profiles of the given users keyed by id.
// Unknown users are absent from the result.
func (d *Directory) Profiles(ctx context.Context, ids []int64) (map[int64]entity.Profile, error) {
	profiles, err := d.repo.GetByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("getting profiles: %w", err)
	}

	if d.images == nil {
		return profiles, nil
	}

	for id, p := range profiles {
		if p.ProfileImage == "" {
			continue
		}
		url, err := d.images.ImageURL(ctx, p.ProfileImage)
		if err != nil {
			// A missing avatar is not worth failing the request
			d.logger.Warn("failed to resolve profile image", "user_id", id, "error", err)
			p.ProfileImage = ""
		} else {
			p.ProfileImage = url
		}
		profiles[id] = p
	}

	return profiles, nil
}

// StoredProfile returns a single profile with its image key as stored, or nil
// when the user is unknown. Used when the profile is persisted elsewhere and
// must not carry expiring URLs.
func (d *Directory) StoredProfile(ctx context.Context, id int64) (*entity.Profile, error) {
	profiles, err := d.repo.GetByIDs(ctx, uniqueIDs([]int64{id}))
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	p, ok := profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
