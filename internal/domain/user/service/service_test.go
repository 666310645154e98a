package service

import (
	"context"
	"errors"
	"testing"

	"github.com/vadim/impulsa-inbox/internal/domain/user/entity"
)

type fakeProfileRepo struct {
	profiles map[int64]entity.Profile
	gotIDs   []int64
	err      error
}

func (f *fakeProfileRepo) GetByIDs(_ context.Context, ids []int64) (map[int64]entity.Profile, error) {
	f.gotIDs = ids
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[int64]entity.Profile)
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeImages struct {
	fail bool
}

func (f fakeImages) ImageURL(_ context.Context, key string) (string, error) {
	if f.fail {
		return "", errors.New("presign failed")
	}
	return "https://cdn.test/" + key, nil
}

func TestDirectory_Profiles(t *testing.T) {
	repo := &fakeProfileRepo{profiles: map[int64]entity.Profile{
		1: {ID: 1, FullName: "Ana", ProfileImage: "a.png"},
		2: {ID: 2, FullName: "Luis"},
	}}
	d := New(repo, fakeImages{}, nil)

	profiles, err := d.Profiles(context.Background(), []int64{1, 2, 1, 0, 3})
	if err != nil {
		t.Fatalf("Profiles() error = %v", err)
	}

	if len(repo.gotIDs) != 3 {
		t.Errorf("expected deduplicated positive ids, got %v", repo.gotIDs)
	}
	if profiles[1].ProfileImage != "https://cdn.test/a.png" {
		t.Errorf("image not resolved: %q", profiles[1].ProfileImage)
	}
	if profiles[2].ProfileImage != "" {
		t.Errorf("empty image should stay empty, got %q", profiles[2].ProfileImage)
	}
}

func TestDirectory_ImageFailureIsNotFatal(t *testing.T) {
	repo := &fakeProfileRepo{profiles: map[int64]entity.Profile{
		1: {ID: 1, FullName: "Ana", ProfileImage: "a.png"},
	}}
	d := New(repo, fakeImages{fail: true}, nil)

	profiles, err := d.Profiles(context.Background(), []int64{1})
	if err != nil {
		t.Fatalf("Profiles() error = %v", err)
	}
	p, ok := profiles[1]
	if !ok || p.ProfileImage != "" {
		t.Errorf("expected profile without image, got %+v", p)
	}
}

func TestDirectory_StoredProfile_KeepsImageKey(t *testing.T) {
	repo := &fakeProfileRepo{profiles: map[int64]entity.Profile{
		1: {ID: 1, FullName: "Ana", ProfileImage: "avatars/1.png"},
	}}
	d := New(repo, fakeImages{}, nil)

	p, err := d.StoredProfile(context.Background(), 1)
	if err != nil {
		t.Fatalf("StoredProfile() error = %v", err)
	}
	if p == nil || p.ProfileImage != "avatars/1.png" {
		t.Errorf("expected stored image key, got %+v", p)
	}
}

func TestDirectory_StoredProfile_Unknown(t *testing.T) {
	d := New(&fakeProfileRepo{}, nil, nil)

	p, err := d.StoredProfile(context.Background(), 42)
	if err != nil {
		t.Fatalf("StoredProfile() error = %v", err)
	}
	if p != nil {
		t.Errorf("expected nil profile, got %+v", p)
	}
	if p.DisplayName() != entity.FallbackName {
		t.Errorf("DisplayName() = %q", p.DisplayName())
	}
}

func TestDirectory_RepoError(t *testing.T) {
	d := New(&fakeProfileRepo{err: errors.New("db down")}, nil, nil)

	if _, err := d.Profiles(context.Background(), []int64{1}); err == nil {
		t.Error("expected error")
	}
}
