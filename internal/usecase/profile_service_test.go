package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"lumi/domain"
	"lumi/retry"
)

func (e *testEnv) profileService() *ProfileService {
	return NewProfileService(e.client, e.client, e.cache, e.registry, retry.DefaultMaxAttempts, nil)
}

// pngBytes is a minimal payload that content-sniffs as image/png.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

func TestProfileGetCreatesLazily(t *testing.T) {
	env := newTestEnv(t)
	svc := env.profileService()

	p, err := svc.Get(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
	assert.Len(t, env.backend.Rows("profiles"), 1, "first read creates the row")
}

func TestProfileGetIgnoresExistingRowConflict(t *testing.T) {
	env := newTestEnv(t)
	env.backend.Seed("profiles", map[string]any{"id": "u1", "display_name": "Ada"})
	svc := env.profileService()

	p, err := svc.Get(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, "Ada", p.DisplayName)
	assert.Len(t, env.backend.Rows("profiles"), 1, "conflicting create must not duplicate the row")
}

func TestProfileGetServesFromCache(t *testing.T) {
	env := newTestEnv(t)
	svc := env.profileService()

	_, err := svc.Get(context.Background(), "u1")
	assert.NoError(t, err)
	fetches := env.backend.Requests

	_, err = svc.Get(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, fetches, env.backend.Requests)
}

func TestProfileUpdateDisplayName(t *testing.T) {
	env := newTestEnv(t)
	env.backend.Seed("profiles", map[string]any{"id": "u1"})
	svc := env.profileService()

	name := "<b>Ada</b>"
	updated, err := svc.Update(context.Background(), "u1", UpdateProfileInput{DisplayName: &name})
	assert.NoError(t, err)
	assert.Equal(t, "Ada", updated.DisplayName, "display name is sanitized")
}

func TestProfileUpdateValidatesLength(t *testing.T) {
	env := newTestEnv(t)
	svc := env.profileService()

	long := strings.Repeat("x", 101)
	_, err := svc.Update(context.Background(), "u1", UpdateProfileInput{DisplayName: &long})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestUploadAvatar(t *testing.T) {
	env := newTestEnv(t)
	env.backend.Seed("profiles", map[string]any{"id": "u1", "storage_used": 100})
	svc := env.profileService()

	url, err := svc.UploadAvatar(context.Background(), "u1", "me.png", pngBytes)
	assert.NoError(t, err)
	assert.Contains(t, url, "/storage/v1/object/public/avatars/u1/")

	p, err := svc.Get(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, url, p.AvatarURL)
	assert.Equal(t, int64(100+len(pngBytes)), p.StorageUsed)
}

func TestUploadAvatarRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	svc := env.profileService()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty file", data: nil},
		{name: "over the size cap", data: make([]byte, MaxAvatarBytes+1)},
		{name: "not an image", data: []byte("just some text, definitely no pixels")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UploadAvatar(context.Background(), "u1", "file.bin", tt.data)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}
	assert.Empty(t, env.backend.Rows("profiles"), "rejected uploads must not touch the profile")
}

func TestStorageUsage(t *testing.T) {
	env := newTestEnv(t)
	env.backend.Seed("profiles", map[string]any{"id": "u1", "storage_used": 4096})
	svc := env.profileService()

	used, err := svc.StorageUsage(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, int64(4096), used)
}
