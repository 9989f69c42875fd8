package usecase

import (
	"context"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lumi/backend"
	"lumi/domain"
	"lumi/internal/cache"
	"lumi/internal/requests"
	"lumi/internal/sanitize"
	"lumi/retry"

	"lumi/domain/entity"
)

// MaxAvatarBytes is the upload cap for avatar images.
const MaxAvatarBytes = 5 << 20

// AvatarBucket is the storage bucket avatars live in.
const AvatarBucket = "avatars"

// ProfileService handles the user profile: lazy creation, updates, avatar
// storage, and usage accounting.
type ProfileService struct {
	store       backend.ProfileStore
	objects     backend.ObjectStore
	cache       *cache.Store
	requests    *requests.Registry
	maxAttempts int
	logger      *zap.Logger
}

// NewProfileService creates a profile service.
func NewProfileService(store backend.ProfileStore, objects backend.ObjectStore, c *cache.Store, r *requests.Registry, maxAttempts int, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{
		store:       store,
		objects:     objects,
		cache:       c,
		requests:    r,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// UpdateProfileInput is a partial profile update.
type UpdateProfileInput struct {
	DisplayName *string `validate:"omitempty,max=100"`
}

// Get returns the user's profile, creating an empty row first if none
// exists. The create is best-effort: a conflict means another context got
// there first and is ignored, so Get never fails with not-found for a
// valid user. The service lacks a get-or-create primitive; keep the
// two-step contract rather than assuming upsert-returning semantics.
func (s *ProfileService) Get(ctx context.Context, userID string) (*entity.UserProfile, error) {
	key := cache.ProfileKey(userID)
	if p, ok := cache.Get[*entity.UserProfile](s.cache, key); ok {
		return p, nil
	}

	reqKey := "profile.get:" + userID
	h := s.requests.Create(ctx, reqKey)
	defer s.requests.Cleanup(h)

	p, err := retry.DoValue(h.Context(), s.maxAttempts, func(ctx context.Context) (*entity.UserProfile, error) {
		seed := &entity.UserProfile{ID: userID}
		if err := s.store.InsertProfile(ctx, seed); err != nil && domain.KindOf(err) != domain.KindConflict {
			return nil, err
		}
		return s.store.GetProfile(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, p)
	return p, nil
}

// Update applies a partial update and seeds the cached profile.
func (s *ProfileService) Update(ctx context.Context, userID string, in UpdateProfileInput) (*entity.UserProfile, error) {
	if err := checkStruct(in); err != nil {
		return nil, err
	}

	patch := backend.Patch{"updated_at": time.Now().UTC()}
	if in.DisplayName != nil {
		patch["display_name"] = sanitize.Text(*in.DisplayName)
	}

	reqKey := "profile.update:" + userID
	h := s.requests.Create(ctx, reqKey)
	defer s.requests.Cleanup(h)

	stored, err := retry.DoValue(h.Context(), s.maxAttempts, func(ctx context.Context) (*entity.UserProfile, error) {
		return s.store.UpdateProfile(ctx, userID, patch)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Set(cache.ProfileKey(userID), stored)
	return stored, nil
}

// UploadAvatar stores an avatar image and records its public URL and size
// on the profile. The size cap and image MIME check run before any upload,
// independent of structural validation.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", domain.Validationf("avatar file is empty")
	}
	if len(data) > MaxAvatarBytes {
		return "", domain.Validationf("avatar exceeds the 5 MiB limit")
	}

	contentType := http.DetectContentType(data)
	if !isImageMIME(contentType) {
		return "", domain.Validationf("avatar must be an image, got %s", contentType)
	}

	objectPath := userID + "/" + uuid.New().String() + path.Ext(filename)

	reqKey := "profile.avatar:" + userID
	h := s.requests.Create(ctx, reqKey)
	defer s.requests.Cleanup(h)

	err := retry.Do(h.Context(), s.maxAttempts, func(ctx context.Context) error {
		return s.objects.Upload(ctx, AvatarBucket, objectPath, data, contentType)
	})
	if err != nil {
		return "", err
	}

	avatarURL := s.objects.PublicURL(AvatarBucket, objectPath)

	current, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	patch := backend.Patch{
		"avatar_url":   avatarURL,
		"storage_used": current.StorageUsed + int64(len(data)),
		"updated_at":   time.Now().UTC(),
	}
	stored, err := retry.DoValue(h.Context(), s.maxAttempts, func(ctx context.Context) (*entity.UserProfile, error) {
		return s.store.UpdateProfile(ctx, userID, patch)
	})
	if err != nil {
		return "", err
	}

	s.cache.Set(cache.ProfileKey(userID), stored)
	s.logger.Info("avatar uploaded",
		zap.String("user", userID),
		zap.Int("bytes", len(data)),
	)
	return avatarURL, nil
}

// StorageUsage returns the user's storage accounting in bytes.
func (s *ProfileService) StorageUsage(ctx context.Context, userID string) (int64, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return p.StorageUsed, nil
}

func isImageMIME(contentType string) bool {
	switch contentType {
	case "image/png", "image/jpeg", "image/gif", "image/webp", "image/bmp":
		return true
	}
	return false
}
