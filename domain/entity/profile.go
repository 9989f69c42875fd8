package entity

import "time"

// UserProfile holds per-user display settings and storage accounting.
// The row is created lazily on first access, so a profile read never fails
// with not-found for a valid authenticated user.
type UserProfile struct {
	ID          string    `json:"id" validate:"required"`
	DisplayName string    `json:"display_name,omitempty" validate:"max=100"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	StorageUsed int64     `json:"storage_used"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
