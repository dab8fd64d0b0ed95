package storage

import (
	"context"
	"time"
)

// AuthStorage хранит пару токенов текущего пользователя на устройстве
type AuthStorage interface {
	SaveAuth(ctx context.Context, auth *AuthData) error
	// GetAuth returns ErrAuthNotFound when nobody is signed in on this device
	GetAuth(ctx context.Context) (*AuthData, error)
	DeleteAuth(ctx context.Context) error
}

// AuthData - сессия пользователя на этом устройстве
type AuthData struct {
	Username     string `json:"username"`
	UserID       string `json:"user_id,omitempty"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	PublicSalt   string `json:"public_salt"`
	ExpiresAt    int64  `json:"expires_at"` // unix seconds
}

// Expiry returns the access token expiry time
func (a *AuthData) Expiry() time.Time {
	return time.Unix(a.ExpiresAt, 0)
}

// FreshAt reports whether the access token stays valid for at least skew after now
func (a *AuthData) FreshAt(now time.Time, skew time.Duration) bool {
	return a.AccessToken != "" && a.Expiry().Sub(now) > skew
}
