package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuthSession is a Supabase Auth session as persisted by the CLI.
type AuthSession struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
}

// Expired reports whether the access token is expired, with a small skew.
func (s AuthSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now.Add(30 * time.Second))
}
