package models

import (
	"time"
)

// AccessToken is an opaque bearer credential. Validity is purely
// store-presence plus expiry; there is nothing to verify offline.
type AccessToken struct {
	Token     string  `gorm:"primaryKey"`
	ClientID  string  `gorm:"not null;index"`
	Scope     string
	SessionID *string `gorm:"index"` // weak reference to sessions.id
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"not null"`
}

func (AccessToken) TableName() string {
	return "access_tokens"
}

// Expired reports whether the token is past its absolute deadline.
func (t *AccessToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
