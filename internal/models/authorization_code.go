package models

import (
	"time"
)

// AuthorizationCode is a short-lived, single-use grant. ApiKey holds the
// client's real key encrypted under a key derived from ClientID, never the
// plaintext.
type AuthorizationCode struct {
	Code                string `gorm:"primaryKey;size:36"`
	ClientID            string `gorm:"not null;index"`
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod string
	Scope               string
	ApiKey              string    `gorm:"column:api_key;not null"`
	CreatedAt           time.Time
	ExpiresAt           time.Time `gorm:"not null"`
}

func (AuthorizationCode) TableName() string {
	return "authorization_codes"
}

// Expired reports whether the code is past its absolute deadline.
func (c *AuthorizationCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
