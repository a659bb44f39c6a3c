package models

import (
	"time"
)

// Session tracks one connected client. The declared identity fields
// (name/version/type) are advisory, not authenticated. ApiKeyHash is a
// one-way bcrypt digest; the plaintext key is never persisted.
type Session struct {
	ID            string `gorm:"primaryKey;size:36"`
	ClientID      string `gorm:"not null;index"`
	ClientName    string
	ClientVersion string
	ClientType    string `gorm:"default:'generic'"`
	ApiKeyHash    string `gorm:"column:api_key_hash;not null"`
	CreatedAt     time.Time
	LastActivity  time.Time
	IsActive      bool `gorm:"default:true;index"`
}

func (Session) TableName() string {
	return "sessions"
}
