package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/franciscosanchezn/credex-api/internal/models"
	"gorm.io/gorm"
)

// TokenStore manages opaque bearer tokens. A token is valid iff it is
// present in the store and not expired; there is no offline verification.
type TokenStore struct {
	db *gorm.DB
}

// TokenInfo is the resolved identity of a validated token.
type TokenInfo struct {
	ClientID  string
	Scope     string
	SessionID *string
}

func NewTokenStore(db *gorm.DB) *TokenStore {
	return &TokenStore{db: db}
}

// Issue mints a fresh opaque token for the client, bound to sessionID when
// given. The token value carries 256 bits from crypto/rand.
func (s *TokenStore) Issue(ctx context.Context, clientID, scope string, sessionID *string, ttl time.Duration) (*models.AccessToken, error) {
	value, err := generateTokenValue()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	token := &models.AccessToken{
		Token:     value,
		ClientID:  clientID,
		Scope:     scope,
		SessionID: sessionID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		return nil, storeErr(err)
	}
	return token, nil
}

// Validate resolves a presented token. It fails with ErrNotFound for an
// unknown token and ErrExpired past the deadline. It never mutates activity
// state; last_activity belongs to the session, not the token.
func (s *TokenStore) Validate(ctx context.Context, token string) (*TokenInfo, error) {
	var record models.AccessToken
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&record).Error; err != nil {
		return nil, storeErr(err)
	}

	if record.Expired(time.Now()) {
		return nil, ErrExpired
	}

	return &TokenInfo{
		ClientID:  record.ClientID,
		Scope:     record.Scope,
		SessionID: record.SessionID,
	}, nil
}

// Revoke deletes a token. Revoking an unknown token is not an error.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&models.AccessToken{}).Error; err != nil {
		return storeErr(err)
	}
	return nil
}

// generateTokenValue returns a base64url string carrying 256 bits of
// CSPRNG entropy. Guessability is the only defense for a bearer secret.
func generateTokenValue() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
