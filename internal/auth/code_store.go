package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/franciscosanchezn/credex-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CodeStore manages authorization codes: short-lived, single-use grants
// carrying a PKCE challenge and the client's API key encrypted at rest.
type CodeStore struct {
	db         *gorm.DB
	codec      *SecretCodec
	allowPlain bool
}

// Grant is the result of a successful redemption: the plaintext API key is
// recovered exactly once and never persisted again.
type Grant struct {
	ClientID string
	Scope    string
	ApiKey   string
}

func NewCodeStore(db *gorm.DB, codec *SecretCodec, allowPlain bool) *CodeStore {
	return &CodeStore{db: db, codec: codec, allowPlain: allowPlain}
}

// Issue creates a fresh authorization code for the client, encrypting apiKey
// under clientID so the plaintext never reaches the database.
func (s *CodeStore) Issue(ctx context.Context, clientID, redirectURI, challenge, challengeMethod, scope, apiKey string, ttl time.Duration) (*models.AuthorizationCode, error) {
	encrypted, err := s.codec.Encrypt(apiKey, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt api key: %w", err)
	}

	now := time.Now()
	code := &models.AuthorizationCode{
		Code:                uuid.New().String(),
		ClientID:            clientID,
		RedirectURI:         redirectURI,
		CodeChallenge:       challenge,
		CodeChallengeMethod: challengeMethod,
		Scope:               scope,
		ApiKey:              encrypted,
		CreatedAt:           now,
		ExpiresAt:           now.Add(ttl),
	}

	if err := s.db.WithContext(ctx).Create(code).Error; err != nil {
		return nil, storeErr(err)
	}
	return code, nil
}

// Redeem exchanges a code plus PKCE verifier for the underlying grant.
//
// Policy: a verifier mismatch does NOT consume the code, so a client that
// sent the wrong verifier by accident can retry within the TTL; the short
// deadline and single use on success bound the replay window. Single use is
// enforced by a compare-and-delete on the code value: of two concurrent
// redeemers only the one whose delete removes the row wins, the other
// observes ErrNotFound. The delete happens before decryption so the
// invariant holds even if decryption then faults.
func (s *CodeStore) Redeem(ctx context.Context, code, verifier string) (*Grant, error) {
	var record models.AuthorizationCode
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&record).Error; err != nil {
		return nil, storeErr(err)
	}

	if record.Expired(time.Now()) {
		// Self-clean: an expired code is dead either way
		s.db.WithContext(ctx).Where("code = ?", code).Delete(&models.AuthorizationCode{})
		return nil, ErrExpired
	}

	if err := VerifyChallenge(record.CodeChallengeMethod, record.CodeChallenge, verifier, s.allowPlain); err != nil {
		return nil, err
	}

	// Compare-and-delete: losing a race with a concurrent redeemer surfaces
	// as the code never having existed
	res := s.db.WithContext(ctx).Where("code = ?", code).Delete(&models.AuthorizationCode{})
	if res.Error != nil {
		return nil, storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	apiKey, err := s.codec.Decrypt(record.ApiKey, record.ClientID)
	if err != nil {
		if errors.Is(err, ErrDecryptionFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to decrypt api key: %w", err)
	}

	return &Grant{
		ClientID: record.ClientID,
		Scope:    record.Scope,
		ApiKey:   apiKey,
	}, nil
}
