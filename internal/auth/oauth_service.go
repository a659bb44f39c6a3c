package auth

import (
	"github.com/franciscosanchezn/credex-api/internal/config"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// OAuthService wires the secret codec, the three stores and the keyring into
// the authorization-code + PKCE exchange. All tuning (master secret, hash
// cost, TTLs, plain-PKCE policy) comes from the injected config.
type OAuthService struct {
	cfg      *config.Config
	codec    *SecretCodec
	Codes    *CodeStore
	Tokens   *TokenStore
	Sessions *SessionRegistry
	Keys     *Keyring
}

func NewOAuthService(db *gorm.DB, cfg *config.Config) (*OAuthService, error) {
	codec, err := NewSecretCodec(cfg.MasterSecret, cfg.HashCost)
	if err != nil {
		return nil, err
	}

	return &OAuthService{
		cfg:      cfg,
		codec:    codec,
		Codes:    NewCodeStore(db, codec, cfg.AllowPlainPKCE),
		Tokens:   NewTokenStore(db),
		Sessions: NewSessionRegistry(db),
		Keys:     NewKeyring(),
	}, nil
}

// Codec exposes the secret codec for callers that need Hash/Verify directly.
func (o *OAuthService) Codec() *SecretCodec {
	return o.codec
}
