package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/hkdf"
)

// SecretCodec protects raw API keys two independent ways:
//
//   - Hash/Verify: one-way bcrypt digest for long-term credential
//     verification (sessions keep only the hash).
//   - Encrypt/Decrypt: AES-256-GCM under a key derived from the process
//     master secret and the client id, for the brief code-to-token window
//     where the plaintext must be recovered exactly once.
//
// The two are not interchangeable: a hash can never be reversed, and a
// ciphertext is only readable by the client id it was sealed for.
type SecretCodec struct {
	masterSecret []byte
	hashCost     int
}

// NewSecretCodec creates a codec bound to the process master secret.
// hashCost is the bcrypt cost factor; pass bcrypt.DefaultCost in production
// and bcrypt.MinCost in tests.
func NewSecretCodec(masterSecret string, hashCost int) (*SecretCodec, error) {
	if masterSecret == "" {
		return nil, fmt.Errorf("master secret must not be empty")
	}
	if hashCost < bcrypt.MinCost || hashCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("hash cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, hashCost)
	}

	return &SecretCodec{
		masterSecret: []byte(masterSecret),
		hashCost:     hashCost,
	}, nil
}

// Hash returns a one-way bcrypt digest of the secret.
func (c *SecretCodec) Hash(secret string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), c.hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether secret matches digest. A malformed or mismatched
// digest yields false, never an error: callers treat verification failure as
// a wrong key, not a system fault.
func (c *SecretCodec) Verify(secret, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
}

// Encrypt seals the secret with AES-256-GCM under the clientID-derived key.
// Each call draws a fresh nonce, so two encryptions of the same plaintext
// differ. The result is base64(nonce || ciphertext || tag), safe for a text
// column.
func (c *SecretCodec) Encrypt(secret, clientID string) (string, error) {
	gcm, err := c.aead(clientID)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal prepends the nonce by using the nonce slice as destination,
	// producing the storage format [nonce][ciphertext][tag]
	ciphertext := gcm.Seal(nonce, nonce, []byte(secret), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt opens a ciphertext produced by Encrypt for the same clientID.
// A ciphertext sealed under a different client id, tampered with, or
// malformed fails with ErrDecryptionFailed; the GCM authentication tag is
// the enforcement mechanism.
func (c *SecretCodec) Decrypt(encoded, clientID string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: malformed encoding", ErrDecryptionFailed)
	}

	gcm, err := c.aead(clientID)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecryptionFailed)
	}

	return string(plaintext), nil
}

// aead builds the AES-256-GCM cipher for a client. The 32-byte key comes
// from HKDF-SHA256 over the master secret with the client id as info, so
// every client gets a distinct key without any per-client key storage.
func (c *SecretCodec) aead(clientID string) (cipher.AEAD, error) {
	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, c.masterSecret, nil, []byte("credex/api-key/"+clientID))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
