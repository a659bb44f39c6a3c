package auth

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Failure taxonomy for the credential exchange. Credential-class failures
// (ErrInvalidGrant, ErrDecryptionFailed, verify mismatches) are routine
// outcomes and must never be escalated; ErrStoreUnavailable marks a
// server-side persistence fault and is the only one that should surface as a
// 5xx to callers.
var (
	// ErrNotFound means the code, token or session id is unknown to the store.
	ErrNotFound = errors.New("not found")

	// ErrExpired means the record exists but is past its absolute deadline.
	ErrExpired = errors.New("expired")

	// ErrInvalidGrant means the PKCE verifier did not match the challenge, or
	// the challenge method is unsupported.
	ErrInvalidGrant = errors.New("invalid grant")

	// ErrInactive means the session exists but has been deactivated.
	ErrInactive = errors.New("session inactive")

	// ErrDecryptionFailed means ciphertext authentication failed: wrong
	// client binding, tampering, or a malformed encoding.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrStoreUnavailable means the persistence layer faulted or timed out.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// storeErr maps persistence faults into the taxonomy. Unknown rows become
// ErrNotFound; deadline, cancellation and driver faults become
// ErrStoreUnavailable so callers can distinguish client-credential failures
// from server-side ones.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
