package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// PKCE challenge methods (RFC 7636)
const (
	ChallengeMethodS256  = "S256"
	ChallengeMethodPlain = "plain"
)

// ComputeChallenge derives the S256 code challenge for a verifier:
// base64url(sha256(verifier)) without padding.
func ComputeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyChallenge checks a presented verifier against the stored challenge.
// "plain" is weaker than S256 and is rejected unless explicitly allowed.
// Comparisons are constant-time. A mismatch or unsupported method returns
// ErrInvalidGrant.
func VerifyChallenge(method, challenge, verifier string, allowPlain bool) error {
	switch method {
	case ChallengeMethodS256:
		computed := ComputeChallenge(verifier)
		if subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) != 1 {
			return fmt.Errorf("%w: code verifier does not match challenge", ErrInvalidGrant)
		}
		return nil
	case ChallengeMethodPlain:
		if !allowPlain {
			return fmt.Errorf("%w: plain challenge method is disabled", ErrInvalidGrant)
		}
		if subtle.ConstantTimeCompare([]byte(verifier), []byte(challenge)) != 1 {
			return fmt.Errorf("%w: code verifier does not match challenge", ErrInvalidGrant)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported challenge method %q", ErrInvalidGrant, method)
	}
}
