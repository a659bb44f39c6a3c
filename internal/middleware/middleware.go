package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/franciscosanchezn/credex-api/internal/auth"
	"github.com/gin-gonic/gin"
)

// BearerAuth validates an opaque access token per RFC 6750 and resolves it
// to its session. Validity is a store lookup, not an offline check: the
// token must exist, be unexpired, and its session must still be active. The
// session's last_activity is refreshed on every authorized request.
//
// On success the context carries "clientID", "scopes", "sessionID" and
// "accessToken".
func BearerAuth(tokens *auth.TokenStore, sessions *auth.SessionRegistry, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		// RFC 6750: Extract Bearer token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			respondWithOAuth2Error(c, http.StatusUnauthorized, "authorization_required",
				"Missing Authorization header. A valid Bearer token is required.")
			return
		}

		// Validate Bearer scheme format
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respondWithOAuth2Error(c, http.StatusUnauthorized, "invalid_request",
				"Authorization header must use Bearer scheme. Format: 'Bearer <token>'")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == "" {
			respondWithOAuth2Error(c, http.StatusUnauthorized, "invalid_token",
				"Bearer token is empty")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		info, err := tokens.Validate(ctx, tokenString)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrStoreUnavailable):
				respondWithOAuth2Error(c, http.StatusServiceUnavailable, "server_error",
					"Temporarily unavailable")
			default:
				// Unknown and expired tokens get the same rejection
				respondWithOAuth2Error(c, http.StatusUnauthorized, "invalid_token",
					"Access token is invalid or expired")
			}
			return
		}

		c.Set("clientID", info.ClientID)
		c.Set("scopes", info.Scope)
		c.Set("accessToken", tokenString)

		// Tokens minted through the code exchange are always session-bound;
		// the reference is weak, so resolve it here
		if info.SessionID != nil {
			if err := sessions.Touch(ctx, *info.SessionID); err != nil {
				switch {
				case errors.Is(err, auth.ErrInactive):
					respondWithOAuth2Error(c, http.StatusUnauthorized, "invalid_token",
						"Session has been deactivated")
				case errors.Is(err, auth.ErrNotFound):
					respondWithOAuth2Error(c, http.StatusUnauthorized, "invalid_token",
						"Session no longer exists")
				default:
					respondWithOAuth2Error(c, http.StatusServiceUnavailable, "server_error",
						"Temporarily unavailable")
				}
				return
			}
			c.Set("sessionID", *info.SessionID)
		}

		c.Next()
	}
}

// respondWithOAuth2Error responds with RFC 6750 compliant error format
func respondWithOAuth2Error(c *gin.Context, status int, errorCode, description string) {
	c.JSON(status, gin.H{
		"error":             errorCode,
		"error_description": description,
	})
	c.Abort()
}
