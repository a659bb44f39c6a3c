package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/franciscosanchezn/credex-api/internal/models"
	"github.com/gin-gonic/gin"
)

// HandleToken handles the token endpoint for the authorization_code grant
// @Summary Token Endpoint
// @Description Redeem an authorization code plus PKCE verifier for an access token
// @Tags OAuth2
// @Accept application/x-www-form-urlencoded
// @Produce json
// @Param grant_type formData string true "Grant type: authorization_code"
// @Param code formData string true "Authorization code"
// @Param code_verifier formData string true "PKCE code verifier"
// @Param client_id formData string true "Client ID"
// @Param client_name formData string false "Client-declared application name"
// @Param client_version formData string false "Client-declared version"
// @Param client_type formData string false "Client category, defaults to generic"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.OAuth2Error
// @Failure 503 {object} models.OAuth2Error
// @Router /oauth/token [post]
func (o *OAuthService) HandleToken(c *gin.Context) {
	grantType := c.PostForm("grant_type")

	switch grantType {
	case "authorization_code":
		o.handleAuthorizationCode(c)
	default:
		c.JSON(http.StatusBadRequest, models.NewOAuth2Error(models.ErrUnsupportedGrantType,
			"only authorization_code is supported"))
	}
}

func (o *OAuthService) handleAuthorizationCode(c *gin.Context) {
	code := c.PostForm("code")
	verifier := c.PostForm("code_verifier")
	clientID := c.PostForm("client_id")

	if code == "" || verifier == "" || clientID == "" {
		c.JSON(http.StatusBadRequest, models.NewOAuth2Error(models.ErrInvalidRequest,
			"code, code_verifier and client_id are required"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), o.cfg.StoreTimeout)
	defer cancel()

	grant, err := o.Codes.Redeem(ctx, code, verifier)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			log.WithError(err).Error("Code redemption hit a store fault")
			c.JSON(http.StatusServiceUnavailable, models.NewOAuth2Error(models.ErrServerError,
				"temporarily unavailable"))
			return
		}
		// Unknown code, expired code, verifier mismatch and decryption
		// failure all collapse into one generic rejection so the response
		// is no oracle for which part failed
		log.WithField("client_id", clientID).Info("Code redemption rejected")
		c.JSON(http.StatusBadRequest, models.NewOAuth2Error(models.ErrInvalidGrant,
			"authorization code is invalid or expired"))
		return
	}

	if grant.ClientID != clientID {
		c.JSON(http.StatusBadRequest, models.NewOAuth2Error(models.ErrInvalidGrant,
			"authorization code is invalid or expired"))
		return
	}

	apiKeyHash, err := o.codec.Hash(grant.ApiKey)
	if err != nil {
		log.WithError(err).Error("Failed to hash api key")
		c.JSON(http.StatusInternalServerError, models.NewOAuth2Error(models.ErrServerError,
			"token_generation_failed"))
		return
	}

	session, err := o.Sessions.OpenOrReuse(ctx,
		clientID,
		c.PostForm("client_name"),
		c.PostForm("client_version"),
		c.PostForm("client_type"),
		apiKeyHash,
	)
	if err != nil {
		log.WithError(err).Error("Failed to open session")
		c.JSON(http.StatusServiceUnavailable, models.NewOAuth2Error(models.ErrServerError,
			"temporarily unavailable"))
		return
	}

	token, err := o.Tokens.Issue(ctx, clientID, grant.Scope, &session.ID, o.cfg.TokenTTL)
	if err != nil {
		log.WithError(err).Error("Failed to issue access token")
		c.JSON(http.StatusServiceUnavailable, models.NewOAuth2Error(models.ErrServerError,
			"temporarily unavailable"))
		return
	}

	// The plaintext key lives only here from now on; the session row keeps
	// just the hash
	o.Keys.Put(session.ID, grant.ApiKey)

	log.WithFields(map[string]interface{}{
		"client_id":  clientID,
		"session_id": session.ID,
		"scope":      grant.Scope,
	}).Info("Access token issued")

	c.JSON(http.StatusOK, gin.H{
		"access_token": token.Token,
		"token_type":   "Bearer",
		"expires_in":   int64(o.cfg.TokenTTL.Seconds()),
		"scope":        token.Scope,
		"session_id":   session.ID,
	})
}

// HandleRevoke handles RFC 7009 style token revocation
// @Summary Revocation Endpoint
// @Description Revoke an access token; revoking an unknown token succeeds
// @Tags OAuth2
// @Accept application/x-www-form-urlencoded
// @Produce json
// @Param token formData string true "Token to revoke"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.OAuth2Error
// @Router /oauth/revoke [post]
func (o *OAuthService) HandleRevoke(c *gin.Context) {
	token := c.PostForm("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, models.NewOAuth2Error(models.ErrInvalidRequest,
			"token is required"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), o.cfg.StoreTimeout)
	defer cancel()

	if err := o.Tokens.Revoke(ctx, token); err != nil {
		log.WithError(err).Error("Failed to revoke token")
		c.JSON(http.StatusServiceUnavailable, models.NewOAuth2Error(models.ErrServerError,
			"temporarily unavailable"))
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

// HandleMetadata serves OAuth authorization server metadata (RFC 8414) so
// clients can discover the stable endpoint paths.
// @Summary Authorization Server Metadata
// @Tags OAuth2
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /.well-known/oauth-authorization-server [get]
func (o *OAuthService) HandleMetadata(c *gin.Context) {
	issuer := "http://" + c.Request.Host
	methods := []string{ChallengeMethodS256}
	if o.cfg.AllowPlainPKCE {
		methods = append(methods, ChallengeMethodPlain)
	}

	c.JSON(http.StatusOK, gin.H{
		"issuer":                                issuer,
		"authorization_endpoint":                issuer + "/oauth/authorize",
		"token_endpoint":                        issuer + "/oauth/token",
		"revocation_endpoint":                   issuer + "/oauth/revoke",
		"grant_types_supported":                 []string{"authorization_code"},
		"response_types_supported":              []string{"code"},
		"code_challenge_methods_supported":      methods,
		"token_endpoint_auth_methods_supported": []string{"none"},
	})
}

// HandleLogout deactivates the caller's session and revokes the presented
// token. The session row is retained for audit; only the in-process key is
// dropped.
// @Summary Logout
// @Description Deactivate the current session and revoke the presented token
// @Tags Session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} models.OAuth2Error
// @Router /api/v1/logout [post]
func (o *OAuthService) HandleLogout(c *gin.Context) {
	sessionID := c.GetString("sessionID")
	tokenValue := c.GetString("accessToken")

	ctx, cancel := context.WithTimeout(c.Request.Context(), o.cfg.StoreTimeout)
	defer cancel()

	if sessionID != "" {
		if err := o.Sessions.Deactivate(ctx, sessionID); err != nil && !errors.Is(err, ErrNotFound) {
			log.WithError(err).WithField("session_id", sessionID).Error("Failed to deactivate session")
			c.JSON(http.StatusServiceUnavailable, models.NewOAuth2Error(models.ErrServerError,
				"temporarily unavailable"))
			return
		}
		o.Keys.Drop(sessionID)
	}

	if tokenValue != "" {
		if err := o.Tokens.Revoke(ctx, tokenValue); err != nil {
			log.WithError(err).Error("Failed to revoke token on logout")
		}
	}

	log.WithField("session_id", sessionID).Info("Session deactivated")
	c.JSON(http.StatusOK, gin.H{"message": "logged_out"})
}
