package auth

import (
	"context"
	"net/http"
	"net/url"

	"github.com/franciscosanchezn/credex-api/internal/models"
	"github.com/gin-gonic/gin"
)

// HandleAuthorize issues an authorization code bound to a PKCE challenge and
// the presented API key.
// @Summary Authorization Endpoint
// @Description Exchange an API key and PKCE challenge for a short-lived, single-use authorization code
// @Tags OAuth2
// @Accept application/x-www-form-urlencoded
// @Produce json
// @Param client_id formData string true "Client ID"
// @Param api_key formData string true "Long-lived API key to protect"
// @Param code_challenge formData string true "PKCE code challenge"
// @Param code_challenge_method formData string false "PKCE method: S256 (default) or plain"
// @Param scope formData string false "Requested scope"
// @Param redirect_uri formData string false "Callback target; when present the code is returned via 302"
// @Param state formData string false "Opaque client state echoed on redirect"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.OAuth2Error
// @Router /oauth/authorize [post]
func (o *OAuthService) HandleAuthorize(c *gin.Context) {
	clientID := c.PostForm("client_id")
	apiKey := c.PostForm("api_key")
	challenge := c.PostForm("code_challenge")
	challengeMethod := c.PostForm("code_challenge_method")
	scope := c.PostForm("scope")
	redirectURI := c.PostForm("redirect_uri")
	state := c.PostForm("state")

	if clientID == "" || apiKey == "" || challenge == "" {
		c.JSON(http.StatusBadRequest, models.NewOAuth2Error(models.ErrInvalidRequest,
			"client_id, api_key and code_challenge are required"))
		return
	}

	if challengeMethod == "" {
		challengeMethod = ChallengeMethodS256
	}
	if !o.challengeMethodSupported(challengeMethod) {
		c.JSON(http.StatusBadRequest, models.NewOAuth2Error(models.ErrInvalidRequest,
			"unsupported code_challenge_method"))
		return
	}

	if redirectURI != "" {
		if _, err := url.ParseRequestURI(redirectURI); err != nil {
			c.JSON(http.StatusBadRequest, models.NewOAuth2Error(models.ErrInvalidRequest,
				"malformed redirect_uri"))
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), o.cfg.StoreTimeout)
	defer cancel()

	code, err := o.Codes.Issue(ctx, clientID, redirectURI, challenge, challengeMethod, scope, apiKey, o.cfg.CodeTTL)
	if err != nil {
		log.WithError(err).WithField("client_id", clientID).Error("Failed to issue authorization code")
		c.JSON(http.StatusInternalServerError, models.NewOAuth2Error(models.ErrServerError,
			"code_generation_failed"))
		return
	}

	log.WithFields(map[string]interface{}{
		"client_id": clientID,
		"scope":     scope,
	}).Info("Authorization code issued")

	// Redirect back to the client when it declared a callback, otherwise
	// hand the code over directly
	if redirectURI != "" {
		redirectURL := redirectURI + "?code=" + url.QueryEscape(code.Code)
		if state != "" {
			redirectURL += "&state=" + url.QueryEscape(state)
		}
		c.Redirect(http.StatusFound, redirectURL)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":       code.Code,
		"expires_in": int64(o.cfg.CodeTTL.Seconds()),
	})
}

func (o *OAuthService) challengeMethodSupported(method string) bool {
	switch method {
	case ChallengeMethodS256:
		return true
	case ChallengeMethodPlain:
		return o.cfg.AllowPlainPKCE
	default:
		return false
	}
}
