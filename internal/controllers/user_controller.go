package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/franciscosanchezn/credex-api/internal/auth"
	"github.com/franciscosanchezn/credex-api/internal/services"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// UserController serves the authenticated resource endpoints. It resolves
// the caller's session to its API key and proxies account data from the
// upstream resource API.
type UserController struct {
	oauth   *auth.OAuthService
	api     services.ResourceAPI
	timeout time.Duration
}

func NewUserController(oauth *auth.OAuthService, api services.ResourceAPI, timeout time.Duration) *UserController {
	return &UserController{
		oauth:   oauth,
		api:     api,
		timeout: timeout,
	}
}

// GetCurrentUser returns the upstream account behind the caller's API key.
// Plan and scope lookups are best-effort: when the upstream cannot serve
// them the response carries the user with partial data, never an error.
// @Summary Current user
// @Description Account, plan and scope data for the session's API key
// @Tags User
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} models.OAuth2Error
// @Failure 502 {object} models.OAuth2Error
// @Router /api/v1/user [get]
func (uc *UserController) GetCurrentUser(c *gin.Context) {
	apiKey, ok := uc.sessionKey(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), uc.timeout)
	defer cancel()

	user, err := uc.api.GetUser(ctx, apiKey)
	if err != nil {
		log.WithError(err).Warn("Resource API user lookup failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream_unavailable"})
		return
	}

	response := gin.H{"user": user}

	// Plan and scopes are partial data: tolerate upstream failures
	if plan, err := uc.api.GetPlan(ctx, apiKey); err == nil {
		response["plan"] = plan
	} else {
		log.WithError(err).Debug("Plan lookup failed, returning partial data")
	}
	if scopes, err := uc.api.GetScopes(ctx, apiKey); err == nil {
		response["scopes"] = scopes
	} else {
		log.WithError(err).Debug("Scope lookup failed, returning partial data")
	}

	c.JSON(http.StatusOK, response)
}

// GetSession returns the caller's session record.
// @Summary Current session
// @Tags Session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} models.OAuth2Error
// @Router /api/v1/session [get]
func (uc *UserController) GetSession(c *gin.Context) {
	sessionID := c.GetString("sessionID")
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), uc.timeout)
	defer cancel()

	session, err := uc.oauth.Sessions.Get(ctx, sessionID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":             session.ID,
		"client_id":      session.ClientID,
		"client_name":    session.ClientName,
		"client_version": session.ClientVersion,
		"client_type":    session.ClientType,
		"created_at":     session.CreatedAt,
		"last_activity":  session.LastActivity,
		"is_active":      session.IsActive,
	})
}

// sessionKey resolves the caller's API key from the in-process keyring. A
// missing key means the process restarted since redemption; the client has
// to run the code exchange again.
func (uc *UserController) sessionKey(c *gin.Context) (string, bool) {
	sessionID := c.GetString("sessionID")
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return "", false
	}

	apiKey, ok := uc.oauth.Keys.Get(sessionID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "invalid_token",
			"error_description": "Session credentials are no longer available; re-authorize",
		})
		return "", false
	}
	return apiKey, true
}
