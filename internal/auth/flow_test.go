package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/franciscosanchezn/credex-api/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		MasterSecret: "test-master-secret-32-characters!",
		HashCost:     bcrypt.MinCost,
		CodeTTL:      5 * time.Minute,
		TokenTTL:     time.Hour,
		StoreTimeout: 5 * time.Second,
	}
}

func newTestService(t *testing.T, db *gorm.DB) *OAuthService {
	svc, err := NewOAuthService(db, testConfig())
	require.NoError(t, err)
	return svc
}

func newTestRouter(svc *OAuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/.well-known/oauth-authorization-server", svc.HandleMetadata)
	router.POST("/oauth/authorize", svc.HandleAuthorize)
	router.POST("/oauth/token", svc.HandleToken)
	router.POST("/oauth/revoke", svc.HandleRevoke)
	return router
}

func postForm(router *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthorizationCodeFlowEndToEnd(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	router := newTestRouter(svc)

	// Step 1: exchange an API key for an authorization code
	w := postForm(router, "/oauth/authorize", url.Values{
		"client_id":      {"abc"},
		"api_key":        {"sk-live-xyz"},
		"scope":          {"read"},
		"code_challenge": {ComputeChallenge("verifier123")},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var authResp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &authResp))
	code := authResp["code"].(string)
	assert.Len(t, code, 36)

	// Step 2: redeem the code with the PKCE verifier
	w = postForm(router, "/oauth/token", url.Values{
		"grant_type":     {"authorization_code"},
		"client_id":      {"abc"},
		"code":           {code},
		"code_verifier":  {"verifier123"},
		"client_name":    {"acme-cli"},
		"client_version": {"1.0.0"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var tokenResp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokenResp))
	assert.Equal(t, "Bearer", tokenResp["token_type"])
	assert.Equal(t, "read", tokenResp["scope"])
	accessToken := tokenResp["access_token"].(string)
	sessionID := tokenResp["session_id"].(string)
	assert.NotEmpty(t, accessToken)

	// Step 3: the token resolves to the original grant
	info, err := svc.Tokens.Validate(context.Background(), accessToken)
	require.NoError(t, err)
	assert.Equal(t, "abc", info.ClientID)
	assert.Equal(t, "read", info.Scope)
	require.NotNil(t, info.SessionID)
	assert.Equal(t, sessionID, *info.SessionID)

	// The plaintext key was recovered exactly once and parked in the keyring
	apiKey, ok := svc.Keys.Get(sessionID)
	require.True(t, ok)
	assert.Equal(t, "sk-live-xyz", apiKey)

	// Step 4: the code is single-use, re-redemption is rejected generically
	w = postForm(router, "/oauth/token", url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {"abc"},
		"code":          {code},
		"code_verifier": {"verifier123"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var errResp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "invalid_grant", errResp["error"])
}

func TestTokenEndpointRejectsWrongVerifierGenerically(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	router := newTestRouter(svc)

	w := postForm(router, "/oauth/authorize", url.Values{
		"client_id":      {"abc"},
		"api_key":        {"sk-live-xyz"},
		"code_challenge": {ComputeChallenge("verifier123")},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var authResp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &authResp))
	code := authResp["code"].(string)

	// Wrong verifier and unknown code produce the same error shape, no
	// oracle for which part failed
	wrong := postForm(router, "/oauth/token", url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {"abc"},
		"code":          {code},
		"code_verifier": {"nope"},
	})
	unknown := postForm(router, "/oauth/token", url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {"abc"},
		"code":          {"never-issued"},
		"code_verifier": {"verifier123"},
	})
	assert.Equal(t, http.StatusBadRequest, wrong.Code)
	assert.Equal(t, http.StatusBadRequest, unknown.Code)
	assert.JSONEq(t, wrong.Body.String(), unknown.Body.String())
}

func TestTokenEndpointRejectsClientMismatch(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	router := newTestRouter(svc)

	w := postForm(router, "/oauth/authorize", url.Values{
		"client_id":      {"abc"},
		"api_key":        {"sk-live-xyz"},
		"code_challenge": {ComputeChallenge("verifier123")},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var authResp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &authResp))

	w = postForm(router, "/oauth/token", url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {"someone-else"},
		"code":          {authResp["code"].(string)},
		"code_verifier": {"verifier123"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthorizeRedirectsWhenRedirectURIGiven(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	router := newTestRouter(svc)

	w := postForm(router, "/oauth/authorize", url.Values{
		"client_id":      {"abc"},
		"api_key":        {"sk-live-xyz"},
		"code_challenge": {ComputeChallenge("verifier123")},
		"redirect_uri":   {"http://localhost:9999/callback"},
		"state":          {"opaque-state"},
	})
	require.Equal(t, http.StatusFound, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/callback", location.Path)
	assert.NotEmpty(t, location.Query().Get("code"))
	assert.Equal(t, "opaque-state", location.Query().Get("state"))
}

func TestAuthorizeValidatesInput(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	router := newTestRouter(svc)

	// Missing api_key
	w := postForm(router, "/oauth/authorize", url.Values{
		"client_id":      {"abc"},
		"code_challenge": {ComputeChallenge("v")},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Plain challenge method while disabled
	w = postForm(router, "/oauth/authorize", url.Values{
		"client_id":             {"abc"},
		"api_key":               {"sk-live-xyz"},
		"code_challenge":        {"v"},
		"code_challenge_method": {"plain"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRevokeEndpointIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	router := newTestRouter(svc)

	token, err := svc.Tokens.Issue(context.Background(), "abc", "read", nil, time.Hour)
	require.NoError(t, err)

	w := postForm(router, "/oauth/revoke", url.Values{"token": {token.Token}})
	assert.Equal(t, http.StatusOK, w.Code)

	w = postForm(router, "/oauth/revoke", url.Values{"token": {token.Token}})
	assert.Equal(t, http.StatusOK, w.Code)

	_, err = svc.Tokens.Validate(context.Background(), token.Token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnsupportedGrantType(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	router := newTestRouter(svc)

	w := postForm(router, "/oauth/token", url.Values{
		"grant_type": {"client_credentials"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unsupported_grant_type", resp["error"])
}

func TestLogoutDeactivatesSessionAndRevokesToken(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	session, err := svc.Sessions.OpenOrReuse(ctx, "abc", "cli", "1.0", "", "hash")
	require.NoError(t, err)
	token, err := svc.Tokens.Issue(ctx, "abc", "read", &session.ID, time.Hour)
	require.NoError(t, err)
	svc.Keys.Put(session.ID, "sk-live-xyz")

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/logout", func(c *gin.Context) {
		// Stand-in for the bearer middleware
		c.Set("sessionID", session.ID)
		c.Set("accessToken", token.Token)
	}, svc.HandleLogout)

	w := postForm(router, "/logout", url.Values{})
	require.Equal(t, http.StatusOK, w.Code)

	assert.ErrorIs(t, svc.Sessions.Touch(ctx, session.ID), ErrInactive)
	_, err = svc.Tokens.Validate(ctx, token.Token)
	assert.ErrorIs(t, err, ErrNotFound)
	_, ok := svc.Keys.Get(session.ID)
	assert.False(t, ok)
}

func TestMetadataAdvertisesEndpoints(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	router := newTestRouter(svc)

	req := httptest.NewRequest("GET", "/.well-known/oauth-authorization-server", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Contains(t, meta["authorization_endpoint"], "/oauth/authorize")
	assert.Contains(t, meta["token_endpoint"], "/oauth/token")
	methods := meta["code_challenge_methods_supported"].([]interface{})
	assert.Equal(t, []interface{}{"S256"}, methods)
}
