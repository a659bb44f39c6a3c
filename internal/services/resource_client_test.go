package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceClientForwardsKeyAsBearer(t *testing.T) {
	var gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/v1/user":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"u-1","email":"dev@example.com","name":"Dev"}`))
		case "/v1/plan":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"plan":"pro"}`))
		case "/v1/scopes":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"scopes":["read","write"]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer upstream.Close()

	client := NewResourceClient(upstream.URL, 5*time.Second)
	ctx := context.Background()

	user, err := client.GetUser(ctx, "sk-live-xyz")
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-live-xyz", gotAuth)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, "dev@example.com", user.Email)

	plan, err := client.GetPlan(ctx, "sk-live-xyz")
	require.NoError(t, err)
	assert.Equal(t, "pro", plan)

	scopes, err := client.GetScopes(ctx, "sk-live-xyz")
	require.NoError(t, err)
	assert.Equal(t, []string{"read", "write"}, scopes)
}

func TestResourceClientSurfacesUpstreamErrors(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer upstream.Close()

	client := NewResourceClient(upstream.URL, 5*time.Second)

	_, err := client.GetUser(context.Background(), "sk-live-xyz")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
