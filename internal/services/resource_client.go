package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ResourceAPI is the downstream resource service the exchanged tokens
// ultimately authorize against. It is only ever called with an API key that
// already passed the token exchange.
type ResourceAPI interface {
	GetUser(ctx context.Context, apiKey string) (*UserInfo, error)
	GetPlan(ctx context.Context, apiKey string) (string, error)
	GetScopes(ctx context.Context, apiKey string) ([]string, error)
}

// UserInfo is the upstream account record.
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type resourceClient struct {
	baseURL string
	http    *http.Client
}

// NewResourceClient returns a ResourceAPI talking to the configured upstream
// base URL with a bounded client timeout.
func NewResourceClient(baseURL string, timeout time.Duration) ResourceAPI {
	return &resourceClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *resourceClient) GetUser(ctx context.Context, apiKey string) (*UserInfo, error) {
	var user UserInfo
	if err := c.get(ctx, "/v1/user", apiKey, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *resourceClient) GetPlan(ctx context.Context, apiKey string) (string, error) {
	var body struct {
		Plan string `json:"plan"`
	}
	if err := c.get(ctx, "/v1/plan", apiKey, &body); err != nil {
		return "", err
	}
	return body.Plan, nil
}

func (c *resourceClient) GetScopes(ctx context.Context, apiKey string) ([]string, error) {
	var body struct {
		Scopes []string `json:"scopes"`
	}
	if err := c.get(ctx, "/v1/scopes", apiKey, &body); err != nil {
		return nil, err
	}
	return body.Scopes, nil
}

func (c *resourceClient) get(ctx context.Context, path, apiKey string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("resource api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("resource api returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode resource api response: %w", err)
	}
	return nil
}
