package diaple

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const tokenKey = "bearer"

// TokenCache hands out a valid bearer token for the case-management API,
// logging in again before the cached one expires. It is an explicit
// collaborator injected into whichever clients need downstream calls;
// nothing else shares token state.
type TokenCache struct {
	loginURL   string
	username   string
	password   string
	slack      time.Duration
	httpClient *http.Client

	mu    sync.Mutex
	cache *gocache.Cache
}

// NewTokenCache builds a token cache. slack is subtracted from the expiry
// reported by the login endpoint so a token is refreshed before it dies
// mid-run.
func NewTokenCache(loginURL, username, password string, slack time.Duration, httpClient *http.Client) *TokenCache {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &TokenCache{
		loginURL:   loginURL,
		username:   username,
		password:   password,
		slack:      slack,
		httpClient: httpClient,
		cache:      gocache.New(gocache.NoExpiration, 5*time.Minute),
	}
}

type loginResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Get returns a valid token, refreshing it when needed. Concurrent
// callers share one refresh.
func (t *TokenCache) Get(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if v, ok := t.cache.Get(tokenKey); ok {
		return v.(string), nil
	}

	token, ttl, err := t.login(ctx)
	if err != nil {
		return "", err
	}
	t.cache.Set(tokenKey, token, ttl)
	return token, nil
}

func (t *TokenCache) login(ctx context.Context) (string, time.Duration, error) {
	body, err := json.Marshal(map[string]string{
		"username": t.username,
		"password": t.password,
	})
	if err != nil {
		return "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.loginURL, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", 0, fmt.Errorf("login: unexpected status %d: %s", resp.StatusCode, msg)
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", 0, fmt.Errorf("decode login response: %w", err)
	}
	if lr.AccessToken == "" {
		return "", 0, fmt.Errorf("login: empty access token")
	}

	ttl := 10 * time.Minute
	if !lr.ExpiresAt.IsZero() {
		if d := time.Until(lr.ExpiresAt) - t.slack; d > 0 {
			ttl = d
		} else {
			ttl = time.Minute
		}
	}
	return lr.AccessToken, ttl, nil
}

// Invalidate drops the cached token; the next Get logs in again.
func (t *TokenCache) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Delete(tokenKey)
}
