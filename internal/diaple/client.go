// Package diaple is the client for the downstream case-management API
// ("DIAPLE") that ingested expedientes are forwarded to. The core treats
// it as a black box: submit and report the outcome, no retries here (a
// separate batch resync sweeps failed submissions).
package diaple

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// API is the downstream surface the provider adapters depend on.
type API interface {
	// SubmitInbound forwards a normalized case/communication.
	SubmitInbound(ctx context.Context, payload any) error

	// SubmitUnprocessable forwards a mail the classifier could not route,
	// so operators can follow it up manually.
	SubmitUnprocessable(ctx context.Context, payload any) error
}

// Client implements API over HTTP with bearer auth and request pacing.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenCache
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// NewClient builds a downstream client. The limiter may be nil to disable
// pacing (tests do that).
func NewClient(baseURL string, tokens *TokenCache, limiter *rate.Limiter, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		tokens:     tokens,
		limiter:    limiter,
		log:        log,
	}
}

// SubmitInbound posts to the inbound mail-messages endpoint.
func (c *Client) SubmitInbound(ctx context.Context, payload any) error {
	return c.post(ctx, "/attendance/cases/inboundmailmessages", payload)
}

// SubmitUnprocessable posts to the unprocessable-communications endpoint.
func (c *Client) SubmitUnprocessable(ctx context.Context, payload any) error {
	return c.post(ctx, "/communications/mailmessages/Unprocessable", payload)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	token, err := c.tokens.Get(ctx)
	if err != nil {
		return fmt.Errorf("downstream auth: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("post %s: unexpected status %d: %s", path, resp.StatusCode, msg)
	}

	c.log.Debug().Str("path", path).Msg("downstream submission accepted")
	return nil
}
