// Package supabase is a minimal HTTP client for the Supabase auth
// (GoTrue) and data (PostgREST) APIs. It is the single client contract
// the rest of the repo builds on: every database access path, human or
// agent scoped, goes through a [Client] carrying the appropriate bearer
// token, so row-level security applies uniformly.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config holds connection parameters for one Supabase project.
type Config struct {
	URL            string
	APIKey         string
	RequestTimeout time.Duration
	MaxRetries     int
}

// Client talks to one Supabase project with one credential. Derive
// per-identity clients with [Client.WithToken]; the receiver is never
// mutated after construction.
type Client struct {
	baseURL    string
	apiKey     string
	token      string
	httpClient *http.Client
	maxRetries int
}

// New builds a Client. The API key doubles as the bearer token until
// [Client.WithToken] overrides it, matching Supabase's anon/service
// role conventions.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("supabase: URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("supabase: APIKey is required")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		token:      cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: retries,
	}, nil
}

// WithToken returns a copy of the client that authenticates as the
// given bearer. The API key header is unchanged; only the Authorization
// header differs. This is how RLS-scoped clients are minted.
func (c *Client) WithToken(token string) *Client {
	out := *c
	out.token = token
	return &out
}

// Token returns the bearer the client currently authenticates with.
func (c *Client) Token() string {
	return c.token
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, extraHeaders map[string]string, body, dest any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("supabase: marshal request: %w", err)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	operation := func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range extraHeaders {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Timeouts and connection failures are retryable.
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode >= 400 {
			apiErr := parseAPIError(resp.StatusCode, raw)
			if isTransientStatus(resp.StatusCode) {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if dest != nil && len(raw) > 0 {
			if err := json.Unmarshal(raw, dest); err != nil {
				return backoff.Permanent(fmt.Errorf("supabase: decode response: %w", err))
			}
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries-1)),
		ctx,
	)
	return backoff.Retry(operation, policy)
}

func isTransientStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
