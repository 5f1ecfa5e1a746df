// Package llm is a minimal OpenAI-compatible chat completion client
// with tool calling, JSON response mode, and per-call cost accounting.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const defaultEndpoint = "https://api.openai.com/v1/chat/completions"

// ErrMissingAPIKey is returned by NewClient when no API key is
// configured and none is present in the environment.
var ErrMissingAPIKey = errors.New("llm: api key not configured")

// ErrEmptyResponse is returned when the API answers with no choices.
var ErrEmptyResponse = errors.New("llm: empty response from model")

// Config controls the chat completion client. Zero-value fields fall
// back to environment variables and then to built-in defaults.
type Config struct {
	// APIKey authenticates against the completion endpoint. Falls
	// back to OPENAI_API_KEY.
	APIKey string
	// Model names the completion model. Falls back to
	// OPENAI_DEFAULT_MODEL, then "gpt-4o-mini".
	Model string
	// Endpoint is the chat completions URL. Falls back to
	// OPENAI_API_ENDPOINT, then the public OpenAI endpoint.
	Endpoint string
	// Timeout bounds a single API round trip. Defaults to 60s.
	Timeout time.Duration
	// MaxTokens caps the completion length. Defaults to 1000.
	MaxTokens int
	// Temperature controls sampling. Defaults to 0.3.
	Temperature float64
	// MaxRetries bounds total attempts per call; transient statuses
	// and connection failures are retried with exponential backoff.
	// Defaults to 3.
	MaxRetries int
}

func (c Config) withDefaults() Config {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Model == "" {
		c.Model = os.Getenv("OPENAI_DEFAULT_MODEL")
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.Endpoint == "" {
		c.Endpoint = os.Getenv("OPENAI_API_ENDPOINT")
	}
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoint
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1000
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.3
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	return c
}

// Client talks to an OpenAI-compatible chat completions endpoint. A
// Client is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient builds a Client from cfg, applying environment fallbacks
// and defaults.
func NewClient(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Model reports the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// Chat sends messages to the model. When tools is non-empty the model
// may answer with tool calls instead of content; the caller executes
// them and calls Chat again with the tool results appended.
func (c *Client) Chat(ctx context.Context, messages []Message, tools []ToolDef) (*Response, error) {
	req := chatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}
	return c.complete(ctx, req)
}

// ChatJSON sends messages with response_format set to json_object, so
// the model must answer with a single JSON document. The system or
// user prompt must mention JSON for the API to accept the request.
func (c *Client) ChatJSON(ctx context.Context, messages []Message) (*Response, error) {
	req := chatCompletionRequest{
		Model:          c.cfg.Model,
		Messages:       messages,
		Temperature:    c.cfg.Temperature,
		MaxTokens:      c.cfg.MaxTokens,
		ResponseFormat: map[string]any{"type": "json_object"},
	}
	return c.complete(ctx, req)
}

func (c *Client) complete(ctx context.Context, req chatCompletionRequest) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var out *Response
	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			// Timeouts and connection failures are retryable.
			return fmt.Errorf("call completion api: %w", err)
		}
		defer httpResp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 4<<20))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		var apiResp chatCompletionResponse
		if err := json.Unmarshal(respBody, &apiResp); err != nil {
			// Gateways answer retryable statuses with non-JSON
			// bodies, so the decode failure is not authoritative.
			decodeErr := fmt.Errorf("decode response (status %d): %w", httpResp.StatusCode, err)
			if isRetryableStatus(httpResp.StatusCode) {
				return decodeErr
			}
			return backoff.Permanent(decodeErr)
		}
		if apiResp.Error != nil {
			apiErr := fmt.Errorf("completion api error (status %d): %s", httpResp.StatusCode, apiResp.Error.Message)
			if isRetryableStatus(httpResp.StatusCode) {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		if httpResp.StatusCode != http.StatusOK {
			statusErr := fmt.Errorf("completion api status %d: %s", httpResp.StatusCode, string(respBody))
			if isRetryableStatus(httpResp.StatusCode) {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}
		if len(apiResp.Choices) == 0 {
			return backoff.Permanent(ErrEmptyResponse)
		}

		ch := apiResp.Choices[0]
		out = &Response{
			Content:      ch.Message.Content,
			ToolCalls:    ch.Message.ToolCalls,
			FinishReason: ch.FinishReason,
			Usage: Usage{
				InputTokens:  apiResp.Usage.PromptTokens,
				OutputTokens: apiResp.Usage.CompletionTokens,
				TotalTokens:  apiResp.Usage.TotalTokens,
				CostUSD:      estimateCost(apiResp.Model, apiResp.Usage.PromptTokens, apiResp.Usage.CompletionTokens),
			},
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.cfg.MaxRetries-1)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return out, nil
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Dollar cost per million tokens, input and output.
var modelPricing = map[string][2]float64{
	"gpt-4o":       {2.50, 10.00},
	"gpt-4o-mini":  {0.15, 0.60},
	"gpt-4.1":      {2.00, 8.00},
	"gpt-4.1-mini": {0.40, 1.60},
}

func estimateCost(model string, inputTokens, outputTokens int) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		// Unknown models bill as gpt-4o-mini rather than zero so
		// usage is never silently free.
		pricing = modelPricing["gpt-4o-mini"]
	}
	return float64(inputTokens)/1e6*pricing[0] + float64(outputTokens)/1e6*pricing[1]
}
