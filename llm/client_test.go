package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newFakeAPI(t *testing.T, handler func(req chatCompletionRequest) chatCompletionResponse) (*httptest.Server, *chatCompletionRequest) {
	t.Helper()
	var captured chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		resp := handler(captured)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func textResponse(model, content string) chatCompletionResponse {
	return chatCompletionResponse{
		ID:    "chatcmpl-1",
		Model: model,
		Choices: []choice{{
			Message:      Message{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
		Usage: apiUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
	}
}

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		APIKey:      "test-key",
		Model:       "gpt-4o-mini",
		Endpoint:    endpoint,
		Timeout:     5 * time.Second,
		MaxTokens:   500,
		Temperature: 0.2,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestChatSendsConfiguredParameters(t *testing.T) {
	srv, captured := newFakeAPI(t, func(req chatCompletionRequest) chatCompletionResponse {
		return textResponse(req.Model, "hello")
	})
	client := newTestClient(t, srv.URL)

	resp, err := client.Chat(context.Background(), []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "hello" {
		t.Fatalf("content = %q, want hello", resp.Content)
	}
	if captured.Model != "gpt-4o-mini" {
		t.Fatalf("model = %q", captured.Model)
	}
	if captured.MaxTokens != 500 {
		t.Fatalf("max_tokens = %d, want 500", captured.MaxTokens)
	}
	if captured.Temperature != 0.2 {
		t.Fatalf("temperature = %v, want 0.2", captured.Temperature)
	}
	if len(captured.Tools) != 0 || captured.ToolChoice != nil {
		t.Fatal("tools must be omitted when none are provided")
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", captured.Messages)
	}
}

func TestChatToolCallRoundTrip(t *testing.T) {
	srv, captured := newFakeAPI(t, func(req chatCompletionRequest) chatCompletionResponse {
		resp := textResponse(req.Model, "")
		resp.Choices[0].Message.ToolCalls = []ToolCall{{
			ID:   "call_1",
			Type: "function",
			Function: FunctionCall{
				Name:      "list_ideas",
				Arguments: `{"status":"active"}`,
			},
		}}
		resp.Choices[0].FinishReason = "tool_calls"
		return resp
	})
	client := newTestClient(t, srv.URL)

	tools := []ToolDef{{
		Type: "function",
		Function: FunctionDef{
			Name:        "list_ideas",
			Description: "List the user's ideas",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"status": map[string]any{"type": "string"},
				},
			},
		},
	}}
	resp, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "show my ideas"}}, tools)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !resp.ToolCallsRequested() {
		t.Fatal("expected tool calls")
	}
	if resp.ToolCalls[0].Function.Name != "list_ideas" {
		t.Fatalf("tool = %q", resp.ToolCalls[0].Function.Name)
	}
	if resp.FinishReason != "tool_calls" {
		t.Fatalf("finish_reason = %q", resp.FinishReason)
	}
	if captured.ToolChoice != "auto" {
		t.Fatalf("tool_choice = %v, want auto", captured.ToolChoice)
	}
	if len(captured.Tools) != 1 || captured.Tools[0].Function.Name != "list_ideas" {
		t.Fatalf("tools = %+v", captured.Tools)
	}
}

func TestChatJSONSetsResponseFormat(t *testing.T) {
	srv, captured := newFakeAPI(t, func(req chatCompletionRequest) chatCompletionResponse {
		return textResponse(req.Model, `{"sql":"SELECT 1"}`)
	})
	client := newTestClient(t, srv.URL)

	resp, err := client.ChatJSON(context.Background(), []Message{
		{Role: "system", Content: "answer with a JSON object"},
		{Role: "user", Content: "count my ideas"},
	})
	if err != nil {
		t.Fatalf("ChatJSON: %v", err)
	}
	if captured.ResponseFormat["type"] != "json_object" {
		t.Fatalf("response_format = %v", captured.ResponseFormat)
	}
	var parsed map[string]string
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		t.Fatalf("content is not JSON: %v", err)
	}
}

func TestChatUsageAndCost(t *testing.T) {
	srv, _ := newFakeAPI(t, func(req chatCompletionRequest) chatCompletionResponse {
		resp := textResponse("gpt-4o-mini", "ok")
		resp.Usage = apiUsage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000, TotalTokens: 2_000_000}
		return resp
	})
	client := newTestClient(t, srv.URL)

	resp, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Usage.TotalTokens != 2_000_000 {
		t.Fatalf("total tokens = %d", resp.Usage.TotalTokens)
	}
	// One million in plus one million out at gpt-4o-mini pricing.
	want := 0.15 + 0.60
	if diff := resp.Usage.CostUSD - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("cost = %v, want %v", resp.Usage.CostUSD, want)
	}
}

func TestChatAPIErrorSurfaced(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"context length exceeded","type":"invalid_request_error"}}`))
	}))
	t.Cleanup(srv.Close)
	client := newTestClient(t, srv.URL)

	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if err == nil || !strings.Contains(err.Error(), "context length exceeded") {
		t.Fatalf("err = %v, want api error message", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected single attempt for 400, got %d", got)
	}
}

func TestChatRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(textResponse("gpt-4o-mini", "recovered"))
	}))
	t.Cleanup(srv.Close)
	client := newTestClient(t, srv.URL)

	resp, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Content != "recovered" {
		t.Fatalf("content = %q", resp.Content)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(Config{}); err != ErrMissingAPIKey {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	t.Setenv("OPENAI_DEFAULT_MODEL", "")
	t.Setenv("OPENAI_API_ENDPOINT", "")
	client, err := NewClient(Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client.cfg.Model != "gpt-4o-mini" {
		t.Fatalf("model = %q", client.cfg.Model)
	}
	if client.cfg.Endpoint != defaultEndpoint {
		t.Fatalf("endpoint = %q", client.cfg.Endpoint)
	}
	if client.cfg.MaxTokens != 1000 || client.cfg.Timeout != 60*time.Second {
		t.Fatalf("defaults not applied: %+v", client.cfg)
	}
}

func TestCountTokensNonZero(t *testing.T) {
	n := CountTokens("The quick brown fox jumps over the lazy dog")
	if n <= 0 {
		t.Fatalf("token count = %d", n)
	}
	msgs := []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hello there"},
	}
	// Two short messages still carry per-message overhead.
	if total := CountMessagesTokens(msgs); total < 20 {
		t.Fatalf("messages token estimate = %d", total)
	}
}
