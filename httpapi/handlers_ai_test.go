package httpapi

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/StackRunner1/my-ideas/llm"
)

type stubLLM struct {
	mu      sync.Mutex
	content string
	calls   int
}

func (m *stubLLM) ChatJSON(_ context.Context, _ []llm.Message) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return &llm.Response{Content: m.content, FinishReason: "stop"}, nil
}

func TestAIQueryNotConfigured(t *testing.T) {
	fx := newServerFixture(t, nil)

	rec := fx.request(t, http.MethodPost, "/api/ai/query", map[string]string{"question": "how many ideas?"}, true)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "NOT_CONFIGURED" {
		t.Fatalf("code = %q", code)
	}
}

func TestAIQueryRejectsUnsafeSQL(t *testing.T) {
	model := &stubLLM{content: `{"generated_sql":"DROP TABLE ideas","explanation":"","safety_check":true}`}
	fx := newServerFixture(t, nil, withQueryPath(model))

	rec := fx.request(t, http.MethodPost, "/api/ai/query", map[string]string{"question": "drop everything"}, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "QUERY_REJECTED" {
		t.Fatalf("code = %q", code)
	}
	if model.calls != 1 {
		t.Fatalf("model calls = %d", model.calls)
	}
}

func TestAIQueryRequiresQuestion(t *testing.T) {
	model := &stubLLM{content: `{}`}
	fx := newServerFixture(t, nil, withQueryPath(model))

	rec := fx.request(t, http.MethodPost, "/api/ai/query", map[string]string{"question": "  "}, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "VALIDATION_ERROR" {
		t.Fatalf("code = %q", code)
	}
	if model.calls != 0 {
		t.Fatalf("empty question reached the model %d times", model.calls)
	}
}

func TestAgentChatNotConfigured(t *testing.T) {
	fx := newServerFixture(t, nil)

	rec := fx.request(t, http.MethodPost, "/api/agent/chat", map[string]string{"message": "hi"}, true)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "NOT_CONFIGURED" {
		t.Fatalf("code = %q", code)
	}
}

func TestAgentChatRequiresMessage(t *testing.T) {
	chat := &scriptedChat{}
	fx := newServerFixture(t, nil, withChat(chat))

	rec := fx.request(t, http.MethodPost, "/api/agent/chat", map[string]string{"message": "  "}, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if chat.calls != 0 {
		t.Fatalf("empty message reached the model %d times", chat.calls)
	}
}

func TestAgentChatPlainAnswer(t *testing.T) {
	chat := &scriptedChat{responses: []*llm.Response{
		{Content: "You have three draft ideas.", FinishReason: "stop"},
	}}
	fx := newServerFixture(t, nil, withChat(chat))

	rec := fx.request(t, http.MethodPost, "/api/agent/chat", map[string]string{"message": "what do I have?"}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeJSON(t, rec)
	if body["response"] != "You have three draft ideas." {
		t.Fatalf("response = %v", body["response"])
	}
	if body["agent_used"] != "Orchestrator" {
		t.Fatalf("agent_used = %v", body["agent_used"])
	}
	if body["session_id"] != "chat_u1" {
		t.Fatalf("session_id = %v, want the per-user default", body["session_id"])
	}
}

func TestAgentChatEchoesSessionID(t *testing.T) {
	chat := &scriptedChat{responses: []*llm.Response{
		{Content: "noted", FinishReason: "stop"},
		{Content: "noted again", FinishReason: "stop"},
	}}
	fx := newServerFixture(t, nil, withChat(chat))

	for _, want := range []string{"noted", "noted again"} {
		rec := fx.request(t, http.MethodPost, "/api/agent/chat", map[string]string{
			"message":    "remember this",
			"session_id": "s-9",
		}, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		body := decodeJSON(t, rec)
		if body["session_id"] != "s-9" {
			t.Fatalf("session_id = %v", body["session_id"])
		}
		if body["response"] != want {
			t.Fatalf("response = %v, want %q", body["response"], want)
		}
	}
}
