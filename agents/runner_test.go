package agents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/StackRunner1/my-ideas/llm"
)

// scriptedClient replays canned responses and records every request it
// receives.
type scriptedClient struct {
	responses []*llm.Response
	calls     [][]llm.Message
	tools     [][]llm.ToolDef
	err       error
}

func (c *scriptedClient) Chat(ctx context.Context, messages []llm.Message, tools []llm.ToolDef) (*llm.Response, error) {
	c.calls = append(c.calls, messages)
	c.tools = append(c.tools, tools)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.responses) == 0 {
		return &llm.Response{Content: "done", FinishReason: "stop"}, nil
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

type echoTool struct {
	executed int
	lastArgs map[string]any
}

func (t *echoTool) Name() string                { return "echo" }
func (t *echoTool) Description() string         { return "Echo the input back." }
func (t *echoTool) InputSchema() map[string]any { return map[string]any{"type": "object"} }
func (t *echoTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	t.executed++
	t.lastArgs = args
	return map[string]any{"echo": args["text"]}, nil
}

func textReply(content string) *llm.Response {
	return &llm.Response{Content: content, FinishReason: "stop"}
}

func toolReply(name, args string) *llm.Response {
	return &llm.Response{
		FinishReason: "tool_calls",
		ToolCalls: []llm.ToolCall{{
			ID:       "call_1",
			Type:     "function",
			Function: llm.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func TestRunPlainAnswerNoTools(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{textReply("hello there")}}
	runner := NewRunner(client, NewSessionStore(0), 5)
	agent := &Agent{Name: "Solo", Instructions: "answer"}

	result, err := runner.Run(context.Background(), agent, "s1", "hi")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Output != "hello there" || result.Agent != "Solo" {
		t.Fatalf("result = %+v", result)
	}
	if len(result.ToolCalls) != 0 || len(result.Handoffs) != 0 {
		t.Fatalf("unexpected activity: %+v", result)
	}
	if client.calls[0][0].Role != "system" || client.calls[0][0].Content != "answer" {
		t.Fatalf("system prompt missing: %+v", client.calls[0])
	}
}

func TestRunExecutesToolThenAnswers(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		toolReply("echo", `{"text":"ping"}`),
		textReply("echoed ping"),
	}}
	tool := &echoTool{}
	runner := NewRunner(client, NewSessionStore(0), 5)
	agent := &Agent{Name: "Solo", Instructions: "answer", Tools: []Tool{tool}}

	result, err := runner.Run(context.Background(), agent, "s1", "say ping")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tool.executed != 1 || tool.lastArgs["text"] != "ping" {
		t.Fatalf("tool execution: count=%d args=%v", tool.executed, tool.lastArgs)
	}
	if len(result.ToolCalls) != 1 || result.ToolCalls[0].Tool != "echo" {
		t.Fatalf("tool calls = %+v", result.ToolCalls)
	}
	// Second model call must carry the tool result message.
	second := client.calls[1]
	last := second[len(second)-1]
	if last.Role != "tool" || last.ToolCallID != "call_1" {
		t.Fatalf("tool result message = %+v", last)
	}
	if !strings.Contains(last.Content, `"success":true`) {
		t.Fatalf("tool payload = %q", last.Content)
	}
}

func TestRunHandoffSwitchesAgent(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		toolReply("transfer_to_ideas", "{}"),
		textReply("created it"),
	}}
	specialist := &Agent{Name: "Ideas", Instructions: "ideas specialist"}
	start := &Agent{Name: "Orchestrator", Instructions: "route", Handoffs: []*Agent{specialist}}
	runner := NewRunner(client, NewSessionStore(0), 5)

	result, err := runner.Run(context.Background(), start, "s1", "create an idea")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Agent != "Ideas" {
		t.Fatalf("final agent = %q", result.Agent)
	}
	if len(result.Handoffs) != 1 || result.Handoffs[0] != "Ideas" {
		t.Fatalf("handoffs = %v", result.Handoffs)
	}
	// First call advertises the handoff tool; second call runs under
	// the specialist's system prompt.
	if client.tools[0][0].Function.Name != "transfer_to_ideas" {
		t.Fatalf("first turn tools = %+v", client.tools[0])
	}
	if client.calls[1][0].Content != "ideas specialist" {
		t.Fatalf("second turn system prompt = %q", client.calls[1][0].Content)
	}
}

func TestRunMaxTurnsExceeded(t *testing.T) {
	tool := &echoTool{}
	client := &scriptedClient{responses: []*llm.Response{
		toolReply("echo", "{}"),
		toolReply("echo", "{}"),
		toolReply("echo", "{}"),
	}}
	runner := NewRunner(client, NewSessionStore(0), 3)
	agent := &Agent{Name: "Solo", Instructions: "answer", Tools: []Tool{tool}}

	_, err := runner.Run(context.Background(), agent, "s1", "loop")
	if !errors.Is(err, ErrMaxTurnsExceeded) {
		t.Fatalf("err = %v, want ErrMaxTurnsExceeded", err)
	}
}

func TestRunUnknownToolReportedToModel(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		toolReply("no_such_tool", "{}"),
		textReply("sorry"),
	}}
	runner := NewRunner(client, NewSessionStore(0), 5)
	agent := &Agent{Name: "Solo", Instructions: "answer"}

	result, err := runner.Run(context.Background(), agent, "s1", "hm")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.ToolCalls) != 0 {
		t.Fatalf("unknown tool must not be recorded: %+v", result.ToolCalls)
	}
	second := client.calls[1]
	last := second[len(second)-1]
	if !strings.Contains(last.Content, "unknown tool") {
		t.Fatalf("error payload = %q", last.Content)
	}
}

func TestRunPersistsSessionHistory(t *testing.T) {
	store := NewSessionStore(0)
	client := &scriptedClient{responses: []*llm.Response{
		textReply("first answer"),
		textReply("second answer"),
	}}
	runner := NewRunner(client, store, 5)
	agent := &Agent{Name: "Solo", Instructions: "answer"}

	if _, err := runner.Run(context.Background(), agent, "s1", "first"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := runner.Run(context.Background(), agent, "s1", "second"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Second call sees system + prior exchange + new user message.
	second := client.calls[1]
	if len(second) != 4 {
		t.Fatalf("second call carried %d messages: %+v", len(second), second)
	}
	if second[1].Content != "first" || second[2].Content != "first answer" {
		t.Fatalf("history = %+v", second)
	}
}

func TestRunUsageAccumulatesAcrossTurns(t *testing.T) {
	tool := &echoTool{}
	r1 := toolReply("echo", "{}")
	r1.Usage = llm.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15, CostUSD: 0.001}
	r2 := textReply("done")
	r2.Usage = llm.Usage{InputTokens: 20, OutputTokens: 7, TotalTokens: 27, CostUSD: 0.002}
	client := &scriptedClient{responses: []*llm.Response{r1, r2}}
	runner := NewRunner(client, NewSessionStore(0), 5)
	agent := &Agent{Name: "Solo", Instructions: "answer", Tools: []Tool{tool}}

	result, err := runner.Run(context.Background(), agent, "s1", "go")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Usage.TotalTokens != 42 || result.Usage.InputTokens != 30 {
		t.Fatalf("usage = %+v", result.Usage)
	}
}

func TestSessionStoreExpiry(t *testing.T) {
	store := NewSessionStore(time.Minute)
	now := time.Unix(1000, 0)
	store.now = func() time.Time { return now }

	store.Append("s1", llm.Message{Role: "user", Content: "hi"})
	if got := store.History("s1"); len(got) != 1 {
		t.Fatalf("history = %+v", got)
	}

	now = now.Add(2 * time.Minute)
	if got := store.History("s1"); got != nil {
		t.Fatalf("expired session returned history: %+v", got)
	}
	if store.Len() != 0 {
		t.Fatalf("store len = %d", store.Len())
	}
}

func TestSessionStoreTrimsHistory(t *testing.T) {
	store := NewSessionStore(0)
	for i := 0; i < maxHistoryMessages+10; i++ {
		store.Append("s1", llm.Message{Role: "user", Content: "m"})
	}
	if got := len(store.History("s1")); got != maxHistoryMessages {
		t.Fatalf("history length = %d, want %d", got, maxHistoryMessages)
	}
}
