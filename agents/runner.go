package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/StackRunner1/my-ideas/llm"
)

// ErrMaxTurnsExceeded is returned when the conversation loop does not
// converge within the configured turn budget.
var ErrMaxTurnsExceeded = errors.New("agents: max turns exceeded")

// ChatClient is the slice of the completion client the runner needs.
// *llm.Client satisfies it.
type ChatClient interface {
	Chat(ctx context.Context, messages []llm.Message, tools []llm.ToolDef) (*llm.Response, error)
}

// ToolCallRecord describes one tool execution that happened during a
// run, for response metadata and audit.
type ToolCallRecord struct {
	Agent string `json:"agent"`
	Tool  string `json:"tool"`
	Args  string `json:"args"`
}

// Result is the outcome of one Run: the final assistant text, which
// agent produced it, and what was executed along the way.
type Result struct {
	Output    string
	Agent     string
	ToolCalls []ToolCallRecord
	Handoffs  []string
	Usage     llm.Usage
}

// Runner drives the agent loop: model call, tool execution or handoff,
// repeat until the model answers with plain content or the turn budget
// runs out.
type Runner struct {
	client   ChatClient
	sessions *SessionStore
	maxTurns int
}

// NewRunner builds a Runner. maxTurns below 1 defaults to 10.
func NewRunner(client ChatClient, sessions *SessionStore, maxTurns int) *Runner {
	if maxTurns < 1 {
		maxTurns = 10
	}
	return &Runner{client: client, sessions: sessions, maxTurns: maxTurns}
}

// Run executes one user message against the agent graph rooted at
// start, persisting the exchange in the session on success.
func (r *Runner) Run(ctx context.Context, start *Agent, sessionID, input string) (*Result, error) {
	if start == nil {
		return nil, errors.New("agents: start agent is nil")
	}
	result := &Result{Agent: start.Name}
	current := start

	history := r.sessions.History(sessionID)
	transcript := make([]llm.Message, 0, len(history)+2)
	transcript = append(transcript, history...)
	transcript = append(transcript, llm.Message{Role: "user", Content: input})

	for turn := 0; turn < r.maxTurns; turn++ {
		tools := current.allTools()
		messages := withSystemPrompt(current.Instructions, transcript)

		resp, err := r.client.Chat(ctx, messages, toolDefs(tools))
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", current.Name, err)
		}
		accumulateUsage(&result.Usage, resp.Usage)

		if !resp.ToolCallsRequested() {
			result.Output = resp.Content
			result.Agent = current.Name
			r.sessions.Append(sessionID,
				llm.Message{Role: "user", Content: input},
				llm.Message{Role: "assistant", Content: resp.Content},
			)
			return result, nil
		}

		// A handoff wins over tool execution in the same turn; the
		// remaining calls are dropped and the new agent re-reads the
		// transcript.
		if next := handoffTarget(current, resp.ToolCalls); next != nil {
			result.Handoffs = append(result.Handoffs, next.Name)
			current = next
			continue
		}

		transcript = append(transcript, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			tool := current.findTool(call.Function.Name)
			var output string
			if tool == nil {
				output = toolErrorPayload(fmt.Errorf("unknown tool %q", call.Function.Name))
			} else {
				output = executeTool(ctx, tool, call.Function.Arguments)
				result.ToolCalls = append(result.ToolCalls, ToolCallRecord{
					Agent: current.Name,
					Tool:  call.Function.Name,
					Args:  call.Function.Arguments,
				})
			}
			transcript = append(transcript, llm.Message{
				Role:       "tool",
				Content:    output,
				ToolCallID: call.ID,
			})
		}
	}

	return nil, fmt.Errorf("%w: no final answer after %d turns", ErrMaxTurnsExceeded, r.maxTurns)
}

func withSystemPrompt(instructions string, transcript []llm.Message) []llm.Message {
	messages := make([]llm.Message, 0, len(transcript)+1)
	messages = append(messages, llm.Message{Role: "system", Content: instructions})
	return append(messages, transcript...)
}

func handoffTarget(current *Agent, calls []llm.ToolCall) *Agent {
	for _, call := range calls {
		if next := current.findHandoff(call.Function.Name); next != nil {
			return next
		}
	}
	return nil
}

func accumulateUsage(total *llm.Usage, u llm.Usage) {
	total.InputTokens += u.InputTokens
	total.OutputTokens += u.OutputTokens
	total.TotalTokens += u.TotalTokens
	total.CostUSD += u.CostUSD
}
