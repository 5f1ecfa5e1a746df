// Package agents runs a small multi-agent conversation loop: an
// orchestrator delegates to specialist agents via handoff tools, and
// specialists execute database tools through the caller's scoped
// client.
package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/StackRunner1/my-ideas/llm"
)

// Tool is one callable function exposed to the model. Execute receives
// the decoded arguments and returns a JSON-encodable result that is
// fed back to the model verbatim.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Execute(ctx context.Context, args map[string]any) (any, error)
}

func toolDefs(tools []Tool) []llm.ToolDef {
	defs := make([]llm.ToolDef, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, llm.ToolDef{
			Type: "function",
			Function: llm.FunctionDef{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.InputSchema(),
			},
		})
	}
	return defs
}

// executeTool runs the named tool against raw JSON arguments and
// serializes the result. Tool failures are reported to the model as a
// structured error payload rather than aborting the run, so the model
// can recover or apologize.
func executeTool(ctx context.Context, tool Tool, rawArgs string) string {
	args := map[string]any{}
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return toolErrorPayload(fmt.Errorf("invalid tool arguments: %w", err))
		}
	}
	result, err := tool.Execute(ctx, args)
	if err != nil {
		return toolErrorPayload(err)
	}
	encoded, err := json.Marshal(map[string]any{"success": true, "data": result})
	if err != nil {
		return toolErrorPayload(fmt.Errorf("encode tool result: %w", err))
	}
	return string(encoded)
}

func toolErrorPayload(err error) string {
	encoded, _ := json.Marshal(map[string]any{"success": false, "error": err.Error()})
	return string(encoded)
}

// Argument extraction helpers shared by the database tools. JSON
// numbers decode as float64, so integers need a conversion step.

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
