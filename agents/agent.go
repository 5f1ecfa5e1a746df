package agents

import (
	"context"
	"fmt"
	"strings"
)

const handoffPrefix = "transfer_to_"

// Agent is a named participant in the conversation loop. An agent with
// handoffs can transfer control to another agent; an agent with tools
// executes them directly.
type Agent struct {
	Name         string
	Instructions string
	Tools        []Tool
	Handoffs     []*Agent
}

func (a *Agent) findTool(name string) Tool {
	for _, t := range a.Tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

func (a *Agent) findHandoff(toolName string) *Agent {
	if !strings.HasPrefix(toolName, handoffPrefix) {
		return nil
	}
	target := strings.TrimPrefix(toolName, handoffPrefix)
	for _, h := range a.Handoffs {
		if strings.EqualFold(h.Name, target) {
			return h
		}
	}
	return nil
}

// handoffTool is the synthetic tool that represents a transfer to
// another agent. It never executes; the runner intercepts it.
type handoffTool struct {
	target *Agent
}

func (h *handoffTool) Name() string {
	return handoffPrefix + strings.ToLower(h.target.Name)
}

func (h *handoffTool) Description() string {
	return fmt.Sprintf("Transfer the conversation to the %s specialist agent.", h.target.Name)
}

func (h *handoffTool) InputSchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (h *handoffTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	return nil, fmt.Errorf("handoff tool must be intercepted by the runner")
}

// allTools returns the agent's own tools plus one synthetic handoff
// tool per delegate.
func (a *Agent) allTools() []Tool {
	tools := make([]Tool, 0, len(a.Tools)+len(a.Handoffs))
	tools = append(tools, a.Tools...)
	for _, h := range a.Handoffs {
		tools = append(tools, &handoffTool{target: h})
	}
	return tools
}
