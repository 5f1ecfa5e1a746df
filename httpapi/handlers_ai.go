package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/StackRunner1/my-ideas/agents"
)

type aiQueryRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAIQuery(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req aiQueryRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}

	result, err := s.engine.Query(r.Context(), user.ID, req.Question)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type agentChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type agentChatResponse struct {
	Response  string                  `json:"response"`
	SessionID string                  `json:"session_id"`
	AgentUsed string                  `json:"agent_used"`
	Handoffs  []string                `json:"handoffs,omitempty"`
	ToolCalls []agents.ToolCallRecord `json:"tool_calls,omitempty"`
}

func (s *Server) handleAgentChat(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	if s.chat == nil {
		writeErrorCode(w, r, http.StatusServiceUnavailable, "NOT_CONFIGURED", "agent chat not configured")
		return
	}

	var req agentChatRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeErrorCode(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "message is required")
		return
	}

	// Session IDs are scoped to the user so one user cannot read
	// another's conversation by guessing IDs.
	publicSessionID := req.SessionID
	if publicSessionID == "" {
		publicSessionID = fmt.Sprintf("chat_%s", user.ID)
	}
	sessionID := user.ID + ":" + publicSessionID

	client, err := s.engine.AgentClient(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	orchestrator := agents.NewOrchestrator(client, user.ID)
	runner := agents.NewRunner(s.chat, s.chatSessions, s.cfg.AI.MaxTurns)

	result, err := runner.Run(r.Context(), orchestrator, sessionID, message)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, agentChatResponse{
		Response:  result.Output,
		SessionID: publicSessionID,
		AgentUsed: result.Agent,
		Handoffs:  result.Handoffs,
		ToolCalls: result.ToolCalls,
	})
}
