package ideas

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/StackRunner1/my-ideas/internal/pgrls"
	"github.com/StackRunner1/my-ideas/internal/rate"
	"github.com/StackRunner1/my-ideas/llm"
	"github.com/StackRunner1/my-ideas/nlsql"
	"go.uber.org/zap"
)

// LLMClient defines a public type used by the ideas engine APIs.
//
// LLMClient instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LLMClient interface {
	ChatJSON(ctx context.Context, messages []llm.Message) (*llm.Response, error)
}

// QueryResult defines a public type used by the ideas engine APIs.
//
// QueryResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type QueryResult struct {
	SQL          string           `json:"sql"`
	Explanation  string           `json:"explanation,omitempty"`
	Rows         []map[string]any `json:"rows"`
	RowCount     int              `json:"row_count"`
	LimitApplied bool             `json:"limit_applied"`
	Usage        llm.Usage        `json:"-"`
}

// Query describes the query operation and its observable behavior.
//
// Query may return an error when input validation, dependency calls, or security checks fail.
// Query does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Query(ctx context.Context, userID, question string) (*QueryResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if e.llm == nil || e.pool == nil {
		return nil, fmt.Errorf("%w: query path not configured", ErrEngineNotReady)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", ErrValidation)
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckQuery(ctx, userID); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricQueryRateLimited)
				e.emitAudit(ctx, auditEventQueryRateLimited, false, userID, "", ErrQueryRateLimited, nil)
				return nil, ErrQueryRateLimited
			}
			// Limiter storage loss must not take the feature down.
			e.warn("query rate limit check failed", zap.Error(err))
		}
	}

	// Resolve fresh per logical operation so the RLS identity is never
	// stale.
	sess, err := e.ResolveAgentSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp, err := e.llm.ChatJSON(ctx, nlsql.GenerationMessages(question, e.config.AI.MaxQueryRows))
	if err != nil {
		return nil, fmt.Errorf("generate sql: %w", err)
	}
	e.metricAdd(MetricLLMTokensUsed, uint64(resp.Usage.TotalTokens))
	gen, err := nlsql.ParseGeneration(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("generate sql: %w", err)
	}
	if !gen.SafetyCheck {
		return nil, e.rejectQuery(ctx, userID, question, gen.SQL, fmt.Errorf("model refused: %s", gen.Explanation))
	}
	if err := nlsql.Validate(gen.SQL); err != nil {
		return nil, e.rejectQuery(ctx, userID, question, gen.SQL, err)
	}

	sql, limitApplied := nlsql.EnsureLimit(gen.SQL, e.config.AI.MaxQueryRows)

	rows, err := pgrls.ReadRows(ctx, e.pool, sess.AgentUserID, sql)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}

	e.metricInc(MetricQueryExecuted)
	e.emitAudit(ctx, auditEventQueryExecuted, true, userID, sess.AgentUserID, nil, func() map[string]string {
		return map[string]string{
			"question":      question,
			"sql":           sql,
			"row_count":     strconv.Itoa(len(rows)),
			"limit_applied": strconv.FormatBool(limitApplied),
		}
	})

	return &QueryResult{
		SQL:          sql,
		Explanation:  gen.Explanation,
		Rows:         rows,
		RowCount:     len(rows),
		LimitApplied: limitApplied,
		Usage:        resp.Usage,
	}, nil
}

func (e *Engine) rejectQuery(ctx context.Context, userID, question, sql string, cause error) error {
	e.metricInc(MetricQueryRejected)
	e.emitAudit(ctx, auditEventQueryRejected, false, userID, "", ErrQueryRejected, func() map[string]string {
		return map[string]string{
			"question": question,
			"sql":      sql,
			"reason":   cause.Error(),
		}
	})
	return fmt.Errorf("%w: %v", ErrQueryRejected, cause)
}
