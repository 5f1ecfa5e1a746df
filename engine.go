package ideas

import (
	"github.com/StackRunner1/my-ideas/internal/rate"
	"github.com/StackRunner1/my-ideas/session"
	"github.com/StackRunner1/my-ideas/supabase"
	"github.com/StackRunner1/my-ideas/vault"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Engine defines a public type used by the ideas engine APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config      Config
	auth        AuthProvider
	rest        *supabase.Client
	admin       *supabase.Client
	credentials CredentialStore
	vault       *vault.Vault
	sessions    *session.Cache
	rateLimiter *rate.Limiter
	audit       *auditDispatcher
	metrics     *Metrics
	logger      *zap.Logger
	llm         LLMClient
	pool        *pgxpool.Pool
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.sessions != nil {
		e.sessions.EvictAll()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// SessionCacheLen describes the sessioncachelen operation and its observable behavior.
//
// SessionCacheLen may return an error when input validation, dependency calls, or security checks fail.
// SessionCacheLen does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SessionCacheLen() int {
	if e == nil || e.sessions == nil {
		return 0
	}
	return e.sessions.Len()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n uint64) {
	if e == nil || e.metrics == nil || n == 0 {
		return
	}
	e.metrics.Add(id, n)
}

func (e *Engine) warn(msg string, fields ...zap.Field) {
	if e == nil || e.logger == nil {
		return
	}
	e.logger.Warn(msg, fields...)
}
