package ideas

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/StackRunner1/my-ideas/internal"
	"github.com/StackRunner1/my-ideas/session"
	"github.com/StackRunner1/my-ideas/supabase"
	"go.uber.org/zap"
)

// ResolveAgentSession returns a usable token bundle for the user's
// shadow agent identity. Cached sessions within the freshness margin
// are returned without any network traffic; stale sessions are
// refreshed, falling back to a full password sign-in when the refresh
// grant fails for any reason.
//
// ResolveAgentSession may return an error when input validation, dependency calls, or security checks fail.
// ResolveAgentSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ResolveAgentSession(ctx context.Context, userID string) (*AgentSession, error) {
	if e == nil || e.sessions == nil || e.credentials == nil || e.auth == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrUnauthorized
	}

	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricResolveLatency, time.Since(start))
		}()
	}

	cached, ok := e.sessions.Get(userID)
	if ok && cached.Fresh(e.config.AgentSession.SafetyMargin) {
		e.metricInc(MetricAgentCacheHit)
		return agentSessionFromCache(userID, cached), nil
	}
	e.metricInc(MetricAgentCacheMiss)

	cred, err := e.credentials.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrCredentialsNotFound) {
			e.metricInc(MetricCredentialsMissing)
		}
		e.emitAudit(ctx, auditEventAgentSessionResolved, false, userID, "", err, nil)
		return nil, err
	}

	if ok && cached.RefreshToken != "" {
		refreshed, refreshErr := e.refreshAgentGrant(ctx, userID, cred, cached.RefreshToken)
		if refreshErr == nil {
			e.emitAudit(ctx, auditEventAgentSessionResolved, true, userID, refreshed.AgentUserID, nil, func() map[string]string {
				return map[string]string{"path": "refresh"}
			})
			return refreshed, nil
		}
		// Any refresh failure, rejected token or transient backend
		// trouble alike, drops the stale entry and retries from
		// scratch. The password sign-in's own error is the one the
		// caller sees.
		e.metricInc(MetricAgentRefreshFallback)
		e.sessions.Evict(userID)
		e.emitAudit(ctx, auditEventAgentRefreshFallback, true, userID, cred.AgentUserID, refreshErr, nil)
	}

	resolved, err := e.signInAgent(ctx, userID, cred)
	if err != nil {
		e.emitAudit(ctx, auditEventAgentSessionResolved, false, userID, cred.AgentUserID, err, nil)
		return nil, err
	}

	e.emitAudit(ctx, auditEventAgentSessionResolved, true, userID, resolved.AgentUserID, nil, func() map[string]string {
		return map[string]string{"path": "sign_in"}
	})
	return resolved, nil
}

// RefreshAgentSession forces a token refresh for the user's agent,
// bypassing the freshness check. When the refresh grant fails it falls
// back to a full password sign-in and reports that in the outcome.
//
// RefreshAgentSession may return an error when input validation, dependency calls, or security checks fail.
// RefreshAgentSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RefreshAgentSession(ctx context.Context, userID string) (*RefreshOutcome, error) {
	if e == nil || e.sessions == nil || e.credentials == nil || e.auth == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrUnauthorized
	}

	cred, err := e.credentials.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrCredentialsNotFound) {
			e.metricInc(MetricCredentialsMissing)
		}
		return nil, err
	}

	cached, ok := e.sessions.Get(userID)
	if ok && cached.RefreshToken != "" {
		refreshed, refreshErr := e.refreshAgentGrant(ctx, userID, cred, cached.RefreshToken)
		if refreshErr == nil {
			return &RefreshOutcome{Session: refreshed}, nil
		}
		e.metricInc(MetricAgentRefreshFallback)
		e.sessions.Evict(userID)
		e.emitAudit(ctx, auditEventAgentRefreshFallback, true, userID, cred.AgentUserID, refreshErr, nil)
	}

	resolved, err := e.signInAgent(ctx, userID, cred)
	if err != nil {
		return nil, err
	}
	return &RefreshOutcome{Session: resolved, Reauthenticated: true}, nil
}

// RevokeAgentSession drops the cached agent session for the user. The
// provider-side session is left alone: the next ResolveAgentSession
// call establishes a fresh one from stored credentials.
//
// RevokeAgentSession may return an error when input validation, dependency calls, or security checks fail.
// RevokeAgentSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RevokeAgentSession(ctx context.Context, userID string) {
	if e == nil || e.sessions == nil || userID == "" {
		return
	}

	e.sessions.Evict(userID)
	e.metricInc(MetricAgentRevoked)
	e.emitAudit(ctx, auditEventAgentRevoked, true, userID, "", nil, nil)
}

// ProvisionAgent creates the shadow agent identity for a user: a
// confirmed provider account under the agent email domain plus an
// encrypted credential row. Provisioning an already-provisioned user
// returns [ErrAgentAlreadyProvisioned].
//
// ProvisionAgent may return an error when input validation, dependency calls, or security checks fail.
// ProvisionAgent does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ProvisionAgent(ctx context.Context, userID string) (*AgentCredential, error) {
	if e == nil || e.credentials == nil || e.auth == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrUnauthorized
	}

	if _, err := e.credentials.Get(ctx, userID); err == nil {
		return nil, ErrAgentAlreadyProvisioned
	} else if !errors.Is(err, ErrCredentialsNotFound) {
		return nil, err
	}

	password, err := internal.NewAgentPassword(e.config.AgentSession.PasswordLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAgentProvisionFailed, err)
	}

	email := internal.AgentEmail(userID, e.config.AgentSession.EmailDomain)
	agent, err := e.auth.AdminCreateUser(ctx, AdminCreateUserInput{
		Email:        email,
		Password:     password,
		EmailConfirm: true,
		Metadata: map[string]string{
			"agent_for": userID,
		},
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			err = fmt.Errorf("%w: %v", ErrAgentAlreadyProvisioned, err)
		}
		e.emitAudit(ctx, auditEventAgentProvisioned, false, userID, "", err, nil)
		return nil, err
	}

	cred := AgentCredential{
		UserID:      userID,
		AgentUserID: agent.ID,
		AgentEmail:  email,
		Password:    password,
	}
	if err := e.credentials.Create(ctx, cred); err != nil {
		e.rollbackAgentUser(ctx, agent.ID)
		e.emitAudit(ctx, auditEventAgentProvisioned, false, userID, agent.ID, err, nil)
		return nil, fmt.Errorf("%w: %v", ErrAgentProvisionFailed, err)
	}

	e.metricInc(MetricAgentProvisioned)
	e.emitAudit(ctx, auditEventAgentProvisioned, true, userID, agent.ID, nil, nil)

	return &cred, nil
}

// AgentClient returns a data client scoped to the user's agent
// identity. Every query issued through it runs under the agent's
// row-level security context.
//
// AgentClient may return an error when input validation, dependency calls, or security checks fail.
// AgentClient does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AgentClient(ctx context.Context, userID string) (*supabase.Client, error) {
	if e == nil || e.rest == nil {
		return nil, ErrEngineNotReady
	}

	sess, err := e.ResolveAgentSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.rest.WithToken(sess.AccessToken), nil
}

func (e *Engine) refreshAgentGrant(ctx context.Context, userID string, cred *AgentCredential, refreshToken string) (*AgentSession, error) {
	grant, err := e.auth.RefreshSession(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshInvalid) || errors.Is(err, ErrInvalidCredentials) {
			return nil, fmt.Errorf("%w: %v", ErrAgentAuthFailed, err)
		}
		return nil, err
	}

	sess := e.storeAgentGrant(userID, cred.AgentUserID, grant)
	e.metricInc(MetricAgentRefreshSuccess)
	e.touchCredential(ctx, userID)
	return sess, nil
}

func (e *Engine) signInAgent(ctx context.Context, userID string, cred *AgentCredential) (*AgentSession, error) {
	grant, err := e.auth.SignInWithPassword(ctx, cred.AgentEmail, cred.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			e.metricInc(MetricAgentAuthFailure)
			e.emitAudit(ctx, auditEventAgentAuthFailure, false, userID, cred.AgentUserID, ErrAgentAuthFailed, nil)
			return nil, fmt.Errorf("%w: %v", ErrAgentAuthFailed, err)
		}
		return nil, err
	}

	sess := e.storeAgentGrant(userID, cred.AgentUserID, grant)
	e.metricInc(MetricAgentSignIn)
	e.emitAudit(ctx, auditEventAgentSignIn, true, userID, cred.AgentUserID, nil, nil)
	e.touchCredential(ctx, userID)
	return sess, nil
}

func (e *Engine) storeAgentGrant(userID, agentUserID string, grant *TokenGrant) *AgentSession {
	ttl := e.config.AgentSession.DefaultTokenTTL
	if grant.ExpiresIn > 0 {
		ttl = time.Duration(grant.ExpiresIn) * time.Second
	}
	expiresAt := time.Now().Add(ttl)

	if grant.User != nil && grant.User.ID != "" {
		agentUserID = grant.User.ID
	}

	e.sessions.Put(userID, session.Agent{
		AgentUserID:  agentUserID,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    expiresAt,
	})

	return &AgentSession{
		UserID:       userID,
		AgentUserID:  agentUserID,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    expiresAt,
	}
}

func (e *Engine) touchCredential(ctx context.Context, userID string) {
	// Best-effort bookkeeping; failures never block the session.
	if err := e.credentials.TouchLastUsed(ctx, userID); err != nil {
		e.warn("agent credential touch failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

func (e *Engine) rollbackAgentUser(ctx context.Context, agentUserID string) {
	if e.admin == nil || agentUserID == "" {
		return
	}
	if err := e.admin.AdminDeleteUser(ctx, agentUserID); err != nil {
		e.warn("agent user rollback failed",
			zap.String("agent_user_id", agentUserID),
			zap.Error(err),
		)
	}
}

func agentSessionFromCache(userID string, cached session.Agent) *AgentSession {
	return &AgentSession{
		UserID:       userID,
		AgentUserID:  cached.AgentUserID,
		AccessToken:  cached.AccessToken,
		RefreshToken: cached.RefreshToken,
		ExpiresAt:    cached.ExpiresAt,
	}
}
