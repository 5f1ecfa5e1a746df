package ideas

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess            = "login_success"
	auditEventLoginFailure            = "login_failure"
	auditEventLoginRateLimited        = "login_rate_limited"
	auditEventSignupSuccess           = "signup_success"
	auditEventSignupFailure           = "signup_failure"
	auditEventSignupDuplicate         = "signup_duplicate"
	auditEventRefreshSuccess          = "refresh_success"
	auditEventRefreshInvalid          = "refresh_invalid"
	auditEventRefreshCooldownRejected = "refresh_cooldown_rejected"
	auditEventLogout                  = "logout"
	auditEventProfileUpdated          = "profile_updated"
	auditEventProfileUpdateFailed     = "profile_update_failed"
	auditEventAgentProvisioned        = "agent_provisioned"
	auditEventAgentSessionResolved    = "agent_session_resolved"
	auditEventAgentSignIn             = "agent_sign_in"
	auditEventAgentRefreshFallback    = "agent_refresh_fallback"
	auditEventAgentAuthFailure        = "agent_auth_failure"
	auditEventAgentRevoked            = "agent_revoked"
	auditEventQueryExecuted           = "query_executed"
	auditEventQueryRejected           = "query_rejected"
	auditEventQueryRateLimited        = "query_rate_limited"
	auditEventRateLimitTriggered      = "rate_limit_triggered"
)

// AuditErrorCode defines a public type used by the ideas engine APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrUnauthorized        AuditErrorCode = "unauthorized"
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrRateLimited         AuditErrorCode = "rate_limited"
	auditErrRefreshCooldown     AuditErrorCode = "refresh_cooldown"
	auditErrInvalidToken        AuditErrorCode = "invalid_token"
	auditErrMissingToken        AuditErrorCode = "missing_token"
	auditErrCredentialsNotFound AuditErrorCode = "agent_credentials_not_found"
	auditErrInvalidCiphertext   AuditErrorCode = "invalid_ciphertext"
	auditErrAgentAuthFailed     AuditErrorCode = "agent_auth_failed"
	auditErrProvisionFailed     AuditErrorCode = "agent_provision_failed"
	auditErrQueryRejected       AuditErrorCode = "query_rejected"
	auditErrDuplicate           AuditErrorCode = "duplicate"
	auditErrUnavailable         AuditErrorCode = "backend_unavailable"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	agentID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		AgentID:   agentID,
		RequestID: requestIDFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(
	ctx context.Context,
	scope string,
	userID string,
	metadataBuilder func() map[string]string,
) {
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, userID, "", nil, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrQueryRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrRefreshCooldown):
		return auditErrRefreshCooldown
	case errors.Is(err, ErrRefreshInvalid),
		errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrTokenMissing):
		return auditErrMissingToken
	case errors.Is(err, ErrCredentialsNotFound):
		return auditErrCredentialsNotFound
	case errors.Is(err, ErrInvalidCiphertext):
		return auditErrInvalidCiphertext
	case errors.Is(err, ErrAgentAuthFailed):
		return auditErrAgentAuthFailed
	case errors.Is(err, ErrAgentProvisionFailed),
		errors.Is(err, ErrAgentAlreadyProvisioned):
		return auditErrProvisionFailed
	case errors.Is(err, ErrQueryRejected):
		return auditErrQueryRejected
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrAuthBackendUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
