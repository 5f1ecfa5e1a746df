package ideas

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/StackRunner1/my-ideas/internal/rate"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Signup registers a human user and provisions the shadow agent
// identity alongside. Agent provisioning failures are logged and do
// not fail the signup; the agent can be provisioned lazily later.
//
// Signup may return an error when input validation, dependency calls, or security checks fail.
// Signup does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Signup(ctx context.Context, email, password string) (*HumanSession, error) {
	if e == nil || e.auth == nil {
		return nil, ErrEngineNotReady
	}
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	grant, err := e.auth.SignUp(ctx, email, password)
	if err != nil {
		e.metricInc(MetricSignupFailure)
		if errors.Is(err, ErrAccountExists) {
			e.emitAudit(ctx, auditEventSignupDuplicate, false, "", "", err, func() map[string]string {
				return map[string]string{"email": email}
			})
			return nil, err
		}
		e.emitAudit(ctx, auditEventSignupFailure, false, "", "", err, nil)
		return nil, err
	}

	sess := humanSessionFromGrant(grant, email)

	if sess.UserID != "" {
		if _, provErr := e.ProvisionAgent(ctx, sess.UserID); provErr != nil &&
			!errors.Is(provErr, ErrAgentAlreadyProvisioned) {
			e.warn("agent provisioning failed during signup",
				zap.String("user_id", sess.UserID),
				zap.Error(provErr),
			)
		}
	}

	e.metricInc(MetricSignupSuccess)
	e.emitAudit(ctx, auditEventSignupSuccess, true, sess.UserID, "", nil, nil)

	return sess, nil
}

// Login performs a password grant with per-identifier and per-IP
// throttling. Attach the caller's IP via [WithClientIP] to enable the
// IP dimension.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, email, password string) (*HumanSession, error) {
	if e == nil || e.auth == nil {
		return nil, ErrEngineNotReady
	}
	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, email, ip); err != nil {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, func() map[string]string {
				return map[string]string{"identifier": email}
			})
			e.emitRateLimit(ctx, "login", "", func() map[string]string {
				return map[string]string{"identifier": email}
			})
			return nil, ErrLoginRateLimited
		}
	}

	grant, err := e.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			if e.rateLimiter != nil {
				if incErr := e.rateLimiter.IncrementLogin(ctx, email, ip); incErr != nil &&
					errors.Is(incErr, rate.ErrRateLimited) {
					e.metricInc(MetricLoginRateLimited)
					e.emitRateLimit(ctx, "login", "", func() map[string]string {
						return map[string]string{"identifier": email}
					})
					return nil, ErrLoginRateLimited
				}
			}
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
				return map[string]string{"identifier": email}
			})
			return nil, ErrInvalidCredentials
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", err, nil)
		return nil, err
	}

	if e.rateLimiter != nil {
		// Limiter reset is best-effort and must not block successful login.
		if err := e.rateLimiter.ResetLogin(ctx, email, ip); err != nil {
			e.warn("login limiter reset failed", zap.Error(err))
		}
	}

	sess := humanSessionFromGrant(grant, email)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, sess.UserID, "", nil, func() map[string]string {
		return map[string]string{"identifier": email}
	})

	return sess, nil
}

// Refresh exchanges a refresh token for a new token bundle, enforcing
// a minimum spacing between attempts per user. On a cooldown violation
// it returns [ErrRefreshCooldown] together with the remaining wait.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*HumanSession, time.Duration, error) {
	if e == nil || e.auth == nil {
		return nil, 0, ErrEngineNotReady
	}
	if refreshToken == "" {
		return nil, 0, ErrRefreshInvalid
	}

	if e.rateLimiter != nil {
		wait, err := e.rateLimiter.CheckRefreshCooldown(ctx, refreshCooldownKey(ctx, refreshToken))
		if err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricRefreshCooldownRejected)
				e.emitAudit(ctx, auditEventRefreshCooldownRejected, false, "", "", ErrRefreshCooldown, func() map[string]string {
					return map[string]string{"wait": wait.Round(time.Second).String()}
				})
				return nil, wait, ErrRefreshCooldown
			}
			// Cooldown is a politeness mechanism; fail open when redis is down.
			e.warn("refresh cooldown check failed", zap.Error(err))
		}
	}

	grant, err := e.auth.RefreshSession(ctx, refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", err, nil)
		return nil, 0, err
	}

	sess := humanSessionFromGrant(grant, "")
	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, sess.UserID, "", nil, nil)

	return sess, 0, nil
}

// Logout revokes the human session at the provider and drops the
// user's cached agent session. Both steps are best-effort; logout
// always succeeds locally.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, accessToken string) {
	if e == nil {
		return
	}

	userID := subjectFromToken(accessToken)

	if accessToken != "" && e.auth != nil {
		if err := e.auth.SignOut(ctx, accessToken); err != nil {
			e.warn("provider sign-out failed", zap.Error(err))
		}
	}
	if userID != "" {
		e.RevokeAgentSession(ctx, userID)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, userID, "", nil, nil)
}

// CurrentUser resolves an access token to its user record. The token's
// claims are inspected locally first to reject malformed input without
// a network round trip; the provider remains the authority.
//
// CurrentUser may return an error when input validation, dependency calls, or security checks fail.
// CurrentUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CurrentUser(ctx context.Context, accessToken string) (*AuthUser, error) {
	if e == nil || e.auth == nil {
		return nil, ErrEngineNotReady
	}
	if accessToken == "" {
		return nil, ErrTokenMissing
	}
	if subjectFromToken(accessToken) == "" {
		return nil, ErrTokenInvalid
	}

	return e.auth.GetUser(ctx, accessToken)
}

// UpdateProfile applies a self-service profile change for the token's
// owner. The provider enforces email uniqueness and password policy;
// the engine only rejects empty updates and malformed tokens.
//
// UpdateProfile may return an error when input validation, dependency calls, or security checks fail.
// UpdateProfile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) UpdateProfile(ctx context.Context, accessToken string, update ProfileUpdate) (*AuthUser, error) {
	if e == nil || e.auth == nil {
		return nil, ErrEngineNotReady
	}
	if accessToken == "" {
		return nil, ErrTokenMissing
	}
	userID := subjectFromToken(accessToken)
	if userID == "" {
		return nil, ErrTokenInvalid
	}
	if update.IsZero() {
		return nil, fmt.Errorf("%w: no profile fields to update", ErrValidation)
	}

	user, err := e.auth.UpdateUser(ctx, accessToken, update)
	if err != nil {
		e.metricInc(MetricProfileUpdateFailure)
		e.emitAudit(ctx, auditEventProfileUpdateFailed, false, userID, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricProfileUpdateSuccess)
	e.emitAudit(ctx, auditEventProfileUpdated, true, userID, "", nil, func() map[string]string {
		return map[string]string{
			"email_changed":    strconv.FormatBool(update.Email != ""),
			"password_changed": strconv.FormatBool(update.Password != ""),
		}
	})

	return user, nil
}

func humanSessionFromGrant(grant *TokenGrant, fallbackEmail string) *HumanSession {
	sess := &HumanSession{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresIn:    grant.ExpiresIn,
		Email:        fallbackEmail,
	}
	if sess.ExpiresIn <= 0 {
		sess.ExpiresIn = 3600
	}
	if grant.User != nil {
		sess.UserID = grant.User.ID
		if grant.User.Email != "" {
			sess.Email = grant.User.Email
		}
	}
	return sess
}

// refreshCooldownKey prefers the token subject so that rotating
// refresh tokens share one cooldown window per user.
func refreshCooldownKey(ctx context.Context, refreshToken string) string {
	if sub := subjectFromToken(tokenFromContextOrEmpty(ctx)); sub != "" {
		return sub
	}

	digest := sha256.Sum256([]byte(refreshToken))
	return hex.EncodeToString(digest[:8])
}

// subjectFromToken extracts the sub claim without verifying the
// signature. Verification belongs to the provider; this is only used
// for cache keys and audit attribution.
func subjectFromToken(accessToken string) string {
	if accessToken == "" {
		return ""
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return ""
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

type accessTokenContextKey struct{}

// WithAccessToken attaches the caller's access token to ctx so the
// refresh cooldown can key on the authenticated user instead of the
// rotating refresh token.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenContextKey{}, token)
}

func tokenFromContextOrEmpty(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	token, _ := ctx.Value(accessTokenContextKey{}).(string)
	return token
}
