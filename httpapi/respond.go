package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	ideas "github.com/StackRunner1/my-ideas"
	"github.com/StackRunner1/my-ideas/supabase"
)

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	// RetryAfterSeconds is set on throttling responses.
	RetryAfterSeconds int64 `json:"retry_after_seconds,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorCode(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:      code,
		Message:   message,
		RequestID: w.Header().Get(requestIDHeader),
	}})
}

// writeError maps an engine error to its HTTP representation. Unknown
// errors become opaque 500s; the detail stays in the log, not the
// response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classifyError(err)
	writeErrorCode(w, r, status, code, message)
}

func writeThrottled(w http.ResponseWriter, r *http.Request, code, message string, wait int64) {
	writeJSON(w, http.StatusTooManyRequests, errorEnvelope{Error: errorBody{
		Code:              code,
		Message:           message,
		RequestID:         w.Header().Get(requestIDHeader),
		RetryAfterSeconds: wait,
	}})
}

func classifyError(err error) (int, string, string) {
	switch {
	case errors.Is(err, ideas.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, ideas.ErrQueryRejected):
		return http.StatusBadRequest, "QUERY_REJECTED", err.Error()
	case errors.Is(err, ideas.ErrTokenMissing):
		return http.StatusUnauthorized, "TOKEN_MISSING", "authentication required"
	case errors.Is(err, ideas.ErrTokenInvalid):
		return http.StatusUnauthorized, "TOKEN_INVALID", "invalid or expired token"
	case errors.Is(err, ideas.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password"
	case errors.Is(err, ideas.ErrRefreshInvalid):
		return http.StatusUnauthorized, "REFRESH_INVALID", "invalid refresh token"
	case errors.Is(err, ideas.ErrAgentAuthFailed):
		return http.StatusUnauthorized, "AGENT_AUTH_FAILED", "agent authentication failed"
	case errors.Is(err, ideas.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"
	case errors.Is(err, ideas.ErrCredentialsNotFound):
		return http.StatusNotFound, "AGENT_CREDENTIALS_NOT_FOUND", "agent credentials not found"
	case errors.Is(err, ideas.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, ideas.ErrAccountExists):
		return http.StatusConflict, "ACCOUNT_EXISTS", "account already exists"
	case errors.Is(err, ideas.ErrAgentAlreadyProvisioned):
		return http.StatusConflict, "AGENT_ALREADY_PROVISIONED", "agent already provisioned"
	case errors.Is(err, ideas.ErrLoginRateLimited):
		return http.StatusTooManyRequests, "LOGIN_RATE_LIMITED", "too many login attempts"
	case errors.Is(err, ideas.ErrRefreshCooldown):
		return http.StatusTooManyRequests, "REFRESH_COOLDOWN", "refresh attempted too soon"
	case errors.Is(err, ideas.ErrQueryRateLimited):
		return http.StatusTooManyRequests, "QUERY_RATE_LIMITED", "query rate limit exceeded"
	case errors.Is(err, ideas.ErrAuthBackendUnavailable):
		return http.StatusBadGateway, "AUTH_BACKEND_UNAVAILABLE", "auth backend unavailable"
	case errors.Is(err, ideas.ErrEngineNotReady):
		return http.StatusServiceUnavailable, "NOT_CONFIGURED", "feature not configured"
	}

	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusNotFound {
			return http.StatusNotFound, "NOT_FOUND", "resource not found"
		}
		if apiErr.Status == http.StatusConflict {
			return http.StatusConflict, "CONFLICT", "resource already exists"
		}
	}

	return http.StatusInternalServerError, "INTERNAL", "internal server error"
}

func decodeBody(r *http.Request, dest any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return err
	}
	return nil
}
