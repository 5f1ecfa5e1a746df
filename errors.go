package ideas

import "errors"

var (
	// ErrUnauthorized is an exported constant or variable used by the ideas engine.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrCredentialsNotFound is an exported constant or variable used by the ideas engine.
	ErrCredentialsNotFound = errors.New("agent credentials not found")
	// ErrInvalidCiphertext is an exported constant or variable used by the ideas engine.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	// ErrAgentAuthFailed is an exported constant or variable used by the ideas engine.
	ErrAgentAuthFailed = errors.New("agent authentication failed")
	// ErrAgentProvisionFailed is an exported constant or variable used by the ideas engine.
	ErrAgentProvisionFailed = errors.New("agent provisioning failed")
	// ErrAgentAlreadyProvisioned is an exported constant or variable used by the ideas engine.
	ErrAgentAlreadyProvisioned = errors.New("agent already provisioned")
	// ErrAuthBackendUnavailable is an exported constant or variable used by the ideas engine.
	ErrAuthBackendUnavailable = errors.New("auth backend unavailable")
	// ErrInvalidCredentials is an exported constant or variable used by the ideas engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginRateLimited is an exported constant or variable used by the ideas engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshCooldown is an exported constant or variable used by the ideas engine.
	ErrRefreshCooldown = errors.New("refresh attempted too soon")
	// ErrRefreshInvalid is an exported constant or variable used by the ideas engine.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrTokenInvalid is an exported constant or variable used by the ideas engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenMissing is an exported constant or variable used by the ideas engine.
	ErrTokenMissing = errors.New("no access token provided")
	// ErrSignupFailed is an exported constant or variable used by the ideas engine.
	ErrSignupFailed = errors.New("signup failed")
	// ErrAccountExists is an exported constant or variable used by the ideas engine.
	ErrAccountExists = errors.New("account already exists")
	// ErrQueryRateLimited is an exported constant or variable used by the ideas engine.
	ErrQueryRateLimited = errors.New("query rate limited")
	// ErrQueryRejected is an exported constant or variable used by the ideas engine.
	ErrQueryRejected = errors.New("query rejected by safety guard")
	// ErrEngineNotReady is an exported constant or variable used by the ideas engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrValidation is an exported constant or variable used by the ideas engine.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is an exported constant or variable used by the ideas engine.
	ErrNotFound = errors.New("resource not found")
)
