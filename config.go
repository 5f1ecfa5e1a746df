package ideas

import (
	"errors"
	"net/http"
	"time"
)

// Config defines a public type used by the ideas engine APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Supabase     SupabaseConfig
	Encryption   EncryptionConfig
	AgentSession AgentSessionConfig
	HumanSession HumanSessionConfig
	Throttle     ThrottleConfig
	AI           AIConfig
	Database     DatabaseConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
	Security     SecurityConfig
}

/*
====================================
SUPABASE CONFIG
====================================
*/

// SupabaseConfig defines a public type used by the ideas engine APIs.
//
// SupabaseConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SupabaseConfig struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
	RequestTimeout time.Duration
	MaxRetries     int
}

/*
====================================
ENCRYPTION CONFIG
====================================
*/

// EncryptionConfig defines a public type used by the ideas engine APIs.
//
// EncryptionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EncryptionConfig struct {
	// Key is the base64 encoded 32-byte AES key protecting agent
	// passwords at rest.
	Key string
}

/*
====================================
AGENT SESSION CONFIG
====================================
*/

// AgentSessionConfig defines a public type used by the ideas engine APIs.
//
// AgentSessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AgentSessionConfig struct {
	// EmailDomain is the domain under which shadow agent identities are
	// created, e.g. agent_{userID}@{EmailDomain}.
	EmailDomain string
	// SafetyMargin is subtracted from the token expiry when deciding
	// whether a cached session is still usable.
	SafetyMargin time.Duration
	// DefaultTokenTTL applies when the provider omits expires_in.
	DefaultTokenTTL time.Duration
	// PasswordLength is the byte length of generated agent passwords
	// before encoding.
	PasswordLength int
}

/*
====================================
HUMAN SESSION CONFIG
====================================
*/

// HumanSessionConfig defines a public type used by the ideas engine APIs.
//
// HumanSessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HumanSessionConfig struct {
	AccessCookieName  string
	RefreshCookieName string
	CookiePath        string
	CookieDomain      string
	// RefreshTTLFactor scales the access token lifetime to obtain the
	// refresh cookie max-age.
	RefreshTTLFactor int
	SecureCookies    bool
	SameSitePolicy   http.SameSite
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig defines a public type used by the ideas engine APIs.
//
// ThrottleConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ThrottleConfig struct {
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	RefreshCooldown       time.Duration
	QueryLimitPerMinute   int
}

/*
====================================
AI CONFIG
====================================
*/

// AIConfig defines a public type used by the ideas engine APIs.
//
// AIConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AIConfig struct {
	Model          string
	Temperature    float64
	MaxTokens      int
	RequestTimeout time.Duration
	// MaxQueryRows caps rows returned by generated SQL when the model
	// omits a LIMIT clause.
	MaxQueryRows int
	MaxTurns     int
}

/*
====================================
DATABASE CONFIG
====================================
*/

// DatabaseConfig defines a public type used by the ideas engine APIs.
//
// DatabaseConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type DatabaseConfig struct {
	URL             string
	MaxConnections  int
	MinConnections  int
	ConnMaxLifetime time.Duration
}

// AuditConfig defines a public type used by the ideas engine APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by the ideas engine APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// SecurityConfig defines a public type used by the ideas engine APIs.
//
// SecurityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityConfig struct {
	ProductionMode bool
	AllowedOrigins []string
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Supabase: SupabaseConfig{
			RequestTimeout: 30 * time.Second,
			MaxRetries:     3,
		},
		Encryption: EncryptionConfig{},
		AgentSession: AgentSessionConfig{
			EmailDomain:     "code45.internal",
			SafetyMargin:    5 * time.Minute,
			DefaultTokenTTL: time.Hour,
			PasswordLength:  32,
		},
		HumanSession: HumanSessionConfig{
			AccessCookieName:  "sb-access-token",
			RefreshCookieName: "sb-refresh-token",
			CookiePath:        "/",
			RefreshTTLFactor:  24,
			SecureCookies:     false,
			SameSitePolicy:    http.SameSiteLaxMode,
		},
		Throttle: ThrottleConfig{
			EnableIPThrottle:      true,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			RefreshCooldown:       5 * time.Second,
			QueryLimitPerMinute:   10,
		},
		AI: AIConfig{
			Model:          "gpt-4o-mini",
			Temperature:    0.3,
			MaxTokens:      1000,
			RequestTimeout: 60 * time.Second,
			MaxQueryRows:   50,
			MaxTurns:       10,
		},
		Database: DatabaseConfig{
			MaxConnections:  25,
			MinConnections:  5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Security.AllowedOrigins = append([]string(nil), cfg.Security.AllowedOrigins...)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Encryption
	if c.Encryption.Key == "" {
		return errors.New("Encryption Key is required")
	}

	// Agent session
	if c.AgentSession.EmailDomain == "" {
		return errors.New("AgentSession EmailDomain is required")
	}
	if c.AgentSession.SafetyMargin < 0 {
		return errors.New("AgentSession SafetyMargin must be >= 0")
	}
	if c.AgentSession.DefaultTokenTTL <= 0 {
		return errors.New("AgentSession DefaultTokenTTL must be > 0")
	}
	if c.AgentSession.PasswordLength < 16 {
		return errors.New("AgentSession PasswordLength must be >= 16")
	}

	// Human session
	if c.HumanSession.AccessCookieName == "" || c.HumanSession.RefreshCookieName == "" {
		return errors.New("HumanSession cookie names are required")
	}
	if c.HumanSession.RefreshTTLFactor <= 0 {
		return errors.New("HumanSession RefreshTTLFactor must be > 0")
	}

	// Throttle
	if c.Throttle.MaxLoginAttempts <= 0 {
		return errors.New("Throttle MaxLoginAttempts must be > 0")
	}
	if c.Throttle.LoginCooldownDuration <= 0 {
		return errors.New("Throttle LoginCooldownDuration must be > 0")
	}
	if c.Throttle.RefreshCooldown < 0 {
		return errors.New("Throttle RefreshCooldown must be >= 0")
	}
	if c.Throttle.QueryLimitPerMinute <= 0 {
		return errors.New("Throttle QueryLimitPerMinute must be > 0")
	}

	// AI
	if c.AI.Model == "" {
		return errors.New("AI Model is required")
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return errors.New("AI Temperature must be between 0 and 2")
	}
	if c.AI.MaxTokens <= 0 {
		return errors.New("AI MaxTokens must be > 0")
	}
	if c.AI.MaxQueryRows <= 0 {
		return errors.New("AI MaxQueryRows must be > 0")
	}
	if c.AI.MaxTurns <= 0 {
		return errors.New("AI MaxTurns must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Production hardening
	if c.Security.ProductionMode {
		if !c.HumanSession.SecureCookies {
			return errors.New("ProductionMode requires SecureCookies")
		}
		if c.HumanSession.SameSitePolicy != http.SameSiteNoneMode {
			return errors.New("ProductionMode requires SameSite=None for cross-site cookies")
		}
		if c.Throttle.RefreshCooldown <= 0 {
			return errors.New("ProductionMode requires a refresh cooldown")
		}
	}

	return nil
}
