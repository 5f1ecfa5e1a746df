package ideas

import (
	"errors"

	"github.com/StackRunner1/my-ideas/internal/rate"
	"github.com/StackRunner1/my-ideas/session"
	"github.com/StackRunner1/my-ideas/supabase"
	"github.com/StackRunner1/my-ideas/vault"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder defines a public type used by the ideas engine APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	rest  *supabase.Client
	admin *supabase.Client

	auth        AuthProvider
	credentials CredentialStore
	vault       *vault.Vault
	auditSink   AuditSink
	logger      *zap.Logger
	llm         LLMClient
	pool        *pgxpool.Pool

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithSupabase describes the withsupabase operation and its observable behavior.
//
// WithSupabase may return an error when input validation, dependency calls, or security checks fail.
// WithSupabase does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithSupabase(rest, admin *supabase.Client) *Builder {
	b.rest = rest
	b.admin = admin
	return b
}

// WithAuthProvider describes the withauthprovider operation and its observable behavior.
//
// WithAuthProvider may return an error when input validation, dependency calls, or security checks fail.
// WithAuthProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuthProvider(p AuthProvider) *Builder {
	b.auth = p
	return b
}

// WithCredentialStore describes the withcredentialstore operation and its observable behavior.
//
// WithCredentialStore may return an error when input validation, dependency calls, or security checks fail.
// WithCredentialStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithCredentialStore(s CredentialStore) *Builder {
	b.credentials = s
	return b
}

// WithVault describes the withvault operation and its observable behavior.
//
// WithVault may return an error when input validation, dependency calls, or security checks fail.
// WithVault does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithVault(v *vault.Vault) *Builder {
	b.vault = v
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
//
// WithLogger may return an error when input validation, dependency calls, or security checks fail.
// WithLogger does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithLLM describes the withllm operation and its observable behavior.
//
// WithLLM may return an error when input validation, dependency calls, or security checks fail.
// WithLLM does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLLM(client LLMClient) *Builder {
	b.llm = client
	return b
}

// WithPostgres describes the withpostgres operation and its observable behavior.
//
// WithPostgres may return an error when input validation, dependency calls, or security checks fail.
// WithPostgres does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithPostgres(pool *pgxpool.Pool) *Builder {
	b.pool = pool
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rest := b.rest
	if rest == nil {
		var err error
		rest, err = supabase.New(supabase.Config{
			URL:            cfg.Supabase.URL,
			APIKey:         cfg.Supabase.AnonKey,
			RequestTimeout: cfg.Supabase.RequestTimeout,
			MaxRetries:     cfg.Supabase.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
	}

	admin := b.admin
	if admin == nil {
		if cfg.Supabase.ServiceRoleKey == "" {
			return nil, errors.New("Supabase ServiceRoleKey is required")
		}
		var err error
		admin, err = supabase.New(supabase.Config{
			URL:            cfg.Supabase.URL,
			APIKey:         cfg.Supabase.ServiceRoleKey,
			RequestTimeout: cfg.Supabase.RequestTimeout,
			MaxRetries:     cfg.Supabase.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
	}

	vlt := b.vault
	if vlt == nil {
		var err error
		vlt, err = vault.New(cfg.Encryption.Key)
		if err != nil {
			return nil, err
		}
	}

	auth := b.auth
	if auth == nil {
		auth = NewSupabaseAuthProvider(rest, admin)
	}

	credentials := b.credentials
	if credentials == nil {
		credentials = NewSupabaseCredentialStore(admin, vlt)
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := &Engine{
		config:      cfg,
		auth:        auth,
		rest:        rest,
		admin:       admin,
		credentials: credentials,
		vault:       vlt,
		sessions:    session.NewCache(),
		logger:      logger,
		llm:         b.llm,
		pool:        b.pool,
	}

	engine.rateLimiter = rate.New(b.redis, rate.Config{
		EnableIPThrottle:      cfg.Throttle.EnableIPThrottle,
		MaxLoginAttempts:      cfg.Throttle.MaxLoginAttempts,
		LoginCooldownDuration: cfg.Throttle.LoginCooldownDuration,
		RefreshCooldown:       cfg.Throttle.RefreshCooldown,
		QueryLimitPerMinute:   cfg.Throttle.QueryLimitPerMinute,
	})
	auditSink := b.auditSink
	if auditSink == nil && cfg.Audit.Enabled && b.logger != nil {
		auditSink = NewZapSink(logger)
	}
	engine.audit = newAuditDispatcher(cfg.Audit, auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
