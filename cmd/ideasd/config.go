package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/viper"

	ideas "github.com/StackRunner1/my-ideas"
)

// envKeyReplacer maps "supabase.anon_key" onto IDEAS_SUPABASE_ANON_KEY.
var envKeyReplacer = strings.NewReplacer(".", "_")

// appConfig is everything the daemon needs: the engine configuration
// plus process-level settings that never reach the library.
type appConfig struct {
	Engine ideas.Config

	ListenAddr  string
	Development bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OpenAIKey      string
	OpenAIEndpoint string
}

func loadConfig(path string) (*appConfig, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.development", false)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("supabase.request_timeout", "30s")
	v.SetDefault("supabase.max_retries", 3)

	v.SetDefault("agent_session.email_domain", "code45.internal")
	v.SetDefault("agent_session.safety_margin", "5m")
	v.SetDefault("agent_session.default_token_ttl", "1h")
	v.SetDefault("agent_session.password_length", 32)

	v.SetDefault("human_session.access_cookie_name", "sb-access-token")
	v.SetDefault("human_session.refresh_cookie_name", "sb-refresh-token")
	v.SetDefault("human_session.cookie_path", "/")
	v.SetDefault("human_session.refresh_ttl_factor", 24)

	v.SetDefault("throttle.enable_ip_throttle", true)
	v.SetDefault("throttle.max_login_attempts", 5)
	v.SetDefault("throttle.login_cooldown", "15m")
	v.SetDefault("throttle.refresh_cooldown", "5s")
	v.SetDefault("throttle.query_limit_per_minute", 10)

	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.temperature", 0.3)
	v.SetDefault("ai.max_tokens", 1000)
	v.SetDefault("ai.request_timeout", "60s")
	v.SetDefault("ai.max_query_rows", 50)
	v.SetDefault("ai.max_turns", 10)

	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.buffer_size", 1024)
	v.SetDefault("audit.drop_if_full", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.latency_histograms", false)

	v.SetDefault("security.production_mode", false)
	v.SetDefault("security.allowed_origins", []string{"http://localhost:3000"})

	v.SetEnvPrefix("IDEAS")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("ideasd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ideasd/")
		if err := v.ReadInConfig(); err != nil {
			// The file is optional; env vars alone are a valid setup.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	production := v.GetBool("security.production_mode")
	sameSite := http.SameSiteLaxMode
	if production {
		sameSite = http.SameSiteNoneMode
	}

	cfg := &appConfig{
		ListenAddr:  v.GetString("server.addr"),
		Development: v.GetBool("server.development"),

		RedisAddr:     v.GetString("redis.addr"),
		RedisPassword: v.GetString("redis.password"),
		RedisDB:       v.GetInt("redis.db"),

		OpenAIKey:      v.GetString("openai.api_key"),
		OpenAIEndpoint: v.GetString("openai.endpoint"),

		Engine: ideas.Config{
			Supabase: ideas.SupabaseConfig{
				URL:            v.GetString("supabase.url"),
				AnonKey:        v.GetString("supabase.anon_key"),
				ServiceRoleKey: v.GetString("supabase.service_role_key"),
				RequestTimeout: v.GetDuration("supabase.request_timeout"),
				MaxRetries:     v.GetInt("supabase.max_retries"),
			},
			Encryption: ideas.EncryptionConfig{
				Key: v.GetString("encryption.key"),
			},
			AgentSession: ideas.AgentSessionConfig{
				EmailDomain:     v.GetString("agent_session.email_domain"),
				SafetyMargin:    v.GetDuration("agent_session.safety_margin"),
				DefaultTokenTTL: v.GetDuration("agent_session.default_token_ttl"),
				PasswordLength:  v.GetInt("agent_session.password_length"),
			},
			HumanSession: ideas.HumanSessionConfig{
				AccessCookieName:  v.GetString("human_session.access_cookie_name"),
				RefreshCookieName: v.GetString("human_session.refresh_cookie_name"),
				CookiePath:        v.GetString("human_session.cookie_path"),
				CookieDomain:      v.GetString("human_session.cookie_domain"),
				RefreshTTLFactor:  v.GetInt("human_session.refresh_ttl_factor"),
				SecureCookies:     production,
				SameSitePolicy:    sameSite,
			},
			Throttle: ideas.ThrottleConfig{
				EnableIPThrottle:      v.GetBool("throttle.enable_ip_throttle"),
				MaxLoginAttempts:      v.GetInt("throttle.max_login_attempts"),
				LoginCooldownDuration: v.GetDuration("throttle.login_cooldown"),
				RefreshCooldown:       v.GetDuration("throttle.refresh_cooldown"),
				QueryLimitPerMinute:   v.GetInt("throttle.query_limit_per_minute"),
			},
			AI: ideas.AIConfig{
				Model:          v.GetString("ai.model"),
				Temperature:    v.GetFloat64("ai.temperature"),
				MaxTokens:      v.GetInt("ai.max_tokens"),
				RequestTimeout: v.GetDuration("ai.request_timeout"),
				MaxQueryRows:   v.GetInt("ai.max_query_rows"),
				MaxTurns:       v.GetInt("ai.max_turns"),
			},
			Database: ideas.DatabaseConfig{
				URL:             v.GetString("database.url"),
				MaxConnections:  v.GetInt("database.max_connections"),
				MinConnections:  v.GetInt("database.min_connections"),
				ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			},
			Audit: ideas.AuditConfig{
				Enabled:    v.GetBool("audit.enabled"),
				BufferSize: v.GetInt("audit.buffer_size"),
				DropIfFull: v.GetBool("audit.drop_if_full"),
			},
			Metrics: ideas.MetricsConfig{
				Enabled:                 v.GetBool("metrics.enabled"),
				EnableLatencyHistograms: v.GetBool("metrics.latency_histograms"),
			},
			Security: ideas.SecurityConfig{
				ProductionMode: production,
				AllowedOrigins: v.GetStringSlice("security.allowed_origins"),
			},
		},
	}

	if cfg.Engine.Supabase.URL == "" {
		return nil, fmt.Errorf("supabase.url is required (IDEAS_SUPABASE_URL)")
	}
	if cfg.Engine.Supabase.AnonKey == "" {
		return nil, fmt.Errorf("supabase.anon_key is required (IDEAS_SUPABASE_ANON_KEY)")
	}
	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
