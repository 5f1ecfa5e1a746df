// Command ideasd serves the ideas backend: cookie-session auth, CRUD
// and analytics over agent-scoped Supabase clients, guarded NL-to-SQL,
// and multi-agent chat.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	ideas "github.com/StackRunner1/my-ideas"
	"github.com/StackRunner1/my-ideas/httpapi"
	"github.com/StackRunner1/my-ideas/internal/pgrls"
	"github.com/StackRunner1/my-ideas/llm"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (optional; env vars suffice)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "ideasd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// Throttling fails open without redis, so boot continues.
		logger.Warn("redis unreachable, rate limiting degraded", zap.Error(err))
	}

	model := buildModel(cfg, logger)

	builder := ideas.New().
		WithConfig(cfg.Engine).
		WithRedis(rdb).
		WithLogger(logger)
	if model != nil {
		builder = builder.WithLLM(model)
	}

	pool := buildPool(ctx, cfg, logger)
	if pool != nil {
		defer pool.Close()
		builder = builder.WithPostgres(pool)
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	options := httpapi.Options{
		Engine: engine,
		Config: cfg.Engine,
		Logger: logger,
		Pool:   pool,
	}
	if model != nil {
		options.Chat = model
	}
	api := httpapi.NewServer(options)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// buildModel returns nil when no API key is configured; the AI
// endpoints then answer 503 instead of failing at boot.
func buildModel(cfg *appConfig, logger *zap.Logger) *llm.Client {
	client, err := llm.NewClient(llm.Config{
		APIKey:      cfg.OpenAIKey,
		Model:       cfg.Engine.AI.Model,
		Endpoint:    cfg.OpenAIEndpoint,
		Timeout:     cfg.Engine.AI.RequestTimeout,
		MaxTokens:   cfg.Engine.AI.MaxTokens,
		Temperature: cfg.Engine.AI.Temperature,
	})
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			logger.Warn("no OpenAI API key configured, AI endpoints disabled")
			return nil
		}
		logger.Warn("model client unavailable, AI endpoints disabled", zap.Error(err))
		return nil
	}
	return client
}

// buildPool returns nil when no database URL is configured; NL-to-SQL
// then answers 503 and health skips the probe.
func buildPool(ctx context.Context, cfg *appConfig, logger *zap.Logger) *pgxpool.Pool {
	if cfg.Engine.Database.URL == "" {
		logger.Warn("no database url configured, NL-to-SQL disabled")
		return nil
	}
	pool, err := pgrls.NewPool(ctx, pgrls.Config{
		URL:             cfg.Engine.Database.URL,
		MaxConns:        int32(cfg.Engine.Database.MaxConnections),
		MinConns:        int32(cfg.Engine.Database.MinConnections),
		ConnMaxLifetime: cfg.Engine.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Warn("database pool unavailable, NL-to-SQL disabled", zap.Error(err))
		return nil
	}
	return pool
}
