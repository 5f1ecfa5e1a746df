// Package httpapi exposes the engine over a chi REST surface: cookie
// auth routes, ideas and tags CRUD through agent-scoped clients,
// analytics views, the guarded NL-to-SQL endpoint, and multi-agent
// chat.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	ideas "github.com/StackRunner1/my-ideas"
	"github.com/StackRunner1/my-ideas/agents"
	"github.com/StackRunner1/my-ideas/internal/pgrls"
)

// Server wires the engine and its AI collaborators to HTTP handlers.
type Server struct {
	engine       *ideas.Engine
	cfg          ideas.Config
	logger       *zap.Logger
	chat         agents.ChatClient
	chatSessions *agents.SessionStore
	pool         *pgxpool.Pool
}

// Options carries the server's dependencies. Engine and Config are
// required; the rest degrade gracefully when absent (chat endpoints
// return 503, health skips the database probe).
type Options struct {
	Engine       *ideas.Engine
	Config       ideas.Config
	Logger       *zap.Logger
	Chat         agents.ChatClient
	ChatSessions *agents.SessionStore
	Pool         *pgxpool.Pool
}

// NewServer builds a Server from opts.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sessions := opts.ChatSessions
	if sessions == nil {
		sessions = agents.NewSessionStore(30 * time.Minute)
	}
	return &Server{
		engine:       opts.Engine,
		cfg:          opts.Config,
		logger:       logger,
		chat:         opts.Chat,
		chatSessions: sessions,
		pool:         opts.Pool,
	}
}

// Routes assembles the full router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.requestID)
	r.Use(s.realIP)
	r.Use(s.recoverer)
	r.Use(s.requestLogger)
	r.Use(s.cors)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.handleSignup)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/logout", s.handleLogout)
			r.With(s.requireUser).Get("/me", s.handleMe)
			r.With(s.requireUser).Patch("/me", s.handleUpdateProfile)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)

			r.Route("/ideas", func(r chi.Router) {
				r.Get("/", s.handleListIdeas)
				r.Post("/", s.handleCreateIdea)
				r.Get("/{id}", s.handleGetIdea)
				r.Patch("/{id}", s.handleUpdateIdea)
				r.Delete("/{id}", s.handleDeleteIdea)
			})

			r.Route("/tags", func(r chi.Router) {
				r.Get("/", s.handleListTags)
				r.Post("/", s.handleCreateTag)
				r.Post("/{id}/ideas/{ideaID}", s.handleLinkTag)
				r.Delete("/{id}/ideas/{ideaID}", s.handleUnlinkTag)
			})

			r.Route("/analytics", func(r chi.Router) {
				r.Get("/items-by-date", s.handleItemsByDate)
				r.Get("/items-by-status", s.handleItemsByStatus)
			})

			r.Post("/ai/query", s.handleAIQuery)
			r.Post("/agent/chat", s.handleAgentChat)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok"}
	if s.pool != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		latency, err := pgrls.PingLatency(ctx, s.pool)
		if err != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["database_latency_ms"] = latency.Milliseconds()
	}
	writeJSON(w, http.StatusOK, status)
}
