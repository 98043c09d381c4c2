package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	llmChat "github.com/naver-ai-trip/agent-trip/internal/api/chat_prompt"
	"github.com/naver-ai-trip/agent-trip/internal/api/knowledge"

	"github.com/naver-ai-trip/agent-trip/internal/api"
)

// Config contains dependencies needed for the router setup
type Config struct {
	ChatHandler            *llmChat.HandlerImpl
	KnowledgeHandler       *knowledge.HandlerImpl
	AuthenticateMiddleware func(http.Handler) http.Handler
	RateLimitMiddleware    func(http.Handler) http.Handler
	Health                 func(ctx context.Context) map[string]string
	AllowedOrigins         []string
}

// SetupRouter builds the application routes. Request id, logging, recovery and
// timeout middleware are applied by the caller.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("agent-trip travel assistant API"))
	})
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health == nil {
			api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
		checks := cfg.Health(r.Context())
		status := http.StatusOK
		for _, v := range checks {
			if v != "ok" {
				status = http.StatusServiceUnavailable
			}
		}
		api.WriteJSONResponse(w, r, status, checks)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cfg.AuthenticateMiddleware)

		r.Group(func(r chi.Router) {
			if cfg.RateLimitMiddleware != nil {
				r.Use(cfg.RateLimitMiddleware)
			}
			r.Post("/chat", cfg.ChatHandler.Chat)
			r.Post("/chat/stream", cfg.ChatHandler.ChatStream)
			r.Post("/knowledge/query", cfg.KnowledgeHandler.Query)
		})

		r.Get("/chat/{sessionID}/turns", cfg.ChatHandler.Turns)
		r.Post("/knowledge/documents", cfg.KnowledgeHandler.Ingest)
	})

	return r
}
