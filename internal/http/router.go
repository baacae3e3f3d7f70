package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"healthrag/internal/handlers"
	"healthrag/internal/index"
	"healthrag/internal/llm"
	"healthrag/internal/rag"
	"healthrag/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Engine   *rag.Engine
	LLM      *llm.Client
	Searcher index.Searcher
	Chunks   storage.ChunkStore
	Info     handlers.ServiceInfo
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(LoggerMiddleware)

	chatHandler := handlers.NewChatHandler(deps.Engine, deps.LLM)
	streamHandler := handlers.NewStreamHandler(deps.Engine, deps.LLM)
	keyHandler := handlers.NewValidateKeyHandler(deps.LLM)
	healthHandler := handlers.NewHealthHandler(deps.Searcher, deps.Chunks, deps.Info)
	feedbackHandler := handlers.NewFeedbackHandler()

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/chat", chatHandler)
		r.Method(http.MethodPost, "/chat/stream", streamHandler)
		r.Method(http.MethodPost, "/validate-key", keyHandler)
		r.Method(http.MethodPost, "/feedback", feedbackHandler)
		r.Get("/health", healthHandler.Health)
		r.Get("/info", healthHandler.Info)
	})

	return r
}
