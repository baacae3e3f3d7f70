package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"healthrag/internal/config"
	"healthrag/internal/handlers"
	"healthrag/internal/http"
	"healthrag/internal/index"
	"healthrag/internal/llm"
	"healthrag/internal/rag"
	"healthrag/internal/storage"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	chunkRepo := storage.NewChunkRepo(db)
	ctx := context.Background()

	// Open the vector index for the configured backend
	var searcher index.Searcher
	switch cfg.IndexBackend {
	case "qdrant":
		qdrantIndex, err := index.NewQdrant(cfg.QdrantURL, cfg.QdrantCollection, cfg.VectorSize)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		if err := qdrantIndex.Open(ctx); err != nil {
			log.Fatalf("Failed to open Qdrant collection: %v", err)
		}
		searcher = qdrantIndex
		slog.Info("Qdrant index ready", "collection", cfg.QdrantCollection, "vectors", qdrantIndex.Size())
	default:
		flatIndex, err := index.LoadSnapshot(cfg.IndexPath, cfg.EncoderTag())
		if err != nil {
			log.Fatalf("Failed to load index snapshot: %v", err)
		}
		searcher = flatIndex
		slog.Info("Index snapshot loaded", "path", cfg.IndexPath, "vectors", flatIndex.Size())
	}

	// Fail fast if the index and chunk store disagree about corpus size:
	// a search could otherwise return chunk ids with no stored text.
	chunkCount, err := chunkRepo.Count(ctx)
	if err != nil {
		log.Fatalf("Failed to count chunks: %v", err)
	}
	if chunkCount != searcher.Size() {
		log.Fatalf("Index/store mismatch: %d vectors but %d chunks; rebuild the index", searcher.Size(), chunkCount)
	}
	slog.Info("Corpus consistency verified", "chunks", chunkCount)

	// Outbound clients
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModel, cfg.VectorSize)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.GenTimeout)

	// Answer pipeline
	retriever := rag.NewRetriever(embedder, searcher, chunkRepo, rag.RetrieverConfig{
		SearchK:        cfg.SearchK,
		FinalK:         cfg.FinalK,
		ScoreThreshold: cfg.ScoreThreshold,
	})
	engine := rag.NewEngine(retriever, llmClient, rag.EngineConfig{
		ContextBudget:      cfg.ContextBudget,
		DefaultTemperature: cfg.Temperature,
		DefaultMaxTokens:   cfg.MaxTokens,
	})
	slog.Info("Answer engine initialized", "model", cfg.LLMModel, "final_k", cfg.FinalK)

	router := http.NewRouter(&http.Deps{
		Engine:   engine,
		LLM:      llmClient,
		Searcher: searcher,
		Chunks:   chunkRepo,
		Info: handlers.ServiceInfo{
			Model:          cfg.LLMModel,
			EmbeddingModel: cfg.EmbeddingModel,
			IndexBackend:   cfg.IndexBackend,
			StartedAt:      time.Now(),
		},
	})

	addr := ":" + cfg.APIPort
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting API server", "addr", addr)
		slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModel)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
