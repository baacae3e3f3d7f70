package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"healthrag/internal/contextutil"
	"healthrag/internal/index"
	"healthrag/internal/storage"
)

// ServiceInfo describes the serving configuration exposed on /api/info.
type ServiceInfo struct {
	Model          string
	EmbeddingModel string
	IndexBackend   string
	StartedAt      time.Time
}

// HealthHandler serves liveness and service metadata endpoints.
type HealthHandler struct {
	searcher index.Searcher
	chunks   storage.ChunkStore
	info     ServiceInfo
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(searcher index.Searcher, chunks storage.ChunkStore, info ServiceInfo) *HealthHandler {
	return &HealthHandler{searcher: searcher, chunks: chunks, info: info}
}

// Health handles GET /api/health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"vectors":   h.searcher.Size(),
		"model":     h.info.Model,
	})
}

// Info handles GET /api/info.
func (h *HealthHandler) Info(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	chunkCount, err := h.chunks.Count(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to count chunks", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read corpus metadata")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model":           h.info.Model,
		"embedding_model": h.info.EmbeddingModel,
		"index_backend":   h.info.IndexBackend,
		"vectors":         h.searcher.Size(),
		"dimension":       h.searcher.Dimension(),
		"chunks":          chunkCount,
		"started_at":      h.info.StartedAt.UTC().Format(time.RFC3339),
	})
}
