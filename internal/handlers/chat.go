package handlers

import (
	"encoding/json"
	"net/http"

	"healthrag/internal/contextutil"
	"healthrag/internal/llm"
	"healthrag/internal/rag"
)

// ChatHandler serves the synchronous question answering endpoint.
type ChatHandler struct {
	engine *rag.Engine
	llm    *llm.Client
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(engine *rag.Engine, llmClient *llm.Client) *ChatHandler {
	return &ChatHandler{engine: engine, llm: llmClient}
}

// ServeHTTP handles POST /api/chat.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	message := sanitizeMessage(req.Message)
	if len(message) < minMessageLength {
		writeError(w, http.StatusBadRequest, "Message is required and must be at least 3 characters")
		return
	}
	sessionID := sanitizeSessionID(req.SessionID)

	logger.InfoContext(ctx, "chat request",
		"session_id", sessionID,
		"message_length", len(message),
	)

	answer, err := h.engineFor(r).Answer(ctx, toRAGRequest(req, message))
	if err != nil {
		writePipelineError(w, r, err, "Failed to generate response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toResponse(answer, sessionID)); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// engineFor returns the engine to use for this request. A caller-supplied
// upstream credential gets its own generator; the shared engine otherwise.
func (h *ChatHandler) engineFor(r *http.Request) *rag.Engine {
	if key := r.Header.Get(userKeyHeader); key != "" {
		return h.engine.WithGenerator(h.llm.WithAPIKey(key))
	}
	return h.engine
}
