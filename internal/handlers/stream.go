package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"healthrag/internal/contextutil"
	"healthrag/internal/llm"
	"healthrag/internal/rag"
)

// StreamHandler serves the streaming question answering endpoint over
// Server-Sent Events. Errors that occur before any event is written are
// reported as plain HTTP errors; once the stream is open they become
// error events.
type StreamHandler struct {
	engine *rag.Engine
	llm    *llm.Client
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(engine *rag.Engine, llmClient *llm.Client) *StreamHandler {
	return &StreamHandler{engine: engine, llm: llmClient}
}

// streamEvent is one SSE payload. Data shape depends on Type:
// "content" carries {chunk}, "sources" carries {sources},
// "done" carries the terminal metadata, "error" carries {error}.
type streamEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type doneData struct {
	Timestamp string       `json:"timestamp"`
	TopScore  float64      `json:"topScore"`
	SessionID string       `json:"sessionId,omitempty"`
	Metadata  ResponseMeta `json:"metadata"`
}

// ServeHTTP handles POST /api/chat/stream.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	logger.InfoContext(ctx, "chat stream request",
		"session_id", sessionID,
		"message_length", len(message),
	)

	engine := h.engine
	if key := r.Header.Get(userKeyHeader); key != "" {
		engine = h.engine.WithGenerator(h.llm.WithAPIKey(key))
	}

	streamStarted := false
	openStream := func() {
		if streamStarted {
			return
		}
		streamStarted = true
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
	}
	sendEvent := func(eventType string, data any) {
		openStream()
		payload, err := json.Marshal(streamEvent{Type: eventType, Data: data})
		if err != nil {
			logger.ErrorContext(ctx, "failed to marshal stream event", "error", err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	answer, err := engine.AnswerStream(ctx, toRAGRequest(req, message), func(fragment string) error {
		sendEvent("content", map[string]string{"chunk": fragment})
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "stream pipeline error", "error", err)
		if !streamStarted {
			// Nothing sent yet; a plain HTTP error is still possible.
			writePipelineError(w, r, err, "Failed to generate response")
			return
		}
		sendEvent("error", map[string]string{"error": streamErrorMessage(err)})
		return
	}

	citations := answer.Citations
	if citations == nil {
		citations = []rag.Citation{}
	}
	sendEvent("sources", map[string]any{"sources": citations})
	sendEvent("done", doneData{
		Timestamp: answer.Timestamp.Format(time.RFC3339),
		TopScore:  answer.TopScore,
		SessionID: sessionID,
		Metadata: ResponseMeta{
			ModelUsed:        answer.Meta.ModelUsed,
			ResponseLength:   answer.Meta.ResponseLength,
			SourcesUsed:      answer.Meta.SourcesUsed,
			ProcessingTimeMs: answer.Meta.ProcessingTime.Milliseconds(),
		},
	})
}

// streamErrorMessage maps pipeline errors to client-safe error event text.
func streamErrorMessage(err error) string {
	var validationErr *rag.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return fmt.Sprintf("Validation error: %s", validationErr.Error())
	case errors.Is(err, rag.ErrUpstream):
		return "External service error"
	case errors.Is(err, rag.ErrIndexInconsistent):
		return "Corpus index is inconsistent; rebuild required"
	default:
		return "Failed to generate response"
	}
}
