package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"healthrag/internal/contextutil"
	"healthrag/internal/rag"
)

// maxMessageLength caps the accepted question length.
const maxMessageLength = 5000

// minMessageLength rejects questions too short to mean anything.
const minMessageLength = 3

// userKeyHeader carries an optional per-request upstream credential.
const userKeyHeader = "X-User-API-Key"

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	controlRe    = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]")
	sessionIDRe  = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
)

// ChatRequest is the HTTP request payload for both chat endpoints.
type ChatRequest struct {
	Message   string    `json:"message"`
	SessionID string    `json:"sessionId,omitempty"`
	Settings  *Settings `json:"settings,omitempty"`
}

// Settings are the caller-controllable generation settings. Absent fields
// fall back to server defaults.
type Settings struct {
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"maxTokens,omitempty"`
}

// ResponseMeta mirrors rag.AnswerMeta with wire-friendly field types.
type ResponseMeta struct {
	ModelUsed        string `json:"model_used"`
	ResponseLength   int    `json:"response_length"`
	SourcesUsed      int    `json:"sources_used"`
	ProcessingTimeMs int64  `json:"processing_time"`
}

// ChatResponse is the non-streaming response envelope.
type ChatResponse struct {
	Response  string         `json:"response"`
	Timestamp string         `json:"timestamp"`
	Sources   []rag.Citation `json:"sources"`
	TopScore  float64        `json:"topScore"`
	SessionID string         `json:"sessionId,omitempty"`
	Metadata  ResponseMeta   `json:"metadata"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// truncate shortens s to at most n bytes without splitting a multi-byte
// rune, so truncated text stays valid UTF-8 on the wire.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// sanitizeMessage normalizes a raw question: caps length, collapses
// whitespace, strips control characters.
func sanitizeMessage(raw string) string {
	raw = truncate(raw, maxMessageLength)
	raw = controlRe.ReplaceAllString(raw, "")
	raw = whitespaceRe.ReplaceAllString(strings.TrimSpace(raw), " ")
	return raw
}

// sanitizeSessionID restricts a client-supplied session identifier to safe
// characters, generating a fresh one if nothing usable remains. The pipeline
// never interprets it; it exists for the client's own history bookkeeping.
func sanitizeSessionID(raw string) string {
	id := sessionIDRe.ReplaceAllString(raw, "")
	if len(id) > 100 {
		id = id[:100]
	}
	if id == "" {
		return fmt.Sprintf("session_%d", time.Now().Unix())
	}
	return id
}

// toRAGRequest converts the HTTP payload into a pipeline request.
func toRAGRequest(req ChatRequest, message string) rag.Request {
	ragReq := rag.Request{Question: message}
	if req.Settings != nil {
		ragReq.Params.Temperature = req.Settings.Temperature
		ragReq.Params.MaxTokens = req.Settings.MaxTokens
	}
	return ragReq
}

// toResponse builds the wire envelope from a pipeline answer.
func toResponse(answer rag.Answer, sessionID string) ChatResponse {
	sources := answer.Citations
	if sources == nil {
		sources = []rag.Citation{}
	}
	return ChatResponse{
		Response:  answer.Text,
		Timestamp: answer.Timestamp.Format(time.RFC3339),
		Sources:   sources,
		TopScore:  answer.TopScore,
		SessionID: sessionID,
		Metadata: ResponseMeta{
			ModelUsed:        answer.Meta.ModelUsed,
			ResponseLength:   answer.Meta.ResponseLength,
			SourcesUsed:      answer.Meta.SourcesUsed,
			ProcessingTimeMs: answer.Meta.ProcessingTime.Milliseconds(),
		},
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// writePipelineError maps pipeline errors to HTTP status codes.
func writePipelineError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "pipeline error", "error", err)

	var validationErr *rag.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
	case errors.Is(err, rag.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, rag.ErrUpstream):
		writeError(w, http.StatusBadGateway, "External service error")
	case errors.Is(err, rag.ErrIndexInconsistent):
		writeError(w, http.StatusInternalServerError, "Corpus index is inconsistent; rebuild required")
	default:
		writeError(w, http.StatusInternalServerError, defaultMsg)
	}
}
