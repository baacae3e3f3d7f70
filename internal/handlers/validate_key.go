package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"healthrag/internal/contextutil"
	"healthrag/internal/llm"
)

// KeyValidator is the credential probe surface this handler needs.
type KeyValidator interface {
	ValidateKey(ctx context.Context, apiKey string) error
}

// ValidateKeyHandler checks a caller-supplied upstream API key with a
// minimal probe request.
type ValidateKeyHandler struct {
	validator KeyValidator
}

// NewValidateKeyHandler creates a new ValidateKeyHandler.
func NewValidateKeyHandler(validator KeyValidator) *ValidateKeyHandler {
	return &ValidateKeyHandler{validator: validator}
}

type validateKeyRequest struct {
	APIKey string `json:"apiKey"`
}

type validateKeyResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ServeHTTP handles POST /api/validate-key.
func (h *ValidateKeyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req validateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidateResult(w, http.StatusBadRequest, validateKeyResponse{Valid: false, Error: "Invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		writeValidateResult(w, http.StatusBadRequest, validateKeyResponse{Valid: false, Error: "API key is required"})
		return
	}

	err := h.validator.ValidateKey(ctx, req.APIKey)
	switch {
	case err == nil:
		writeValidateResult(w, http.StatusOK, validateKeyResponse{Valid: true})
	case errors.Is(err, llm.ErrInvalidKey):
		writeValidateResult(w, http.StatusBadRequest, validateKeyResponse{Valid: false, Error: "Invalid API key"})
	case errors.Is(err, context.DeadlineExceeded):
		writeValidateResult(w, http.StatusRequestTimeout, validateKeyResponse{Valid: false, Error: "Validation timed out"})
	default:
		logger.ErrorContext(ctx, "key validation failed", "error", err)
		writeValidateResult(w, http.StatusBadGateway, validateKeyResponse{Valid: false, Error: "Could not reach the model provider"})
	}
}

func writeValidateResult(w http.ResponseWriter, statusCode int, resp validateKeyResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}
