package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"healthrag/internal/contextutil"
)

// FeedbackHandler accepts user feedback on answers. Feedback is logged for
// offline review; there is no storage or follow-up pipeline behind it.
type FeedbackHandler struct{}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler() *FeedbackHandler {
	return &FeedbackHandler{}
}

type feedbackRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Rating    string `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}

// ServeHTTP handles POST /api/feedback.
func (h *FeedbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	rating := strings.ToLower(strings.TrimSpace(req.Rating))
	if rating != "positive" && rating != "negative" {
		writeError(w, http.StatusBadRequest, "Rating must be positive or negative")
		return
	}

	comment := truncate(req.Comment, 1000)
	logger.InfoContext(ctx, "feedback received",
		"session_id", sanitizeSessionID(req.SessionID),
		"rating", rating,
		"comment", comment,
	)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "received"})
}
