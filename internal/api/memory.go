package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/log"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/memory"
)

// MemoryHandler handles conversation memory endpoints.
type MemoryHandler struct {
	memory *memory.Store
	logger log.Logger
}

// NewMemoryHandler creates a memory handler.
func NewMemoryHandler(mem *memory.Store, logger log.Logger) *MemoryHandler {
	return &MemoryHandler{memory: mem, logger: logger}
}

// RegisterRoutes registers memory routes on the given mux.
func (h *MemoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/memory/clear", h.handleClear)
}

type clearRequest struct {
	ConversationID string `json:"conversationId,omitempty"`
}

// handleClear resets one conversation. An empty or missing body
// clears the default conversation.
func (h *MemoryHandler) handleClear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	// A missing body is fine; only malformed JSON is rejected.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return
	}

	h.memory.Clear(req.ConversationID)
	h.logger.Info("conversation memory cleared", "conversation_id", req.ConversationID, "request_id", RequestID(r.Context()))
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"message": "Chat memory cleared successfully"})
}
