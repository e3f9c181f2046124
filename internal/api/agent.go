package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/agent"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/agent/runner"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/log"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/stream"
)

// AgentHandler handles the agent dispatch endpoint.
type AgentHandler struct {
	registry *agent.Registry
	logger   log.Logger
}

// NewAgentHandler creates an agent handler.
func NewAgentHandler(registry *agent.Registry, logger log.Logger) *AgentHandler {
	return &AgentHandler{registry: registry, logger: logger}
}

// RegisterRoutes registers agent routes on the given mux.
func (h *AgentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/agent", h.handleAgent)
}

type agentRequest struct {
	Query      string         `json:"query"`
	AgentType  string         `json:"agentType"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// handleAgent validates the request, runs the agent to completion,
// and only then emits the two-phase stream. A failed agent never
// produces a partial stream, it produces a structured error instead.
func (h *AgentHandler) handleAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return
	}

	details := make(map[string]string)
	if strings.TrimSpace(req.Query) == "" {
		details["query"] = "query is required"
	}
	agentType, err := agent.ParseType(req.AgentType)
	if err != nil {
		details["agentType"] = err.Error()
	}
	if len(details) > 0 {
		writeValidationError(w, h.logger, details)
		return
	}

	a, err := h.registry.Get(agentType)
	if err != nil {
		writeValidationError(w, h.logger, map[string]string{"agentType": err.Error()})
		return
	}

	ctx := r.Context()
	answer, err := a.Execute(ctx, req.Query, req.Parameters)
	if err != nil {
		var execErr *runner.ExecError
		if errors.As(err, &execErr) {
			// Stderr stays in the logs; clients get a generic message.
			h.logger.Error("agent subprocess failed",
				"agent", agentType,
				"exit_code", execErr.ExitCode,
				"stderr", execErr.Stderr,
				"request_id", RequestID(ctx))
		} else {
			h.logger.Error("agent execution failed",
				"agent", agentType,
				"error", err,
				"request_id", RequestID(ctx))
		}
		writeError(w, h.logger, http.StatusInternalServerError, "agent_failed",
			"agent execution failed")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, h.logger, http.StatusInternalServerError, "streaming_unsupported", "response writer cannot stream")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if err := stream.WriteFrames(w, flusher.Flush, string(agentType), answer); err != nil {
		h.logger.Warn("agent stream interrupted", "error", err, "request_id", RequestID(ctx))
	}
}
