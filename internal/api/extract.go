package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/extract"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/log"
)

// maxExtractLength bounds the text accepted for extraction. Replies
// are short; anything larger is not a reply we produced.
const maxExtractLength = 64 * 1024

// ExtractHandler turns finished reply text into structured records so
// clients can render product cards without reimplementing the
// heuristics.
type ExtractHandler struct {
	logger log.Logger
}

// NewExtractHandler creates an extract handler.
func NewExtractHandler(logger log.Logger) *ExtractHandler {
	return &ExtractHandler{logger: logger}
}

// RegisterRoutes registers extract routes on the given mux.
func (h *ExtractHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/extract", h.handleExtract)
}

type extractRequest struct {
	Text string `json:"text"`
}

type extractResponse struct {
	Structured bool             `json:"structured"`
	Records    []extract.Record `json:"records"`
}

func (h *ExtractHandler) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeValidationError(w, h.logger, map[string]string{"text": "text is required"})
		return
	}
	if len(req.Text) > maxExtractLength {
		writeValidationError(w, h.logger, map[string]string{"text": "text exceeds maximum length"})
		return
	}

	resp := extractResponse{
		Structured: extract.IsStructuredReply(req.Text),
		Records:    []extract.Record{},
	}
	if resp.Structured {
		resp.Records = append(resp.Records, extract.Extract(req.Text)...)
	}

	h.logger.Debug("extraction served",
		"structured", resp.Structured,
		"records", len(resp.Records),
		"request_id", RequestID(r.Context()))
	writeJSON(w, h.logger, http.StatusOK, resp)
}
