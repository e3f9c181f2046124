package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/knowledge"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/llm"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/log"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/memory"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/stream"
)

// maxPromptLength bounds the chat prompt.
const maxPromptLength = 4000

// ChatStreamer is the upstream model contract the chat handler
// consumes. *llm.Client satisfies this.
type ChatStreamer interface {
	ChatStream(ctx context.Context, messages []llm.Message) (io.ReadCloser, error)
}

// ChatHandler handles the streaming chat endpoint.
type ChatHandler struct {
	model       ChatStreamer
	memory      *memory.Store
	searcher    knowledge.Searcher
	transformer *stream.Transformer
	topK        int
	logger      log.Logger
}

// NewChatHandler creates a chat handler. searcher may be nil when the
// service runs without a retrieval store.
func NewChatHandler(model ChatStreamer, mem *memory.Store, searcher knowledge.Searcher, topK int, logger log.Logger) *ChatHandler {
	return &ChatHandler{
		model:       model,
		memory:      mem,
		searcher:    searcher,
		transformer: stream.NewTransformer(logger),
		topK:        topK,
		logger:      logger,
	}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/chat", h.handleChat)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	ID      string `json:"id,omitempty"`
}

type chatRequest struct {
	Prompt         string        `json:"prompt"`
	ConversationID string        `json:"conversationId,omitempty"`
	Messages       []chatMessage `json:"messages,omitempty"`
}

func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return
	}

	if details := validateChatRequest(&req); len(details) > 0 {
		writeValidationError(w, h.logger, details)
		return
	}

	ctx := r.Context()
	conv := h.memory.Conversation(req.ConversationID)

	// A supplied history replaces the server-side conversation: the
	// client owns the transcript in that mode.
	if len(req.Messages) > 0 {
		conv.Clear()
		for _, m := range req.Messages {
			conv.Append(memory.Turn{Role: memory.Role(m.Role), Content: m.Content, ID: m.ID})
		}
	}

	messages, err := h.buildMessages(ctx, conv, req.Prompt)
	if err != nil {
		h.logger.Error("retrieval failed", "error", err, "request_id", RequestID(ctx))
		writeError(w, h.logger, http.StatusInternalServerError, "upstream_error", "document search is unavailable")
		return
	}

	conv.Append(memory.Turn{Role: memory.RoleUser, Content: req.Prompt})

	body, err := h.model.ChatStream(ctx, messages)
	if err != nil {
		h.logger.Error("chat stream failed to open", "error", err, "request_id", RequestID(ctx))
		writeError(w, h.logger, http.StatusInternalServerError, "upstream_error", "language model is unavailable")
		return
	}
	defer body.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, h.logger, http.StatusInternalServerError, "streaming_unsupported", "response writer cannot stream")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	capture := &contentCapture{dst: w}
	if err := h.transformer.Pipe(ctx, body, capture, flusher.Flush); err != nil {
		// Headers are sent; nothing to do beyond logging.
		h.logger.Warn("chat stream interrupted", "error", err, "request_id", RequestID(ctx))
		return
	}

	if answer := strings.TrimSpace(capture.content.String()); answer != "" {
		conv.Append(memory.Turn{Role: memory.RoleAssistant, Content: answer})
	}
}

// validateChatRequest returns per-field messages, empty when valid.
func validateChatRequest(req *chatRequest) map[string]string {
	details := make(map[string]string)
	if strings.TrimSpace(req.Prompt) == "" {
		details["prompt"] = "prompt is required"
	} else if len(req.Prompt) > maxPromptLength {
		details["prompt"] = fmt.Sprintf("prompt exceeds %d characters", maxPromptLength)
	}
	for i, m := range req.Messages {
		switch memory.Role(m.Role) {
		case memory.RoleUser, memory.RoleAssistant, memory.RoleSystem:
		default:
			details[fmt.Sprintf("messages[%d].role", i)] = fmt.Sprintf("unknown role %q", m.Role)
		}
	}
	return details
}

// buildMessages assembles the upstream request: retrieval context,
// conversation history, then the new prompt.
func (h *ChatHandler) buildMessages(ctx context.Context, conv *memory.Conversation, prompt string) ([]llm.Message, error) {
	var messages []llm.Message

	if h.searcher != nil {
		docs, err := h.searcher.SearchSimilarDocs(ctx, prompt, h.topK)
		if err != nil {
			return nil, err
		}
		if len(docs) > 0 {
			var b strings.Builder
			b.WriteString("Use the following context when it is relevant to the question.\n\nContext:\n")
			for _, d := range docs {
				b.WriteString(d.Chunk)
				b.WriteByte('\n')
			}
			messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: b.String()})
		}
	}

	for _, t := range conv.Turns() {
		messages = append(messages, llm.Message{Role: string(t.Role), Content: t.Content})
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: prompt}), nil
}

// contentCapture forwards event lines to the client while
// accumulating their content so the assistant turn can be stored.
type contentCapture struct {
	dst     io.Writer
	content strings.Builder
}

func (c *contentCapture) Write(p []byte) (int, error) {
	var ev stream.Event
	if err := json.Unmarshal(p, &ev); err == nil {
		c.content.WriteString(ev.Message.Content)
	}
	return c.dst.Write(p)
}
