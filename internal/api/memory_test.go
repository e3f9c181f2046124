package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/memory"
)

func TestMemoryHandlerClear(t *testing.T) {
	mem := memory.NewStore(10)
	mem.Conversation("").Append(memory.Turn{Role: memory.RoleUser, Content: "hi"})
	h := NewMemoryHandler(mem, newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/memory/clear", strings.NewReader(""))
	w := httptest.NewRecorder()
	h.handleClear(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Chat memory cleared successfully", resp["message"])
	assert.Zero(t, mem.Conversation("").Len())
}

func TestMemoryHandlerClearNamedConversation(t *testing.T) {
	mem := memory.NewStore(10)
	mem.Conversation("a").Append(memory.Turn{Role: memory.RoleUser, Content: "hi"})
	mem.Conversation("b").Append(memory.Turn{Role: memory.RoleUser, Content: "yo"})
	h := NewMemoryHandler(mem, newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/memory/clear",
		strings.NewReader(`{"conversationId":"a"}`))
	w := httptest.NewRecorder()
	h.handleClear(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, mem.Conversation("a").Len())
	assert.Equal(t, 1, mem.Conversation("b").Len(), "other conversations stay intact")
}

func TestMemoryHandlerMalformedBody(t *testing.T) {
	h := NewMemoryHandler(memory.NewStore(10), newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/memory/clear", strings.NewReader("{bad"))
	w := httptest.NewRecorder()
	h.handleClear(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
