package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/agent"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	registry := agent.NewRegistry()
	require.NoError(t, registry.Register(&cannedAgent{t: agent.TypeWeather, answer: "Sunny."}))

	upstream := &fakeStreamer{lines: `{"done":true,"message":{"content":"hi"}}` + "\n"}
	return NewServer(
		ServerConfig{RetrievalTopK: 4},
		upstream,
		memory.NewStore(10),
		registry,
		nil,
		nil,
		newTestLogger(),
	)
}

func TestServerRoutes(t *testing.T) {
	h := newTestServer(t).Handler()

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
	})

	t.Run("ready without pool", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("agent through the full stack", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/agent",
			strings.NewReader(`{"query":"weather in Boston","agentType":"weather"}`))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		events := streamEvents(t, w.Body.String())
		require.Len(t, events, 2)
	})

	t.Run("unknown route", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServerRateLimitWired(t *testing.T) {
	registry := agent.NewRegistry()
	srv := NewServer(
		ServerConfig{RatePerSecond: 0.001, RateBurst: 1},
		&fakeStreamer{},
		memory.NewStore(10),
		registry,
		nil,
		nil,
		newTestLogger(),
	)
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
