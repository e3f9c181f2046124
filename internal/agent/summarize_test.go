package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>Release Notes</title></head>
<body>
<article>
<h1>Release Notes</h1>
<p>Version 2.0 ships with a rewritten storage engine that cuts query latency in half.</p>
<p>The upgrade requires a one-time index rebuild taking roughly ten minutes.</p>
</article>
</body></html>`

func TestSummarizeAgentExecute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	model := &fakeModel{answer: "2.0 halves query latency; upgrading rebuilds indexes."}
	a := NewSummarizeAgent(model, srv.Client(), nil)

	require.Equal(t, TypeSummarize, a.Type())

	got, err := a.Execute(context.Background(), "summarize "+srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "2.0 halves query latency; upgrading rebuilds indexes.", got)

	require.Len(t, model.gotMsg, 2)
	assert.Contains(t, model.gotMsg[1].Content, "rewritten storage engine")
}

func TestSummarizeAgentURLParameter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	model := &fakeModel{answer: "summary"}
	a := NewSummarizeAgent(model, srv.Client(), nil)

	_, err := a.Execute(context.Background(), "summarize this page", map[string]any{"url": srv.URL})
	require.NoError(t, err)
	assert.Contains(t, model.gotMsg[1].Content, "index rebuild")
}

func TestSummarizeAgentNoURLSummarizesQueryText(t *testing.T) {
	model := &fakeModel{answer: "the economy expanded"}
	a := NewSummarizeAgent(model, nil, nil)

	got, err := a.Execute(context.Background(), "the economy grew 3 percent last quarter", nil)
	require.NoError(t, err)
	assert.Equal(t, "the economy expanded", got)

	// No URL anywhere in the request: the query text itself is what
	// reaches the model, with no page fetch in between.
	require.Len(t, model.gotMsg, 2)
	assert.Equal(t, "the economy grew 3 percent last quarter", model.gotMsg[1].Content)
}

func TestSummarizeAgentInvalidURLParameter(t *testing.T) {
	a := NewSummarizeAgent(&fakeModel{}, nil, nil)

	_, err := a.Execute(context.Background(), "summarize", map[string]any{"url": "http://"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid URL")
}

func TestSummarizeAgentFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	a := NewSummarizeAgent(&fakeModel{}, srv.Client(), nil)

	_, err := a.Execute(context.Background(), "summarize "+srv.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 410")
}

func TestSummarizeAgentTruncatesLongPages(t *testing.T) {
	longBody := "<html><body><p>" + strings.Repeat("word ", 5000) + "</p></body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(longBody))
	}))
	defer srv.Close()

	model := &fakeModel{answer: "summary"}
	a := NewSummarizeAgent(model, srv.Client(), nil)

	_, err := a.Execute(context.Background(), "summarize "+srv.URL, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(model.gotMsg[1].Content), maxSummarizeInput)
}

func TestParagraphText(t *testing.T) {
	text, err := paragraphText(`<html><body><p>one</p><script>x()</script><p>two</p></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "one\n\ntwo", text)

	_, err = paragraphText(`<html><body><div>no paragraphs</div></body></html>`)
	require.Error(t, err)
}
