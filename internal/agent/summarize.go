package agent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/llm"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/log"
)

const (
	// maxFetchBytes bounds how much of a page is downloaded.
	maxFetchBytes = 2 << 20
	// maxSummarizeInput bounds the extracted text handed to the model.
	maxSummarizeInput = 8000
)

// SummarizeAgent fetches a web page, extracts its readable text, and
// asks the model for a summary. The page URL comes from the "url"
// parameter or, failing that, the first URL-shaped token in the
// query. A request carrying no URL at all summarizes the query text
// itself.
type SummarizeAgent struct {
	model      ChatModel
	httpClient *http.Client
	logger     log.Logger
}

// NewSummarizeAgent creates a SummarizeAgent. httpClient and logger
// may be nil.
func NewSummarizeAgent(model ChatModel, httpClient *http.Client, logger log.Logger) *SummarizeAgent {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &SummarizeAgent{model: model, httpClient: httpClient, logger: logger}
}

func (a *SummarizeAgent) Type() Type { return TypeSummarize }

func (a *SummarizeAgent) Execute(ctx context.Context, query string, params map[string]any) (string, error) {
	pageURL, err := resolveURL(query, params)
	if err != nil {
		return "", err
	}

	text := query
	system := "Summarize the following text in a few short sentences. Keep concrete facts and numbers."
	if pageURL != nil {
		text, err = a.fetchReadableText(ctx, pageURL)
		if err != nil {
			return "", err
		}
		system = "Summarize the following article in a few short paragraphs. Keep concrete facts and numbers."
	}
	if len(text) > maxSummarizeInput {
		text = text[:maxSummarizeInput]
	}

	summary, err := a.model.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: text},
	})
	if err != nil {
		return "", fmt.Errorf("summarize agent: completion: %w", err)
	}
	return summary, nil
}

// resolveURL picks the page to summarize from params or the query.
// A nil URL with a nil error means the request carries no URL and the
// query text itself is the summarization input.
func resolveURL(query string, params map[string]any) (*url.URL, error) {
	raw := ""
	if v, ok := params["url"].(string); ok && v != "" {
		raw = v
	} else {
		for _, tok := range strings.Fields(query) {
			if strings.HasPrefix(tok, "http://") || strings.HasPrefix(tok, "https://") {
				raw = tok
				break
			}
		}
	}
	if raw == "" {
		return nil, nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("summarize agent: invalid URL %q", raw)
	}
	return u, nil
}

// fetchReadableText downloads the page and extracts its main text,
// preferring readability's article extraction and falling back to
// collecting paragraph text from the raw document.
func (a *SummarizeAgent) fetchReadableText(ctx context.Context, pageURL *url.URL) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("summarize agent: create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarize agent: fetch %s: %w", pageURL.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("summarize agent: fetch %s: status %d", pageURL.Host, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("summarize agent: read page: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return strings.TrimSpace(article.TextContent), nil
	}
	a.logger.Debug("readability extraction fell through", "url", pageURL.String(), "error", err)

	return paragraphText(string(body))
}

// paragraphText joins the page's <p> contents.
func paragraphText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("summarize agent: parse page: %w", err)
	}

	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return "", fmt.Errorf("summarize agent: page has no extractable text")
	}
	return strings.Join(parts, "\n\n"), nil
}
