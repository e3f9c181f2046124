package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/knowledge"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/llm"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/log"
)

// ChatModel is the blocking completion contract native agents
// consume. *llm.Client satisfies this.
type ChatModel interface {
	Chat(ctx context.Context, messages []llm.Message) (string, error)
}

// SearchAgent answers queries from the document store: retrieve the
// nearest chunks, then ask the model to answer strictly from them.
type SearchAgent struct {
	searcher knowledge.Searcher
	model    ChatModel
	topK     int
	logger   log.Logger
}

// NewSearchAgent creates a SearchAgent. topK below 1 defaults to 4;
// logger may be nil.
func NewSearchAgent(searcher knowledge.Searcher, model ChatModel, topK int, logger log.Logger) *SearchAgent {
	if topK < 1 {
		topK = 4
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &SearchAgent{searcher: searcher, model: model, topK: topK, logger: logger}
}

func (a *SearchAgent) Type() Type { return TypeSearch }

func (a *SearchAgent) Execute(ctx context.Context, query string, _ map[string]any) (string, error) {
	docs, err := a.searcher.SearchSimilarDocs(ctx, query, a.topK)
	if err != nil {
		return "", fmt.Errorf("search agent: retrieve documents: %w", err)
	}
	if len(docs) == 0 {
		return "I could not find any relevant documents for that query.", nil
	}

	var b strings.Builder
	b.WriteString("Answer the question using only the context below. If the context does not contain the answer, say so.\n\nContext:\n")
	for i, d := range docs {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, d.Chunk)
	}

	a.logger.Debug("search agent retrieved context", "hits", len(docs), "top_similarity", docs[0].Similarity)

	answer, err := a.model.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: b.String()},
		{Role: llm.RoleUser, Content: query},
	})
	if err != nil {
		return "", fmt.Errorf("search agent: completion: %w", err)
	}
	return answer, nil
}
