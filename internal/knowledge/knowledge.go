// Package knowledge stores document chunks with vector embeddings in
// PostgreSQL + pgvector and serves similarity search for the chat
// endpoint's retrieval context.
package knowledge

import (
	"context"
)

// Doc is one retrieved chunk with its similarity to the query, in
// [0, 1] for cosine distance.
type Doc struct {
	ID         string
	Source     string
	Chunk      string
	Similarity float64
}

// Searcher is the retrieval contract the chat handler consumes.
// Implementations must be safe for concurrent use.
type Searcher interface {
	SearchSimilarDocs(ctx context.Context, query string, k int) ([]Doc, error)
}

// Embedder turns text into a vector. *llm.Client satisfies this.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
