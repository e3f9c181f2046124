package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/log"
)

// searchTimeout bounds one vector search so a slow index scan cannot
// hold a chat request open.
const searchTimeout = 10 * time.Second

// querier is the subset of pgxpool.Pool the store uses. Defined here
// so tests can fake the database without a live pool.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store implements Searcher on PostgreSQL + pgvector. Safe for
// concurrent use; the underlying pool serializes nothing itself.
type Store struct {
	db       querier
	embedder Embedder
	logger   log.Logger
}

// NewStore creates a Store. logger may be nil.
func NewStore(db querier, embedder Embedder, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: db, embedder: embedder, logger: logger}
}

// SearchSimilarDocs embeds query and returns the k nearest chunks by
// cosine distance, most similar first.
func (s *Store) SearchSimilarDocs(ctx context.Context, query string, k int) ([]Doc, error) {
	if k < 1 {
		return nil, fmt.Errorf("knowledge: k must be positive, got %d", k)
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("knowledge: embed query: %w", err)
	}
	embedding := pgvector.NewVector(vec)

	rows, err := s.db.Query(ctx, `
		SELECT id, source, chunk, 1 - (embedding <=> $1) AS similarity
		FROM docs
		ORDER BY embedding <=> $1
		LIMIT $2`,
		embedding, k)
	if err != nil {
		return nil, fmt.Errorf("knowledge: search query: %w", err)
	}
	defer rows.Close()

	var docs []Doc
	for rows.Next() {
		var d Doc
		if err := rows.Scan(&d.ID, &d.Source, &d.Chunk, &d.Similarity); err != nil {
			return nil, fmt.Errorf("knowledge: scan row: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knowledge: read rows: %w", err)
	}

	s.logger.Debug("similarity search completed", "query_length", len(query), "k", k, "hits", len(docs))
	return docs, nil
}

// Add embeds chunk and upserts it. An empty id gets a generated UUID;
// the id is returned either way.
func (s *Store) Add(ctx context.Context, id, source, chunk string) (string, error) {
	if chunk == "" {
		return "", fmt.Errorf("knowledge: chunk must not be empty")
	}
	if id == "" {
		id = uuid.NewString()
	}

	vec, err := s.embedder.Embed(ctx, chunk)
	if err != nil {
		return "", fmt.Errorf("knowledge: embed chunk: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO docs (id, source, chunk, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET source = EXCLUDED.source, chunk = EXCLUDED.chunk, embedding = EXCLUDED.embedding`,
		id, source, chunk, pgvector.NewVector(vec))
	if err != nil {
		return "", fmt.Errorf("knowledge: upsert %q: %w", id, err)
	}

	s.logger.Debug("document added", "id", id, "source", source, "chunk_length", len(chunk))
	return id, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	rows, err := s.db.Query(ctx, `SELECT count(*) FROM docs`)
	if err != nil {
		return 0, fmt.Errorf("knowledge: count query: %w", err)
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, fmt.Errorf("knowledge: scan count: %w", err)
		}
	}
	return count, rows.Err()
}
