package knowledge

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns a fixed vector or a fixed error.
type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return f.vec, f.err
}

// fakeRows serves canned rows through the pgx.Rows interface.
type fakeRows struct {
	rows [][]any
	i    int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.i >= len(r.rows) {
		return false
	}
	r.i++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.i-1]
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *float64:
			*p = row[i].(float64)
		case *int:
			*p = row[i].(int)
		default:
			return fmt.Errorf("unsupported scan target %T", d)
		}
	}
	return nil
}

// fakeDB records queries and serves canned rows.
type fakeDB struct {
	rows     *fakeRows
	queryErr error
	execErr  error
	lastSQL  string
	lastArgs []any
}

func (db *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.lastSQL, db.lastArgs = sql, args
	if db.queryErr != nil {
		return nil, db.queryErr
	}
	return db.rows, nil
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.lastSQL, db.lastArgs = sql, args
	return pgconn.CommandTag{}, db.execErr
}

func TestSearchSimilarDocs(t *testing.T) {
	db := &fakeDB{rows: &fakeRows{rows: [][]any{
		{"doc-1", "catalog.txt", "The X500 has 128GB of storage.", 0.91},
		{"doc-2", "catalog.txt", "The Z200 comes in black.", 0.74},
	}}}
	store := NewStore(db, &fakeEmbedder{vec: []float32{0.1, 0.2}}, nil)

	docs, err := store.SearchSimilarDocs(context.Background(), "phone storage", 4)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-1", docs[0].ID)
	assert.Equal(t, "The X500 has 128GB of storage.", docs[0].Chunk)
	assert.InDelta(t, 0.91, docs[0].Similarity, 1e-9)
	assert.Equal(t, 4, db.lastArgs[1], "k must reach the query limit")
}

func TestSearchSimilarDocsEmbedError(t *testing.T) {
	db := &fakeDB{rows: &fakeRows{}}
	store := NewStore(db, &fakeEmbedder{err: errors.New("model offline")}, nil)

	_, err := store.SearchSimilarDocs(context.Background(), "q", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed query")
	assert.Empty(t, db.lastSQL, "no query may run when embedding fails")
}

func TestSearchSimilarDocsInvalidK(t *testing.T) {
	store := NewStore(&fakeDB{}, &fakeEmbedder{vec: []float32{0.1}}, nil)
	_, err := store.SearchSimilarDocs(context.Background(), "q", 0)
	require.Error(t, err)
}

func TestAdd(t *testing.T) {
	db := &fakeDB{}
	store := NewStore(db, &fakeEmbedder{vec: []float32{0.1, 0.2}}, nil)

	id, err := store.Add(context.Background(), "doc-1", "catalog.txt", "some chunk")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", id)
	assert.Contains(t, db.lastSQL, "ON CONFLICT (id) DO UPDATE")
}

func TestAddGeneratesID(t *testing.T) {
	store := NewStore(&fakeDB{}, &fakeEmbedder{vec: []float32{0.1}}, nil)

	id, err := store.Add(context.Background(), "", "catalog.txt", "some chunk")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestAddEmptyChunk(t *testing.T) {
	store := NewStore(&fakeDB{}, &fakeEmbedder{vec: []float32{0.1}}, nil)
	_, err := store.Add(context.Background(), "doc-1", "src", "")
	require.Error(t, err)
}
