package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/testutil"
)

// vec768 builds a deterministic 768-dim vector whose direction is
// controlled by seed, so similarity ordering in tests is predictable.
func vec768(seed float32) []float32 {
	v := make([]float32, 768)
	v[0] = 1
	v[1] = seed
	return v
}

// seededEmbedder maps known texts to fixed vectors; anything else
// gets the query vector.
type seededEmbedder struct {
	byText map[string][]float32
	query  []float32
}

func (e *seededEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := e.byText[text]; ok {
		return v, nil
	}
	return e.query, nil
}

func TestStoreRoundTrip_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	embedder := &seededEmbedder{
		byText: map[string][]float32{
			"The X500 ships with 128GB of storage.":   vec768(0.05),
			"Store hours are 9am to 6pm on weekdays.": vec768(0.9),
			"The Z200 is available in matte black.":   vec768(0.1),
		},
		query: vec768(0.0),
	}
	store := NewStore(db.Pool, embedder, nil)

	for _, chunk := range []string{
		"The X500 ships with 128GB of storage.",
		"Store hours are 9am to 6pm on weekdays.",
		"The Z200 is available in matte black.",
	} {
		_, err := store.Add(ctx, "", "catalog.txt", chunk)
		require.NoError(t, err)
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	docs, err := store.SearchSimilarDocs(ctx, "how much storage does the X500 have", 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "The X500 ships with 128GB of storage.", docs[0].Chunk,
		"nearest vector must rank first")
	assert.Greater(t, docs[0].Similarity, docs[1].Similarity)
}

func TestStoreUpsert_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	embedder := &seededEmbedder{query: vec768(0.0)}
	store := NewStore(db.Pool, embedder, nil)

	id, err := store.Add(ctx, "doc-1", "catalog.txt", "first version")
	require.NoError(t, err)

	_, err = store.Add(ctx, id, "catalog.txt", "second version")
	require.NoError(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "same id must update, not duplicate")

	docs, err := store.SearchSimilarDocs(ctx, "anything", 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "second version", docs[0].Chunk)
}
