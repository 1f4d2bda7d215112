package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docatlas/docatlas/internal/core/domain"
	"github.com/docatlas/docatlas/internal/core/ports/driven"
)

func entryFor(chunkID, docID string, nodeSeq, position int, vec []float32) driven.VectorEntry {
	return driven.VectorEntry{
		ChunkID:    chunkID,
		DocumentID: docID,
		NodeSeq:    nodeSeq,
		Position:   position,
		Vector:     vec,
	}
}

func TestSearch_RankedByCosineSimilarity(t *testing.T) {
	idx := NewIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, entryFor("c1", "d1", 1, 0, []float32{1, 0})))
	require.NoError(t, idx.Upsert(ctx, entryFor("c2", "d1", 1, 1, []float32{0.7, 0.7})))
	require.NoError(t, idx.Upsert(ctx, entryFor("c3", "d1", 2, 0, []float32{0, 1})))

	hits, err := idx.Search(ctx, []float32{1, 0}, domain.QueryOptions{TopK: 3})
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "c1", hits[0].ChunkID)
	assert.Equal(t, "c2", hits[1].ChunkID)
	assert.Equal(t, "c3", hits[2].ChunkID)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i].Similarity, hits[i-1].Similarity)
	}
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
}

func TestSearch_ThresholdStrictlyRespected(t *testing.T) {
	idx := NewIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, entryFor("c1", "d1", 1, 0, []float32{1, 0})))
	require.NoError(t, idx.Upsert(ctx, entryFor("c2", "d1", 1, 1, []float32{0, 1})))

	hits, err := idx.Search(ctx, []float32{1, 0}, domain.QueryOptions{TopK: 5, Threshold: 0.9})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].ChunkID)

	// Maximum similarity below the threshold yields empty, not an error.
	hits, err = idx.Search(ctx, []float32{0.6, 0.8}, domain.QueryOptions{TopK: 3, Threshold: 0.99})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_DegenerateOptions(t *testing.T) {
	idx := NewIndex()
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, entryFor("c1", "d1", 1, 0, []float32{1, 0})))

	t.Run("topK zero", func(t *testing.T) {
		hits, err := idx.Search(ctx, []float32{1, 0}, domain.QueryOptions{TopK: 0})
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("threshold one", func(t *testing.T) {
		hits, err := idx.Search(ctx, []float32{1, 0}, domain.QueryOptions{TopK: 3, Threshold: 1.0})
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestSearch_TieBreakByDocumentOrder(t *testing.T) {
	idx := NewIndex()
	ctx := context.Background()

	// Identical vectors: scores tie exactly. Insertion order d1, d2;
	// within d1, node 1 before node 2.
	require.NoError(t, idx.Upsert(ctx, entryFor("d1-b", "d1", 2, 0, []float32{1, 0})))
	require.NoError(t, idx.Upsert(ctx, entryFor("d1-a", "d1", 1, 0, []float32{1, 0})))
	require.NoError(t, idx.Upsert(ctx, entryFor("d2-a", "d2", 1, 0, []float32{1, 0})))

	hits, err := idx.Search(ctx, []float32{1, 0}, domain.QueryOptions{TopK: 3})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "d1-a", hits[0].ChunkID)
	assert.Equal(t, "d1-b", hits[1].ChunkID)
	assert.Equal(t, "d2-a", hits[2].ChunkID)
}

func TestSearch_DocumentFilter(t *testing.T) {
	idx := NewIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, entryFor("c1", "d1", 1, 0, []float32{1, 0})))
	require.NoError(t, idx.Upsert(ctx, entryFor("c2", "d2", 1, 0, []float32{1, 0})))

	hits, err := idx.Search(ctx, []float32{1, 0}, domain.QueryOptions{TopK: 5, DocumentID: "d2"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "d2", hits[0].DocumentID)
}

func TestUpsert_ReplacesExistingVector(t *testing.T) {
	idx := NewIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, entryFor("c1", "d1", 1, 0, []float32{0, 1})))
	require.NoError(t, idx.Upsert(ctx, entryFor("c1", "d1", 1, 0, []float32{1, 0})))

	hits, err := idx.Search(ctx, []float32{1, 0}, domain.QueryOptions{TopK: 5})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
}

func TestDelete_RemovesSingleChunk(t *testing.T) {
	idx := NewIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, entryFor("c1", "d1", 1, 0, []float32{1, 0})))
	require.NoError(t, idx.Upsert(ctx, entryFor("c2", "d1", 1, 1, []float32{1, 0})))
	require.NoError(t, idx.Delete(ctx, "c1"))

	hits, err := idx.Search(ctx, []float32{1, 0}, domain.QueryOptions{TopK: 5})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c2", hits[0].ChunkID)
}

func TestRemove_EvictsWholeDocument(t *testing.T) {
	idx := NewIndex()
	ctx := context.Background()

	require.NoError(t, idx.UpsertBatch(ctx, "d1", []driven.VectorEntry{
		entryFor("c1", "d1", 1, 0, []float32{1, 0}),
		entryFor("c2", "d1", 1, 1, []float32{0, 1}),
	}))
	require.NoError(t, idx.Upsert(ctx, entryFor("c3", "d2", 1, 0, []float32{1, 0})))

	require.NoError(t, idx.Remove(ctx, "d1"))

	hits, err := idx.Search(ctx, []float32{1, 0}, domain.QueryOptions{TopK: 5, DocumentID: "d1"})
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = idx.Search(ctx, []float32{1, 0}, domain.QueryOptions{TopK: 5})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c3", hits[0].ChunkID)
}

func TestConcurrentWritesAndSearches(t *testing.T) {
	idx := NewIndex()
	ctx := context.Background()

	require.NoError(t, idx.UpsertBatch(ctx, "stable", []driven.VectorEntry{
		entryFor("s1", "stable", 1, 0, []float32{1, 0}),
		entryFor("s2", "stable", 1, 1, []float32{1, 0}),
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = idx.UpsertBatch(ctx, "churn", []driven.VectorEntry{
				entryFor("t1", "churn", 1, 0, []float32{0, 1}),
				entryFor("t2", "churn", 1, 1, []float32{0, 1}),
			})
			_ = idx.Remove(ctx, "churn")
		}()
		go func() {
			defer wg.Done()
			// Searches scoped to the stable document always see both chunks.
			hits, err := idx.Search(ctx, []float32{1, 0}, domain.QueryOptions{TopK: 10, DocumentID: "stable"})
			assert.NoError(t, err)
			assert.Len(t, hits, 2)
		}()
	}
	wg.Wait()
}
