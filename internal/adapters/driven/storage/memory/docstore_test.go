package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docatlas/docatlas/internal/core/domain"
)

func testDocument(id string) *domain.Document {
	now := time.Now()
	return &domain.Document{
		ID:          id,
		Filename:    id + ".md",
		Content:     "# Title\nbody",
		ContentHash: "hash-" + id,
		Status:      domain.StatusChunked,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func testCatalog(documentID string) *domain.Catalog {
	return &domain.Catalog{
		DocumentID: documentID,
		Nodes: []domain.CatalogNode{
			{ID: 0, Depth: 0, Parent: domain.NoNode, Children: []domain.NodeID{1}, Seq: 0},
			{ID: 1, Title: "Title", Depth: 1, Parent: 0, Path: []string{"Title"}, Seq: 1, StartLine: 0, EndLine: 2, OwnEndLine: 2},
		},
	}
}

func testChunk(documentID string, nodeSeq, position int) domain.Chunk {
	content := "chunk content"
	return domain.Chunk{
		ID:         "chunk-" + documentID,
		DocumentID: documentID,
		NodePath:   []string{"Title"},
		NodeSeq:    nodeSeq,
		Position:   position,
		Content:    content,
		Length:     len(content),
	}
}

func TestSaveAndGetDocument(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc := testDocument("doc1")
	require.NoError(t, store.SaveDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, doc.ContentHash, got.ContentHash)

	_, err = store.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListDocuments_SortedByID(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, testDocument("b")))
	require.NoError(t, store.SaveDocument(ctx, testDocument("a")))
	require.NoError(t, store.SaveDocument(ctx, testDocument("c")))

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
	assert.Equal(t, "c", docs[2].ID)
}

func TestSaveAndGetCatalog(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveCatalog(ctx, testCatalog("doc1")))

	got, err := store.GetCatalog(ctx, "doc1")
	require.NoError(t, err)
	require.Len(t, got.Nodes, 2)
	assert.Equal(t, "Title", got.Nodes[1].Title)

	_, err = store.GetCatalog(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChunks_OrderedAndUpserted(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	chunks := []domain.Chunk{
		{ID: "d:2:0", DocumentID: "d", NodeSeq: 2, Position: 0, Content: "second node"},
		{ID: "d:1:1", DocumentID: "d", NodeSeq: 1, Position: 1, Content: "first node tail"},
		{ID: "d:1:0", DocumentID: "d", NodeSeq: 1, Position: 0, Content: "first node head"},
	}
	require.NoError(t, store.SaveChunks(ctx, chunks))

	got, err := store.GetChunks(ctx, "d")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "d:1:0", got[0].ID)
	assert.Equal(t, "d:1:1", got[1].ID)
	assert.Equal(t, "d:2:0", got[2].ID)

	// Saving the same id again replaces the chunk.
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "d:1:0", DocumentID: "d", NodeSeq: 1, Position: 0, Content: "rewritten"},
	}))
	got, err = store.GetChunks(ctx, "d")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "rewritten", got[0].Content)

	chunk, err := store.GetChunk(ctx, "d:2:0")
	require.NoError(t, err)
	assert.Equal(t, "second node", chunk.Content)

	_, err = store.GetChunk(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteNodeChunks_ScopedToNode(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "d:1:0", DocumentID: "d", NodeSeq: 1, Position: 0},
		{ID: "d:1:1", DocumentID: "d", NodeSeq: 1, Position: 1},
		{ID: "d:2:0", DocumentID: "d", NodeSeq: 2, Position: 0},
	}))
	require.NoError(t, store.SaveEmbeddings(ctx, []domain.Embedding{
		{ChunkID: "d:1:0", DocumentID: "d", Vector: []float32{1}},
		{ChunkID: "d:2:0", DocumentID: "d", Vector: []float32{1}},
	}))

	require.NoError(t, store.DeleteNodeChunks(ctx, "d", 1))

	got, err := store.GetChunks(ctx, "d")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "d:2:0", got[0].ID)

	embs, err := store.GetEmbeddings(ctx, "d")
	require.NoError(t, err)
	require.Len(t, embs, 1)
	assert.Equal(t, "d:2:0", embs[0].ChunkID)
}

func TestEmbeddings_UpsertByChunkID(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveEmbeddings(ctx, []domain.Embedding{
		{ChunkID: "c1", DocumentID: "d", Vector: []float32{1, 0}, Model: "m1"},
	}))
	require.NoError(t, store.SaveEmbeddings(ctx, []domain.Embedding{
		{ChunkID: "c1", DocumentID: "d", Vector: []float32{0, 1}, Model: "m2"},
	}))

	embs, err := store.GetEmbeddings(ctx, "d")
	require.NoError(t, err)
	require.Len(t, embs, 1)
	assert.Equal(t, "m2", embs[0].Model)
	assert.Equal(t, []float32{0, 1}, embs[0].Vector)
}

func TestDeleteDocument_CascadesEverything(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, testDocument("d")))
	require.NoError(t, store.SaveCatalog(ctx, testCatalog("d")))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{testChunk("d", 1, 0)}))
	require.NoError(t, store.SaveEmbeddings(ctx, []domain.Embedding{
		{ChunkID: "chunk-d", DocumentID: "d", Vector: []float32{1}},
	}))

	require.NoError(t, store.DeleteDocument(ctx, "d"))

	_, err := store.GetDocument(ctx, "d")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetCatalog(ctx, "d")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chunks, err := store.GetChunks(ctx, "d")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	embs, err := store.GetEmbeddings(ctx, "d")
	require.NoError(t, err)
	assert.Empty(t, embs)
}
