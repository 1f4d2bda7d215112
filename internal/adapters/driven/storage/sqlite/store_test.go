package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docatlas/docatlas/internal/core/domain"
)

// newTestStore creates a store in a temp directory, closed on cleanup.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleDocument() *domain.Document {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Document{
		ID:             "guide",
		Filename:       "guide.md",
		Content:        "# Install\nRun it.",
		ContentHash:    "abc123",
		Status:         domain.StatusEmbedded,
		EmbeddedChunks: 2,
		TotalChunks:    2,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func sampleCatalog() *domain.Catalog {
	return &domain.Catalog{
		DocumentID: "guide",
		Nodes: []domain.CatalogNode{
			{ID: 0, Depth: 0, Parent: domain.NoNode, Seq: 0, StartLine: 0, EndLine: 2, OwnEndLine: 0},
			{ID: 1, Title: "Install", Depth: 1, Parent: 0, Path: []string{"Install"}, Seq: 1, StartLine: 0, EndLine: 2, OwnEndLine: 2},
		},
	}
}

func TestStore_MigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening runs migrate again over an up-to-date schema.
	store, err = NewStore(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, store.Path())
	require.NoError(t, store.Close())
}

func TestDocumentStore_SaveGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	doc := sampleDocument()
	require.NoError(t, docs.SaveDocument(ctx, doc))

	got, err := docs.GetDocument(ctx, "guide")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, doc.Filename, got.Filename)
	assert.Equal(t, doc.Content, got.Content)
	assert.Equal(t, doc.ContentHash, got.ContentHash)
	assert.Equal(t, domain.StatusEmbedded, got.Status)
	assert.Equal(t, 2, got.TotalChunks)

	_, err = docs.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SaveDocumentUpserts(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	doc := sampleDocument()
	require.NoError(t, docs.SaveDocument(ctx, doc))

	doc.Status = domain.StatusPartial
	doc.EmbeddedChunks = 1
	require.NoError(t, docs.SaveDocument(ctx, doc))

	got, err := docs.GetDocument(ctx, "guide")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartial, got.Status)
	assert.Equal(t, 1, got.EmbeddedChunks)

	list, err := docs.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDocumentStore_CatalogRoundTrip(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.SaveDocument(ctx, sampleDocument()))
	require.NoError(t, docs.SaveCatalog(ctx, sampleCatalog()))

	got, err := docs.GetCatalog(ctx, "guide")
	require.NoError(t, err)
	require.Len(t, got.Nodes, 2)

	root := got.Root()
	require.NotNil(t, root)
	assert.True(t, root.IsRoot())
	assert.Equal(t, []domain.NodeID{1}, root.Children, "children rebuilt from parent refs")

	node := got.Node(1)
	require.NotNil(t, node)
	assert.Equal(t, "Install", node.Title)
	assert.Equal(t, []string{"Install"}, node.Path)
	assert.Equal(t, domain.NodeID(0), node.Parent)

	_, err = docs.GetCatalog(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SaveCatalogReplaces(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.SaveDocument(ctx, sampleDocument()))
	require.NoError(t, docs.SaveCatalog(ctx, sampleCatalog()))

	replacement := &domain.Catalog{
		DocumentID: "guide",
		Nodes: []domain.CatalogNode{
			{ID: 0, Depth: 0, Parent: domain.NoNode, Seq: 0},
		},
	}
	require.NoError(t, docs.SaveCatalog(ctx, replacement))

	got, err := docs.GetCatalog(ctx, "guide")
	require.NoError(t, err)
	assert.Len(t, got.Nodes, 1)
}

func TestDocumentStore_ChunksRoundTrip(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.SaveDocument(ctx, sampleDocument()))

	chunks := []domain.Chunk{
		{ID: "guide:2:0", DocumentID: "guide", NodePath: []string{"Usage"}, NodeSeq: 2, Position: 0, Content: "later", Length: 5},
		{ID: "guide:1:1", DocumentID: "guide", NodePath: []string{"Install"}, NodeSeq: 1, Position: 1, Content: "tail", Overlap: 2, Length: 4},
		{ID: "guide:1:0", DocumentID: "guide", NodePath: []string{"Install"}, NodeSeq: 1, Position: 0, Content: "head", Length: 4, Oversized: true},
	}
	require.NoError(t, docs.SaveChunks(ctx, chunks))

	got, err := docs.GetChunks(ctx, "guide")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "guide:1:0", got[0].ID)
	assert.Equal(t, "guide:1:1", got[1].ID)
	assert.Equal(t, "guide:2:0", got[2].ID)
	assert.True(t, got[0].Oversized)
	assert.Equal(t, 2, got[1].Overlap)
	assert.Equal(t, []string{"Install"}, got[0].NodePath)

	chunk, err := docs.GetChunk(ctx, "guide:2:0")
	require.NoError(t, err)
	assert.Equal(t, "later", chunk.Content)

	_, err = docs.GetChunk(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_DeleteNodeChunksCascadesEmbeddings(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.SaveDocument(ctx, sampleDocument()))
	require.NoError(t, docs.SaveChunks(ctx, []domain.Chunk{
		{ID: "guide:1:0", DocumentID: "guide", NodePath: []string{"Install"}, NodeSeq: 1, Position: 0, Content: "a"},
		{ID: "guide:2:0", DocumentID: "guide", NodePath: []string{"Usage"}, NodeSeq: 2, Position: 0, Content: "b"},
	}))
	require.NoError(t, docs.SaveEmbeddings(ctx, []domain.Embedding{
		{ChunkID: "guide:1:0", DocumentID: "guide", Vector: []float32{1, 2}, Model: "m"},
		{ChunkID: "guide:2:0", DocumentID: "guide", Vector: []float32{3, 4}, Model: "m"},
	}))

	require.NoError(t, docs.DeleteNodeChunks(ctx, "guide", 1))

	chunks, err := docs.GetChunks(ctx, "guide")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "guide:2:0", chunks[0].ID)

	embs, err := docs.GetEmbeddings(ctx, "guide")
	require.NoError(t, err)
	require.Len(t, embs, 1)
	assert.Equal(t, "guide:2:0", embs[0].ChunkID)
}

func TestDocumentStore_EmbeddingVectorRoundTrip(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.SaveDocument(ctx, sampleDocument()))
	require.NoError(t, docs.SaveChunks(ctx, []domain.Chunk{
		{ID: "guide:1:0", DocumentID: "guide", NodePath: []string{"Install"}, NodeSeq: 1, Position: 0, Content: "a"},
	}))

	vector := []float32{0.25, -1.5, 3.75, 0}
	require.NoError(t, docs.SaveEmbeddings(ctx, []domain.Embedding{
		{ChunkID: "guide:1:0", DocumentID: "guide", Vector: vector, Model: "text-embedding-3-small"},
	}))

	embs, err := docs.GetEmbeddings(ctx, "guide")
	require.NoError(t, err)
	require.Len(t, embs, 1)
	assert.Equal(t, vector, embs[0].Vector)
	assert.Equal(t, "text-embedding-3-small", embs[0].Model)

	// Re-saving replaces the vector.
	require.NoError(t, docs.SaveEmbeddings(ctx, []domain.Embedding{
		{ChunkID: "guide:1:0", DocumentID: "guide", Vector: []float32{9}, Model: "other"},
	}))
	embs, err = docs.GetEmbeddings(ctx, "guide")
	require.NoError(t, err)
	require.Len(t, embs, 1)
	assert.Equal(t, []float32{9}, embs[0].Vector)
	assert.Equal(t, "other", embs[0].Model)
}

func TestDocumentStore_DeleteDocumentCascades(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.SaveDocument(ctx, sampleDocument()))
	require.NoError(t, docs.SaveCatalog(ctx, sampleCatalog()))
	require.NoError(t, docs.SaveChunks(ctx, []domain.Chunk{
		{ID: "guide:1:0", DocumentID: "guide", NodePath: []string{"Install"}, NodeSeq: 1, Position: 0, Content: "a"},
	}))
	require.NoError(t, docs.SaveEmbeddings(ctx, []domain.Embedding{
		{ChunkID: "guide:1:0", DocumentID: "guide", Vector: []float32{1}, Model: "m"},
	}))

	require.NoError(t, docs.DeleteDocument(ctx, "guide"))

	_, err := docs.GetDocument(ctx, "guide")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = docs.GetCatalog(ctx, "guide")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chunks, err := docs.GetChunks(ctx, "guide")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	embs, err := docs.GetEmbeddings(ctx, "guide")
	require.NoError(t, err)
	assert.Empty(t, embs)
}
