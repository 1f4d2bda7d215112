package driven

import (
	"context"

	"github.com/docatlas/docatlas/internal/core/domain"
)

// VectorEntry is one (chunk, vector) pair held by the index. NodeSeq and
// Position carry the chunk's document order for deterministic tie-breaks.
type VectorEntry struct {
	ChunkID    string
	DocumentID string
	NodeSeq    int
	Position   int
	Vector     []float32
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// DocumentID is the matched chunk's owning document.
	DocumentID string

	// Similarity is the cosine similarity score (0-1).
	Similarity float64
}

// VectorIndex stores embeddings per document and answers nearest-neighbour
// queries under cosine similarity.
//
// Writes for a document are atomic with respect to concurrent searches:
// a search observes either the pre-write or post-write vector set of that
// document, never a partial one.
type VectorIndex interface {
	// Upsert inserts or replaces the vector for one chunk.
	Upsert(ctx context.Context, entry VectorEntry) error

	// UpsertBatch installs a document's complete vector set in one atomic
	// step, replacing whatever the document held before.
	UpsertBatch(ctx context.Context, documentID string, entries []VectorEntry) error

	// Delete removes the vector for one chunk, if present.
	Delete(ctx context.Context, chunkID string) error

	// Remove bulk-evicts all vectors of a document.
	Remove(ctx context.Context, documentID string) error

	// Search returns hits sorted by descending similarity; ties break by
	// document order then chunk order. Hits below opts.Threshold are
	// excluded. opts.TopK <= 0 or opts.Threshold >= 1.0 yield an empty
	// result, not an error.
	Search(ctx context.Context, query []float32, opts domain.QueryOptions) ([]VectorHit, error)

	// Close releases resources.
	Close() error
}
