package driving

import (
	"context"

	"github.com/docatlas/docatlas/internal/core/domain"
)

// IndexStatus reports the outcome of an indexing run.
type IndexStatus struct {
	// DocumentID is the indexed document.
	DocumentID string

	// Status is the document's pipeline status after the run.
	Status domain.ProcessingStatus

	// Chunks is the number of chunks produced.
	Chunks int

	// Embedded is the number of chunks with a current embedding.
	Embedded int

	// Unchanged is true when the text matched the stored document and the
	// run was a no-op.
	Unchanged bool
}

// Indexer drives the extract -> split -> embed pipeline.
//
// Runs for the same document id are serialised; different documents
// proceed independently and in parallel.
type Indexer interface {
	// Index extracts the catalog, splits chunks and embeds them for the
	// given markdown text, creating or replacing the document.
	Index(ctx context.Context, documentID, text string) (*IndexStatus, error)

	// UpdateNode replaces the text of one catalog node. A body-only edit
	// regenerates exactly that node's chunks and embeddings; an edit that
	// introduces or removes headings re-indexes the whole document.
	UpdateNode(ctx context.Context, documentID string, path []string, text string) (*IndexStatus, error)

	// Delete removes a document with its catalog, chunks, embeddings and
	// vector entries.
	Delete(ctx context.Context, documentID string) error
}
