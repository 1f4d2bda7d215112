package driving

import (
	"context"

	"github.com/docatlas/docatlas/internal/core/domain"
)

// QueryService answers queries over indexed documents.
type QueryService interface {
	// QueryCatalogFirst is the smart query path: lexical catalog match
	// first, vector similarity fallback second. The answer carries
	// provenance for whichever path produced the context.
	QueryCatalogFirst(ctx context.Context, query, documentID string) (*domain.Answer, error)

	// QueryVector is the traditional vector-only path. It never consults
	// the catalog and never invokes the answer service.
	QueryVector(ctx context.Context, query string, opts domain.QueryOptions) ([]domain.QueryResult, error)

	// GetCatalog returns a document's catalog tree.
	GetCatalog(ctx context.Context, documentID string) (*domain.Catalog, error)

	// GetChunks returns a document's chunks in document order.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetDocument returns one document's metadata and content.
	GetDocument(ctx context.Context, documentID string) (*domain.Document, error)

	// ListDocuments returns all indexed documents ordered by id.
	ListDocuments(ctx context.Context) ([]domain.Document, error)
}
