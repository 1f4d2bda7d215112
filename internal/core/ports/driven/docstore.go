package driven

import (
	"context"

	"github.com/docatlas/docatlas/internal/core/domain"
)

// DocumentStore persists documents, catalogs, chunks and embeddings.
// Backed by SQLite for durable storage, with an in-memory variant for tests.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all documents.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document with its catalog, chunks and
	// embeddings.
	DeleteDocument(ctx context.Context, id string) error

	// SaveCatalog stores or replaces a document's catalog tree.
	SaveCatalog(ctx context.Context, catalog *domain.Catalog) error

	// GetCatalog retrieves a document's catalog tree.
	GetCatalog(ctx context.Context, documentID string) (*domain.Catalog, error)

	// SaveChunks upserts chunks by id.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetChunks retrieves a document's chunks ordered by node ordinal then
	// position.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// DeleteNodeChunks removes one node's chunks and their embeddings,
	// leaving the rest of the document untouched.
	DeleteNodeChunks(ctx context.Context, documentID string, nodeSeq int) error

	// SaveEmbeddings upserts embeddings by chunk id.
	SaveEmbeddings(ctx context.Context, embeddings []domain.Embedding) error

	// GetEmbeddings retrieves all current embeddings for a document.
	GetEmbeddings(ctx context.Context, documentID string) ([]domain.Embedding, error)
}
