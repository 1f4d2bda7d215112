package domain

import "time"

// ProcessingStatus tracks how far a document has moved through the
// indexing pipeline.
type ProcessingStatus string

// Pipeline statuses in order of progression.
const (
	// StatusParsed means the document text has been stored but not chunked.
	StatusParsed ProcessingStatus = "parsed"

	// StatusChunked means the catalog and chunks exist but embeddings do not.
	StatusChunked ProcessingStatus = "chunked"

	// StatusEmbedded means every chunk has a current embedding.
	StatusEmbedded ProcessingStatus = "embedded"

	// StatusPartial means some chunks could not be embedded. The document
	// remains queryable over its embedded subset.
	StatusPartial ProcessingStatus = "partial"

	// StatusFailed means indexing aborted and the document is not queryable.
	StatusFailed ProcessingStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s ProcessingStatus) IsValid() bool {
	switch s {
	case StatusParsed, StatusChunked, StatusEmbedded, StatusPartial, StatusFailed:
		return true
	default:
		return false
	}
}

// Queryable reports whether a document in this status can serve vector search.
func (s ProcessingStatus) Queryable() bool {
	return s == StatusEmbedded || s == StatusPartial
}

// Document represents a parsed markdown document owned by the
// processing pipeline.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Filename is the original upload name, kept for display.
	Filename string

	// Content is the full markdown text after parsing.
	Content string

	// ContentHash is the SHA-256 of Content, used to detect no-op re-uploads.
	ContentHash string

	// Status is the current pipeline status.
	Status ProcessingStatus

	// EmbeddedChunks counts chunks with a current embedding.
	EmbeddedChunks int

	// TotalChunks counts all chunks produced by the splitter.
	TotalChunks int

	// CreatedAt is when the document was first indexed.
	CreatedAt time.Time

	// UpdatedAt is when the document body was last modified.
	UpdatedAt time.Time
}
