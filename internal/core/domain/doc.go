// Package domain defines the core business entities for DocAtlas.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A parsed markdown document moving through the indexing pipeline
//   - Catalog / CatalogNode: The extracted heading hierarchy of a document
//   - Chunk: A bounded slice of a node's content, sized for embedding
//   - Embedding: The vector representation of a chunk
//   - QueryResult / Answer: Per-query retrieval output with provenance
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
