package domain

// Chunk represents a bounded slice of one catalog node's own content,
// sized for embedding and retrieval.
type Chunk struct {
	// ID is deterministic for a given document, node and position, so
	// re-indexing an unchanged document reproduces identical ids.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// NodePath is the owning catalog node's path, denormalised so
	// provenance display needs no tree traversal.
	NodePath []string

	// NodeSeq is the owning node's document-order ordinal.
	NodeSeq int

	// Position is the chunk's sequence index within its node.
	Position int

	// Content is the chunk text.
	Content string

	// Overlap is the number of leading characters duplicated from the
	// previous chunk of the same node. Dropping Overlap characters from
	// every chunk after the first reconstructs the node's own span exactly.
	Overlap int

	// Length is the character length of Content.
	Length int

	// Oversized marks a chunk holding a single semantic unit (a table or
	// fenced code block) that could not be split below the size limit.
	Oversized bool
}

// Embedding is the current vector representation of one chunk.
// A chunk has at most one embedding; it is recomputed whenever the
// chunk's text changes.
type Embedding struct {
	// ChunkID is the owning chunk.
	ChunkID string

	// DocumentID is denormalised for bulk eviction.
	DocumentID string

	// Vector is the fixed-dimension embedding.
	Vector []float32

	// Model identifies the embedding model that produced the vector.
	Model string
}
