package domain

// ResultSource identifies which retrieval path produced a result.
type ResultSource string

// Retrieval paths.
const (
	// SourceCatalog means the result came from a lexical catalog match.
	SourceCatalog ResultSource = "catalog"

	// SourceVector means the result came from vector similarity search.
	SourceVector ResultSource = "vector"
)

// QueryOptions configures a vector query.
type QueryOptions struct {
	// TopK is the maximum number of results. Zero or negative yields an
	// empty result set.
	TopK int

	// Threshold excludes results whose similarity is below it. A threshold
	// of 1.0 or above yields an empty result set.
	Threshold float64

	// DocumentID restricts the search to one document when non-empty.
	DocumentID string
}

// QueryResult is a single ranked retrieval hit. Ephemeral: constructed per
// query, never persisted.
type QueryResult struct {
	// Source is the retrieval path that produced this result.
	Source ResultSource

	// Content is the section or chunk text selected as context.
	Content string

	// Score is the similarity score for vector results, or the token
	// overlap ratio for catalog results.
	Score float64

	// Path is the catalog path of the node that owns the content.
	Path []string

	// DocumentID identifies the owning document.
	DocumentID string

	// ChunkID identifies the matched chunk. Empty for catalog results,
	// which cover a whole section rather than one chunk.
	ChunkID string
}

// Answer is the output of the catalog-first query path.
type Answer struct {
	// Query is the original query text.
	Query string

	// Source is the retrieval path that supplied the context. Empty when
	// no content matched.
	Source ResultSource

	// Text is the generated answer. Empty when NoContext is true.
	Text string

	// Results are the ranked context pieces handed to the answer service,
	// kept for provenance display.
	Results []QueryResult

	// NoContext is true when neither retrieval path produced content. The
	// answer service is never invoked in that case.
	NoContext bool
}
