package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/docatlas/docatlas/internal/catalog"
	"github.com/docatlas/docatlas/internal/core/domain"
	"github.com/docatlas/docatlas/internal/core/ports/driven"
	"github.com/docatlas/docatlas/internal/core/ports/driving"
	"github.com/docatlas/docatlas/internal/logger"
)

// Ensure QueryEngine implements the interface.
var _ driving.QueryService = (*QueryEngine)(nil)

// queryState is one stage of the catalog-first query flow.
type queryState int

// Catalog-first query states. The flow starts at stateCatalogAttempt and
// always terminates in stateAnswered or stateNoContext.
const (
	stateCatalogAttempt queryState = iota
	stateVectorFallback
	stateAnswered
	stateNoContext
)

// afterCatalog decides the next state from the catalog attempt's outcome.
func afterCatalog(matched bool) queryState {
	if matched {
		return stateAnswered
	}
	return stateVectorFallback
}

// afterVector decides the next state from the vector fallback's outcome.
func afterVector(hit bool) queryState {
	if hit {
		return stateAnswered
	}
	return stateNoContext
}

// Default retrieval parameters, overridable per engine.
const (
	defaultTopK           = 5
	defaultThreshold      = 0.3
	defaultMaxContextSize = 8000
)

// QueryEngine answers queries with a lexical catalog pass first and a
// vector similarity fallback second.
type QueryEngine struct {
	docStore         driven.DocumentStore
	vectorIndex      driven.VectorIndex
	embeddingService driven.EmbeddingService
	answerService    driven.AnswerService

	matcher        *catalog.Matcher
	topK           int
	threshold      float64
	maxContextSize int
}

// QueryOption configures the query engine.
type QueryOption func(*QueryEngine)

// WithTopK sets the default result count for the vector fallback.
func WithTopK(k int) QueryOption {
	return func(q *QueryEngine) {
		if k > 0 {
			q.topK = k
		}
	}
}

// WithThreshold sets the default similarity floor for the vector fallback.
func WithThreshold(t float64) QueryOption {
	return func(q *QueryEngine) {
		if t >= 0 {
			q.threshold = t
		}
	}
}

// WithMaxContextSize caps the characters of context handed to the answer
// service.
func WithMaxContextSize(size int) QueryOption {
	return func(q *QueryEngine) {
		if size > 0 {
			q.maxContextSize = size
		}
	}
}

// WithMatcher overrides the default catalog matcher.
func WithMatcher(m *catalog.Matcher) QueryOption {
	return func(q *QueryEngine) {
		q.matcher = m
	}
}

// NewQueryEngine creates a query engine. The embeddingService, vectorIndex
// and answerService parameters are optional (can be nil): without the
// first two the vector fallback is skipped, and without the last the
// engine returns ranked context with no answer text.
func NewQueryEngine(
	docStore driven.DocumentStore,
	vectorIndex driven.VectorIndex,
	embeddingService driven.EmbeddingService,
	answerService driven.AnswerService,
	opts ...QueryOption,
) *QueryEngine {
	q := &QueryEngine{
		docStore:         docStore,
		vectorIndex:      vectorIndex,
		embeddingService: embeddingService,
		answerService:    answerService,
		matcher:          catalog.NewMatcher(),
		topK:             defaultTopK,
		threshold:        defaultThreshold,
		maxContextSize:   defaultMaxContextSize,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// QueryCatalogFirst runs the smart query flow: catalog match first, vector
// fallback second, then answer generation over whichever context was found.
func (q *QueryEngine) QueryCatalogFirst(ctx context.Context, query, documentID string) (*domain.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	answer := &domain.Answer{Query: query}
	state := stateCatalogAttempt

	for {
		switch state {
		case stateCatalogAttempt:
			results, err := q.catalogAttempt(ctx, query, documentID)
			if err != nil {
				return nil, err
			}
			if len(results) > 0 {
				answer.Source = domain.SourceCatalog
				answer.Results = results
			}
			state = afterCatalog(len(results) > 0)

		case stateVectorFallback:
			results, err := q.vectorFallback(ctx, query, documentID)
			if err != nil {
				return nil, err
			}
			if len(results) > 0 {
				answer.Source = domain.SourceVector
				answer.Results = results
			}
			state = afterVector(len(results) > 0)

		case stateAnswered:
			logger.Debug("Query answered from %s with %d context pieces", answer.Source, len(answer.Results))
			if q.answerService != nil {
				text, err := q.answerService.Generate(ctx, query, q.contextText(answer.Results))
				if err != nil {
					return nil, err
				}
				answer.Text = text
			}
			return answer, nil

		case stateNoContext:
			logger.Debug("Query produced no context: %q", query)
			answer.NoContext = true
			return answer, nil
		}
	}
}

// catalogAttempt matches the query lexically against catalog node titles
// and paths, returning matched sections ranked by overlap ratio.
func (q *QueryEngine) catalogAttempt(ctx context.Context, query, documentID string) ([]domain.QueryResult, error) {
	catalogs, err := q.loadCatalogs(ctx, documentID)
	if err != nil {
		return nil, err
	}

	type scoredMatch struct {
		match   catalog.Match
		content string
		docSeq  int
	}
	var matches []scoredMatch

	for seq, c := range catalogs {
		doc, err := q.docStore.GetDocument(ctx, c.DocumentID)
		if err != nil {
			return nil, err
		}
		lines := strings.Split(doc.Content, "\n")
		for _, m := range q.matcher.Match(query, c) {
			content := c.SectionSpan(lines, m.Node)
			if strings.TrimSpace(content) == "" {
				continue
			}
			matches = append(matches, scoredMatch{match: m, content: content, docSeq: seq})
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}

	// Best ratio first; ties keep document then node order.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].match.Ratio != matches[j].match.Ratio {
			return matches[i].match.Ratio > matches[j].match.Ratio
		}
		if matches[i].docSeq != matches[j].docSeq {
			return matches[i].docSeq < matches[j].docSeq
		}
		return matches[i].match.Node < matches[j].match.Node
	})

	results := make([]domain.QueryResult, 0, len(matches))
	used := 0
	for _, m := range matches {
		if used > 0 && used+utf8.RuneCountInString(m.content) > q.maxContextSize {
			break
		}
		results = append(results, domain.QueryResult{
			Source:     domain.SourceCatalog,
			Content:    m.content,
			Score:      m.match.Ratio,
			Path:       m.match.Path,
			DocumentID: m.match.DocumentID,
		})
		used += utf8.RuneCountInString(m.content)
	}
	return results, nil
}

// vectorFallback embeds the query and searches the vector index, hydrating
// hits back into chunk content.
func (q *QueryEngine) vectorFallback(ctx context.Context, query, documentID string) ([]domain.QueryResult, error) {
	opts := domain.QueryOptions{
		TopK:       q.topK,
		Threshold:  q.threshold,
		DocumentID: documentID,
	}
	return q.QueryVector(ctx, query, opts)
}

// QueryVector is the traditional vector-only path. It never consults the
// catalog and never invokes the answer service.
func (q *QueryEngine) QueryVector(ctx context.Context, query string, opts domain.QueryOptions) ([]domain.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if q.embeddingService == nil || q.vectorIndex == nil {
		return nil, nil
	}

	vector, err := q.embeddingService.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := q.vectorIndex.Search(ctx, vector, opts)
	if err != nil {
		return nil, err
	}

	results := make([]domain.QueryResult, 0, len(hits))
	for _, h := range hits {
		chunk, err := q.docStore.GetChunk(ctx, h.ChunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Vector index ahead of the store; skip the orphan.
				logger.Warn("Chunk %s in vector index but not in store", h.ChunkID)
				continue
			}
			return nil, err
		}
		results = append(results, domain.QueryResult{
			Source:     domain.SourceVector,
			Content:    chunk.Content,
			Score:      h.Similarity,
			Path:       chunk.NodePath,
			DocumentID: chunk.DocumentID,
			ChunkID:    chunk.ID,
		})
	}
	return results, nil
}

// GetCatalog returns a document's catalog tree.
func (q *QueryEngine) GetCatalog(ctx context.Context, documentID string) (*domain.Catalog, error) {
	return q.docStore.GetCatalog(ctx, documentID)
}

// GetChunks returns a document's chunks in document order.
func (q *QueryEngine) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	return q.docStore.GetChunks(ctx, documentID)
}

// GetDocument returns one document's metadata and content.
func (q *QueryEngine) GetDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	return q.docStore.GetDocument(ctx, documentID)
}

// ListDocuments returns all indexed documents ordered by id.
func (q *QueryEngine) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	return q.docStore.ListDocuments(ctx)
}

// loadCatalogs returns the catalogs in scope for a query: one document's
// catalog, or every document's when no filter is given.
func (q *QueryEngine) loadCatalogs(ctx context.Context, documentID string) ([]*domain.Catalog, error) {
	if documentID != "" {
		c, err := q.docStore.GetCatalog(ctx, documentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return []*domain.Catalog{c}, nil
	}

	docs, err := q.docStore.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	catalogs := make([]*domain.Catalog, 0, len(docs))
	for _, d := range docs {
		c, err := q.docStore.GetCatalog(ctx, d.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		catalogs = append(catalogs, c)
	}
	return catalogs, nil
}

// contextText concatenates ranked context for the answer service, capped
// at the configured size in characters. The best piece is always kept,
// truncated to the budget when it alone exceeds it, so a non-empty match
// set never produces empty context.
func (q *QueryEngine) contextText(results []domain.QueryResult) string {
	var b strings.Builder
	used := 0
	for i, r := range results {
		content := r.Content
		size := utf8.RuneCountInString(content)
		if i == 0 && size > q.maxContextSize {
			content = string([]rune(content)[:q.maxContextSize])
			size = q.maxContextSize
		}
		if used > 0 && used+size > q.maxContextSize {
			break
		}
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		b.WriteString(content)
		used += size
	}
	return b.String()
}
