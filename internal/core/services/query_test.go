package services

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/docatlas/docatlas/internal/adapters/driven/storage/memory"
	vecmemory "github.com/docatlas/docatlas/internal/adapters/driven/vector/memory"
	"github.com/docatlas/docatlas/internal/core/domain"
)

// seedDocuments indexes fixture documents and returns a query engine over
// the same adapters.
func seedDocuments(t *testing.T, emb *mockEmbedder, ans *mockAnswerer, docs map[string]string, opts ...QueryOption) *QueryEngine {
	t.Helper()

	store := memory.NewDocumentStore()
	vec := vecmemory.NewIndex()
	ix := NewIndexerService(store, vec, emb)
	ix.limiter = rate.NewLimiter(rate.Inf, 1)

	for id, text := range docs {
		_, err := ix.Index(context.Background(), id, text)
		require.NoError(t, err)
	}

	if ans == nil {
		return NewQueryEngine(store, vec, emb, nil, opts...)
	}
	return NewQueryEngine(store, vec, emb, ans, opts...)
}

func TestQueryCatalogFirst_CatalogHit(t *testing.T) {
	emb := &mockEmbedder{}
	ans := &mockAnswerer{text: "install a recent kernel"}
	q := seedDocuments(t, emb, ans, map[string]string{"doc": indexDoc})

	answer, err := q.QueryCatalogFirst(context.Background(), "Requirements", "")
	require.NoError(t, err)

	assert.Equal(t, domain.SourceCatalog, answer.Source)
	assert.False(t, answer.NoContext)
	assert.Equal(t, "install a recent kernel", answer.Text)
	require.NotEmpty(t, answer.Results)
	assert.Equal(t, []string{"Install", "Requirements"}, answer.Results[0].Path)
	assert.Contains(t, answer.Results[0].Content, "A recent kernel.")
	assert.InDelta(t, 1.0, answer.Results[0].Score, 1e-9)
	assert.Empty(t, answer.Results[0].ChunkID, "catalog results cover a section, not a chunk")

	assert.Equal(t, "Requirements", ans.lastQuery)
	assert.Contains(t, ans.lastContext, "A recent kernel.")
	assert.Equal(t, 0, emb.embedCalls, "catalog hits never embed the query")
}

func TestQueryCatalogFirst_SectionIncludesDescendants(t *testing.T) {
	emb := &mockEmbedder{}
	ans := &mockAnswerer{text: "ok"}
	q := seedDocuments(t, emb, ans, map[string]string{"doc": indexDoc})

	answer, err := q.QueryCatalogFirst(context.Background(), "Install", "")
	require.NoError(t, err)

	require.NotEmpty(t, answer.Results)
	// The Install section carries its Requirements subsection.
	assert.Contains(t, answer.Results[0].Content, "Run the installer.")
	assert.Contains(t, answer.Results[0].Content, "A recent kernel.")
}

func TestQueryCatalogFirst_RankedByRatio(t *testing.T) {
	doc := `# Alpha Beta Extra
full phrase section

# Alpha Beta
partial overlap section`
	emb := &mockEmbedder{}
	ans := &mockAnswerer{text: "ok"}
	q := seedDocuments(t, emb, ans, map[string]string{"doc": doc})

	answer, err := q.QueryCatalogFirst(context.Background(), "alpha beta extra", "")
	require.NoError(t, err)

	require.Len(t, answer.Results, 2)
	assert.Equal(t, []string{"Alpha Beta Extra"}, answer.Results[0].Path)
	assert.InDelta(t, 1.0, answer.Results[0].Score, 1e-9)
	assert.Equal(t, []string{"Alpha Beta"}, answer.Results[1].Path)
	assert.InDelta(t, 2.0/3.0, answer.Results[1].Score, 1e-9)
}

func TestQueryCatalogFirst_ContextSizeCap(t *testing.T) {
	doc := `# Alpha Beta Extra
full phrase section

# Alpha Beta
partial overlap section`
	emb := &mockEmbedder{}
	ans := &mockAnswerer{text: "ok"}
	q := seedDocuments(t, emb, ans, map[string]string{"doc": doc}, WithMaxContextSize(40))

	answer, err := q.QueryCatalogFirst(context.Background(), "alpha beta extra", "")
	require.NoError(t, err)

	// Only the best match fits under the cap; the best always survives.
	require.Len(t, answer.Results, 1)
	assert.Equal(t, []string{"Alpha Beta Extra"}, answer.Results[0].Path)
}

func TestQueryCatalogFirst_OversizedBestMatchTruncated(t *testing.T) {
	doc := "# Alpha\n" + strings.Repeat("长文本段落。", 30)
	emb := &mockEmbedder{}
	ans := &mockAnswerer{text: "ok"}
	q := seedDocuments(t, emb, ans, map[string]string{"doc": doc}, WithMaxContextSize(40))

	answer, err := q.QueryCatalogFirst(context.Background(), "alpha", "")
	require.NoError(t, err)
	require.Len(t, answer.Results, 1)

	// The lone match exceeds the budget, so the context handed to the
	// answer service is cut to the budget at a character boundary. The
	// result itself keeps the full section.
	assert.Equal(t, 40, utf8.RuneCountInString(ans.lastContext))
	assert.True(t, utf8.ValidString(ans.lastContext))
	assert.True(t, strings.HasPrefix(answer.Results[0].Content, ans.lastContext))
	assert.Greater(t, utf8.RuneCountInString(answer.Results[0].Content), 40)
}

func TestQueryCatalogFirst_VectorFallback(t *testing.T) {
	emb := &mockEmbedder{}
	ans := &mockAnswerer{text: "from vectors"}
	q := seedDocuments(t, emb, ans, map[string]string{"doc": indexDoc}, WithThreshold(0))

	answer, err := q.QueryCatalogFirst(context.Background(), "how does one launch the program", "")
	require.NoError(t, err)

	assert.Equal(t, domain.SourceVector, answer.Source)
	assert.False(t, answer.NoContext)
	assert.Equal(t, "from vectors", answer.Text)
	require.NotEmpty(t, answer.Results)
	assert.NotEmpty(t, answer.Results[0].ChunkID)
	assert.NotEmpty(t, answer.Results[0].Content)
	assert.Equal(t, 1, emb.embedCalls, "fallback embeds the query once")
}

func TestQueryCatalogFirst_NoContext(t *testing.T) {
	emb := &mockEmbedder{}
	ans := &mockAnswerer{text: "never used"}
	q := seedDocuments(t, emb, ans, map[string]string{}, WithThreshold(0))

	answer, err := q.QueryCatalogFirst(context.Background(), "anything at all", "")
	require.NoError(t, err)

	assert.True(t, answer.NoContext)
	assert.Empty(t, answer.Text)
	assert.Empty(t, answer.Results)
	assert.Equal(t, 0, ans.calls, "answer service is never invoked without context")
}

func TestQueryCatalogFirst_EmptyQuery(t *testing.T) {
	q := seedDocuments(t, &mockEmbedder{}, nil, map[string]string{"doc": indexDoc})

	_, err := q.QueryCatalogFirst(context.Background(), "   ", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQueryCatalogFirst_DocumentFilter(t *testing.T) {
	other := `# Usage
Different document usage notes.`
	emb := &mockEmbedder{}
	ans := &mockAnswerer{text: "ok"}
	q := seedDocuments(t, emb, ans, map[string]string{"doc": indexDoc, "other": other})

	answer, err := q.QueryCatalogFirst(context.Background(), "Usage", "other")
	require.NoError(t, err)

	require.NotEmpty(t, answer.Results)
	for _, r := range answer.Results {
		assert.Equal(t, "other", r.DocumentID)
	}
}

func TestQueryCatalogFirst_WithoutAnswerService(t *testing.T) {
	emb := &mockEmbedder{}
	q := seedDocuments(t, emb, nil, map[string]string{"doc": indexDoc})

	answer, err := q.QueryCatalogFirst(context.Background(), "Requirements", "")
	require.NoError(t, err)

	assert.Equal(t, domain.SourceCatalog, answer.Source)
	assert.Empty(t, answer.Text, "ranked context only, no generated answer")
	assert.NotEmpty(t, answer.Results)
}

func TestQueryVector_HydratesChunks(t *testing.T) {
	emb := &mockEmbedder{}
	q := seedDocuments(t, emb, nil, map[string]string{"doc": indexDoc})

	results, err := q.QueryVector(context.Background(), "anything", domain.QueryOptions{TopK: 3, Threshold: 0})
	require.NoError(t, err)

	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, domain.SourceVector, r.Source)
		assert.NotEmpty(t, r.ChunkID)
		assert.NotEmpty(t, r.Content)
		assert.NotEmpty(t, r.Path)
		assert.Equal(t, "doc", r.DocumentID)
	}
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Score, results[i-1].Score)
	}
}

func TestQueryVector_WithoutEmbedder(t *testing.T) {
	store := memory.NewDocumentStore()
	q := NewQueryEngine(store, nil, nil, nil)

	results, err := q.QueryVector(context.Background(), "anything", domain.QueryOptions{TopK: 3})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGetCatalogAndChunks(t *testing.T) {
	emb := &mockEmbedder{}
	q := seedDocuments(t, emb, nil, map[string]string{"doc": indexDoc})
	ctx := context.Background()

	cat, err := q.GetCatalog(ctx, "doc")
	require.NoError(t, err)
	assert.Len(t, cat.Nodes, 4)

	chunks, err := q.GetChunks(ctx, "doc")
	require.NoError(t, err)
	assert.Len(t, chunks, 3)

	_, err = q.GetCatalog(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
