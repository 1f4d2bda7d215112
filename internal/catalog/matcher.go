package catalog

import (
	"strings"
	"unicode"

	"github.com/docatlas/docatlas/internal/core/domain"
)

// DefaultOverlapRatio is the share of query tokens that must appear in a
// node title, met or exceeded, for a token-overlap match.
const DefaultOverlapRatio = 0.5

// Match records a catalog node the query names or closely matches.
type Match struct {
	// DocumentID is the owning document.
	DocumentID string

	// Node is the matched node's arena index.
	Node domain.NodeID

	// Path is the matched node's catalog path.
	Path []string

	// Ratio is the token overlap ratio that produced the match. Substring
	// matches score 1.0.
	Ratio float64
}

// Matcher performs lexical matching of a query against catalog node titles
// and paths. It yields a match/no-match decision per node, not a ranked
// list.
type Matcher struct {
	overlapRatio float64
}

// MatcherOption configures the matcher.
type MatcherOption func(*Matcher)

// WithOverlapRatio sets the token overlap ratio a match must reach.
func WithOverlapRatio(r float64) MatcherOption {
	return func(m *Matcher) {
		if r > 0 && r <= 1 {
			m.overlapRatio = r
		}
	}
}

// NewMatcher creates a matcher with the given options.
func NewMatcher(opts ...MatcherOption) *Matcher {
	m := &Matcher{overlapRatio: DefaultOverlapRatio}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match tests every node of the catalog against the query and returns the
// matches in document order. The synthetic root never matches.
func (m *Matcher) Match(query string, cat *domain.Catalog) []Match {
	q := Normalise(query)
	if q == "" || cat == nil {
		return nil
	}
	queryTokens := strings.Fields(q)

	var matches []Match
	for i := range cat.Nodes {
		n := &cat.Nodes[i]
		if n.IsRoot() {
			continue
		}
		if ratio, ok := m.matchNode(q, queryTokens, n); ok {
			matches = append(matches, Match{
				DocumentID: cat.DocumentID,
				Node:       n.ID,
				Path:       n.Path,
				Ratio:      ratio,
			})
		}
	}
	return matches
}

// matchNode applies the two-part heuristic: normalised substring against
// the title or any path segment, then token overlap against the title.
func (m *Matcher) matchNode(q string, queryTokens []string, n *domain.CatalogNode) (float64, bool) {
	title := Normalise(n.Title)
	if title != "" && strings.Contains(title, q) {
		return 1.0, true
	}
	for _, segment := range n.Path {
		if s := Normalise(segment); s != "" && strings.Contains(s, q) {
			return 1.0, true
		}
	}

	ratio := tokenOverlap(queryTokens, strings.Fields(title))
	if ratio >= m.overlapRatio {
		return ratio, true
	}
	return 0, false
}

// tokenOverlap returns the share of query tokens present in the title.
func tokenOverlap(queryTokens, titleTokens []string) float64 {
	if len(queryTokens) == 0 || len(titleTokens) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(titleTokens))
	for _, t := range titleTokens {
		set[t] = struct{}{}
	}
	hits := 0
	for _, t := range queryTokens {
		if _, ok := set[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTokens))
}

// Normalise lowercases the text, strips punctuation and collapses
// whitespace, so "A.1 — Details" and "a 1 details" compare equal.
func Normalise(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
