package catalog

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/docatlas/docatlas/internal/core/domain"
)

// headingPattern recognises ATX headings, levels 1-6.
var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// Extractor parses a markdown document's heading structure into a
// catalog tree.
type Extractor struct{}

// NewExtractor creates a new catalog extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract scans the markdown line by line and builds the node arena.
//
// A heading closes the currently open node at its depth and all deeper
// open nodes, then opens a new node under the nearest open shallower
// ancestor. Skipped levels (a depth-1 heading followed directly by
// depth-3) attach to the nearest valid ancestor rather than failing.
// A document with no headings yields just the synthetic root, spanning
// the whole text.
//
// Fails with domain.ErrParse only on undecodable input, never on
// structural irregularity.
func (e *Extractor) Extract(documentID, markdown string) (*domain.Catalog, error) {
	if !utf8.ValidString(markdown) {
		return nil, fmt.Errorf("%w: document %s is not valid UTF-8", domain.ErrParse, documentID)
	}

	lines := strings.Split(markdown, "\n")
	end := len(lines)

	cat := &domain.Catalog{DocumentID: documentID}
	cat.Nodes = append(cat.Nodes, domain.CatalogNode{
		ID:         0,
		Depth:      0,
		Parent:     domain.NoNode,
		Seq:        0,
		StartLine:  0,
		EndLine:    end,
		OwnEndLine: end,
	})

	// Stack of open node ids; the root stays at the bottom for the whole scan.
	stack := []domain.NodeID{0}

	for i, line := range lines {
		m := headingPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		depth := len(m[1])
		title := strings.TrimSpace(m[2])

		for len(stack) > 1 && cat.Nodes[stack[len(stack)-1]].Depth >= depth {
			closeNode(&cat.Nodes[stack[len(stack)-1]], i)
			stack = stack[:len(stack)-1]
		}

		parentID := stack[len(stack)-1]
		parent := &cat.Nodes[parentID]
		if len(parent.Children) == 0 {
			// The parent's own span ends where its first child begins.
			parent.OwnEndLine = i
		}

		id := domain.NodeID(len(cat.Nodes))
		path := make([]string, 0, len(parent.Path)+1)
		path = append(path, parent.Path...)
		path = append(path, title)

		cat.Nodes = append(cat.Nodes, domain.CatalogNode{
			ID:         id,
			Title:      title,
			Depth:      depth,
			Parent:     parentID,
			Path:       path,
			Seq:        int(id),
			StartLine:  i,
			EndLine:    end,
			OwnEndLine: end,
		})
		parent.Children = append(parent.Children, id)
		stack = append(stack, id)
	}

	for len(stack) > 1 {
		closeNode(&cat.Nodes[stack[len(stack)-1]], end)
		stack = stack[:len(stack)-1]
	}

	return cat, nil
}

// closeNode seals a node's section at the given line. A childless node's
// own span collapses to its section span.
func closeNode(n *domain.CatalogNode, line int) {
	n.EndLine = line
	if n.OwnEndLine > line {
		n.OwnEndLine = line
	}
}

// StructureEqual reports whether two catalogs share the same heading
// structure: same node count, titles, depths and parent edges. Used to
// decide whether an edit needs a full re-index.
func StructureEqual(a, b *domain.Catalog) bool {
	if len(a.Nodes) != len(b.Nodes) {
		return false
	}
	for i := range a.Nodes {
		na, nb := &a.Nodes[i], &b.Nodes[i]
		if na.Title != nb.Title || na.Depth != nb.Depth || na.Parent != nb.Parent {
			return false
		}
	}
	return true
}
