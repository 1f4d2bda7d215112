package domain

import "strings"

// PathSeparator joins catalog node titles into a display path.
const PathSeparator = " > "

// NodeID identifies a node within a catalog's arena. The synthetic root
// is always node 0.
type NodeID int

// NoNode marks the absence of a parent reference.
const NoNode NodeID = -1

// CatalogNode is one entry in a document's extracted table of contents.
// Nodes reference each other by arena index rather than pointers, so the
// tree carries no ownership cycles.
type CatalogNode struct {
	// ID is the arena index of this node.
	ID NodeID

	// Title is the heading text. Empty for the synthetic root.
	Title string

	// Depth is the heading level (1-6). The synthetic root has depth 0.
	Depth int

	// Parent is the arena index of the parent node, or NoNode for the root.
	Parent NodeID

	// Children are arena indexes of child nodes in document order.
	Children []NodeID

	// Path is the sequence of titles from the first headed ancestor down to
	// this node. The synthetic root contributes nothing to paths.
	Path []string

	// Seq is the document-order ordinal of the node, starting at 0 for the
	// root. Stable across re-splits that do not change heading structure.
	Seq int

	// StartLine and EndLine bound the node's full section [StartLine, EndLine),
	// including all descendant sections. The heading line itself belongs to
	// the node it opens.
	StartLine int
	EndLine   int

	// OwnEndLine bounds the node's own span [StartLine, OwnEndLine),
	// exclusive of descendant spans.
	OwnEndLine int
}

// PathString renders the node path for provenance display.
func (n *CatalogNode) PathString() string {
	return strings.Join(n.Path, PathSeparator)
}

// IsRoot reports whether this is the synthetic root node.
func (n *CatalogNode) IsRoot() bool {
	return n.Depth == 0
}

// Catalog is the extracted heading hierarchy of one document. Nodes are
// stored as an arena in document order; Nodes[0] is the synthetic root.
type Catalog struct {
	// DocumentID is the owning document.
	DocumentID string

	// Nodes is the node arena in document order.
	Nodes []CatalogNode
}

// Root returns the synthetic root node, or nil for an empty catalog.
func (c *Catalog) Root() *CatalogNode {
	if len(c.Nodes) == 0 {
		return nil
	}
	return &c.Nodes[0]
}

// Node returns the node with the given arena index, or nil if out of range.
func (c *Catalog) Node(id NodeID) *CatalogNode {
	if id < 0 || int(id) >= len(c.Nodes) {
		return nil
	}
	return &c.Nodes[id]
}

// NodeByPath finds the node whose path matches exactly, or nil.
func (c *Catalog) NodeByPath(path []string) *CatalogNode {
	for i := range c.Nodes {
		if pathsEqual(c.Nodes[i].Path, path) {
			return &c.Nodes[i]
		}
	}
	return nil
}

// OwnSpan returns the node's own content, exclusive of descendant sections.
// lines must be the owning document's content split on newlines.
func (c *Catalog) OwnSpan(lines []string, id NodeID) string {
	n := c.Node(id)
	if n == nil {
		return ""
	}
	return joinSpan(lines, n.StartLine, n.OwnEndLine)
}

// SectionSpan returns the node's accumulated content: its own span plus all
// descendant spans, in document order.
func (c *Catalog) SectionSpan(lines []string, id NodeID) string {
	n := c.Node(id)
	if n == nil {
		return ""
	}
	return joinSpan(lines, n.StartLine, n.EndLine)
}

func joinSpan(lines []string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}

func pathsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
