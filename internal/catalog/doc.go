// Package catalog extracts the heading hierarchy of markdown documents
// and performs lexical query matching against it.
//
// The Extractor turns markdown text into a domain.Catalog: an arena of
// nodes mirroring the document's heading structure, with a synthetic root
// that owns any un-headed preamble. The Matcher decides, per node, whether
// a query names that node's section. It is a bounded heuristic, not a
// ranked full-text search.
package catalog
