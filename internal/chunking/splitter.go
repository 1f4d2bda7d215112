package chunking

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/docatlas/docatlas/internal/core/domain"
)

// DefaultMaxChunkSize is the default number of characters per chunk.
const DefaultMaxChunkSize = 1000

// DefaultOverlap is the default number of overlapping characters.
const DefaultOverlap = 200

// Splitter splits catalog node spans into sliding-window chunks.
type Splitter struct {
	maxSize int
	overlap int
	minSize int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithMaxChunkSize sets the chunk size limit in characters.
func WithMaxChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.maxSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// WithMinChunkSize sets the floor below which a trailing window is merged
// into the previous chunk of the same node.
func WithMinChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.minSize = size
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		maxSize: DefaultMaxChunkSize,
		overlap: DefaultOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap doesn't exceed chunk size
	if s.overlap >= s.maxSize {
		s.overlap = s.maxSize / 4
	}
	// Merge floor defaults to 10% of the chunk size limit
	if s.minSize <= 0 {
		s.minSize = s.maxSize / 10
	}
	return s
}

// Split produces the ordered chunks for every node of the catalog.
// content must be the markdown text the catalog was extracted from.
//
// Merging of undersized trailing windows never crosses node boundaries,
// so concatenating a node's chunks (dropping each chunk's recorded
// overlap prefix) reconstructs that node's own span exactly.
func (s *Splitter) Split(cat *domain.Catalog, content string) []domain.Chunk {
	if cat == nil || content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")

	var chunks []domain.Chunk
	for i := range cat.Nodes {
		n := &cat.Nodes[i]
		own := cat.OwnSpan(lines, n.ID)
		if strings.TrimSpace(own) == "" {
			continue
		}
		for idx, w := range s.windows(own) {
			chunks = append(chunks, domain.Chunk{
				ID:         ChunkID(cat.DocumentID, n.Seq, idx),
				DocumentID: cat.DocumentID,
				NodePath:   n.Path,
				NodeSeq:    n.Seq,
				Position:   idx,
				Content:    w.text,
				Overlap:    w.overlap,
				Length:     utf8.RuneCountInString(w.text),
				Oversized:  w.oversized,
			})
		}
	}
	return chunks
}

// SplitNode chunks a single node's own span, for section-scoped re-splits.
func (s *Splitter) SplitNode(documentID string, n *domain.CatalogNode, own string) []domain.Chunk {
	if strings.TrimSpace(own) == "" {
		return nil
	}
	var chunks []domain.Chunk
	for idx, w := range s.windows(own) {
		chunks = append(chunks, domain.Chunk{
			ID:         ChunkID(documentID, n.Seq, idx),
			DocumentID: documentID,
			NodePath:   n.Path,
			NodeSeq:    n.Seq,
			Position:   idx,
			Content:    w.text,
			Overlap:    w.overlap,
			Length:     utf8.RuneCountInString(w.text),
			Oversized:  w.oversized,
		})
	}
	return chunks
}

// ChunkID builds the deterministic id for a chunk: document, node ordinal,
// position within the node.
func ChunkID(documentID string, nodeSeq, position int) string {
	return fmt.Sprintf("%s:%d:%d", documentID, nodeSeq, position)
}

// window is one sliding-window slice of a node span.
type window struct {
	text      string
	overlap   int
	oversized bool
}

// windows consumes the text in order, emitting up to maxSize characters
// per window and re-consuming the trailing overlap as the next window's
// prefix. All offsets are rune offsets, so cuts never tear a multibyte
// character. Cuts never land inside an atomic region; a region that alone
// exceeds maxSize becomes its own oversized window.
func (s *Splitter) windows(text string) []window {
	runes := []rune(text)
	regions := atomicRegions(text)

	var ws []window
	start := 0
	prevOverlap := 0
	for start < len(runes) {
		cut := start + s.maxSize
		oversized := false
		atBoundary := false
		if cut >= len(runes) {
			cut = len(runes)
		} else if r, ok := regionContaining(regions, cut); ok {
			if r.start > start {
				// Cut just before the region; the region opens the next window.
				cut = r.start
				atBoundary = true
			} else {
				cut = r.end
				if cut > len(runes) {
					cut = len(runes)
				}
				oversized = cut-start > s.maxSize
			}
		}

		ws = append(ws, window{text: string(runes[start:cut]), overlap: prevOverlap, oversized: oversized})
		if cut >= len(runes) {
			break
		}

		next := cut - s.overlap
		if oversized || atBoundary || next <= start {
			// No overlap across an atomic boundary or after an oversized
			// window, and always move forward.
			next = cut
			prevOverlap = 0
		} else {
			prevOverlap = cut - next
		}
		start = next
	}

	return s.mergeTrailing(ws)
}

// mergeTrailing folds an undersized final window into its predecessor.
// The policy is deterministic: merge only when the trailing window's new
// characters fall below the configured floor.
func (s *Splitter) mergeTrailing(ws []window) []window {
	if len(ws) < 2 {
		return ws
	}
	last := ws[len(ws)-1]
	lastRunes := []rune(last.text)
	if last.oversized || len(lastRunes)-last.overlap >= s.minSize {
		return ws
	}
	prev := &ws[len(ws)-2]
	prev.text += string(lastRunes[last.overlap:])
	return ws[:len(ws)-1]
}

// region is a half-open rune range that must not be split.
type region struct {
	start, end int
}

func regionContaining(regions []region, pos int) (region, bool) {
	for _, r := range regions {
		if r.start < pos && pos < r.end {
			return r, true
		}
	}
	return region{}, false
}

// atomicRegions locates fenced code blocks and table runs, which hold a
// single semantic unit and must be kept whole. Offsets are rune offsets,
// matching the unit the windows loop cuts in.
func atomicRegions(text string) []region {
	var regs []region
	off := 0
	inFence := false
	fenceStart := 0
	tableStart := -1

	for _, line := range strings.SplitAfter(text, "\n") {
		trimmed := strings.TrimSpace(line)
		isFenceDelim := strings.HasPrefix(trimmed, "```")
		isTableRow := strings.HasPrefix(trimmed, "|")

		switch {
		case inFence:
			if isFenceDelim {
				regs = append(regs, region{fenceStart, off + utf8.RuneCountInString(line)})
				inFence = false
			}
		case isFenceDelim:
			if tableStart >= 0 {
				regs = append(regs, region{tableStart, off})
				tableStart = -1
			}
			inFence = true
			fenceStart = off
		case isTableRow:
			if tableStart < 0 {
				tableStart = off
			}
		default:
			if tableStart >= 0 {
				regs = append(regs, region{tableStart, off})
				tableStart = -1
			}
		}
		off += utf8.RuneCountInString(line)
	}

	// Unterminated fence or trailing table runs to end of text.
	if inFence {
		regs = append(regs, region{fenceStart, off})
	}
	if tableStart >= 0 {
		regs = append(regs, region{tableStart, off})
	}
	return regs
}
