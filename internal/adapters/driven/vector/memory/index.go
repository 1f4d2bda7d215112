// Package memory provides an in-memory brute-force cosine similarity
// vector index.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/docatlas/docatlas/internal/core/domain"
	"github.com/docatlas/docatlas/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// normEpsilon guards cosine similarity against zero-length vectors.
const normEpsilon = 1e-10

type entry struct {
	chunkID  string
	nodeSeq  int
	position int
	vector   []float32
	norm     float64
}

// Index keeps per-document vector buckets behind a single RWMutex.
// A write for document D holds the write lock for its whole batch, so a
// concurrent search observes either the pre-write or post-write state of
// D, never a partial set.
type Index struct {
	mu      sync.RWMutex
	docs    map[string][]entry
	docSeq  map[string]int
	nextSeq int
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		docs:   make(map[string][]entry),
		docSeq: make(map[string]int),
	}
}

// Upsert inserts or replaces the vector for one chunk.
func (x *Index) Upsert(_ context.Context, e driven.VectorEntry) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.upsertLocked(e)
	return nil
}

// UpsertBatch installs a document's complete vector set atomically,
// replacing whatever the document held before.
func (x *Index) UpsertBatch(_ context.Context, documentID string, entries []driven.VectorEntry) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.docs, documentID)
	for _, e := range entries {
		e.DocumentID = documentID
		x.upsertLocked(e)
	}
	return nil
}

func (x *Index) upsertLocked(e driven.VectorEntry) {
	if _, ok := x.docSeq[e.DocumentID]; !ok {
		x.docSeq[e.DocumentID] = x.nextSeq
		x.nextSeq++
	}
	ent := entry{
		chunkID:  e.ChunkID,
		nodeSeq:  e.NodeSeq,
		position: e.Position,
		vector:   e.Vector,
		norm:     l2norm(e.Vector),
	}
	bucket := x.docs[e.DocumentID]
	for i := range bucket {
		if bucket[i].chunkID == e.ChunkID {
			bucket[i] = ent
			return
		}
	}
	x.docs[e.DocumentID] = append(bucket, ent)
}

// Delete removes the vector for one chunk, if present.
func (x *Index) Delete(_ context.Context, chunkID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for docID, bucket := range x.docs {
		for i := range bucket {
			if bucket[i].chunkID == chunkID {
				x.docs[docID] = append(bucket[:i], bucket[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

// Remove bulk-evicts all vectors of a document.
func (x *Index) Remove(_ context.Context, documentID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.docs, documentID)
	return nil
}

// Search returns hits sorted by descending cosine similarity, ties broken
// by document order then chunk order. Hits below opts.Threshold are
// excluded; opts.TopK <= 0 or opts.Threshold >= 1.0 yield an empty set.
func (x *Index) Search(_ context.Context, query []float32, opts domain.QueryOptions) ([]driven.VectorHit, error) {
	if opts.TopK <= 0 || opts.Threshold >= 1.0 {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	qnorm := l2norm(query)

	type scored struct {
		hit      driven.VectorHit
		docSeq   int
		nodeSeq  int
		position int
	}
	var results []scored

	for docID, bucket := range x.docs {
		if opts.DocumentID != "" && docID != opts.DocumentID {
			continue
		}
		seq := x.docSeq[docID]
		for i := range bucket {
			e := &bucket[i]
			score := dot(query, e.vector) / ((qnorm + normEpsilon) * (e.norm + normEpsilon))
			if score < opts.Threshold {
				continue
			}
			results = append(results, scored{
				hit: driven.VectorHit{
					ChunkID:    e.chunkID,
					DocumentID: docID,
					Similarity: score,
				},
				docSeq:   seq,
				nodeSeq:  e.nodeSeq,
				position: e.position,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].hit.Similarity != results[j].hit.Similarity {
			return results[i].hit.Similarity > results[j].hit.Similarity
		}
		if results[i].docSeq != results[j].docSeq {
			return results[i].docSeq < results[j].docSeq
		}
		if results[i].nodeSeq != results[j].nodeSeq {
			return results[i].nodeSeq < results[j].nodeSeq
		}
		return results[i].position < results[j].position
	})

	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	hits := make([]driven.VectorHit, len(results))
	for i, r := range results {
		hits[i] = r.hit
	}
	return hits, nil
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func l2norm(v []float32) float64 {
	sum := 0.0
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}
