package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/docatlas/docatlas/internal/catalog"
	"github.com/docatlas/docatlas/internal/chunking"
	"github.com/docatlas/docatlas/internal/core/domain"
	"github.com/docatlas/docatlas/internal/core/ports/driven"
	"github.com/docatlas/docatlas/internal/core/ports/driving"
	"github.com/docatlas/docatlas/internal/logger"
)

// Ensure IndexerService implements the interface.
var _ driving.Indexer = (*IndexerService)(nil)

// embedBatchSize bounds how many chunks go to the embedding service in
// one request.
const embedBatchSize = 32

// embedRetries is the number of attempts per embedding batch before the
// batch is left unembedded.
const embedRetries = 3

// IndexerService runs the extract, split and embed pipeline for documents.
//
// Runs for the same document id are serialised; different documents
// proceed in parallel.
type IndexerService struct {
	docStore         driven.DocumentStore
	vectorIndex      driven.VectorIndex
	embeddingService driven.EmbeddingService

	extractor   *catalog.Extractor
	splitter    *chunking.Splitter
	limiter     *rate.Limiter
	backoffBase time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// IndexerOption configures the indexer.
type IndexerOption func(*IndexerService)

// WithSplitter overrides the default chunk splitter.
func WithSplitter(s *chunking.Splitter) IndexerOption {
	return func(ix *IndexerService) {
		ix.splitter = s
	}
}

// WithEmbedRateLimit caps embedding batches per second.
func WithEmbedRateLimit(perSecond float64) IndexerOption {
	return func(ix *IndexerService) {
		if perSecond > 0 {
			ix.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// NewIndexerService creates an indexer. The vectorIndex and
// embeddingService parameters are optional (can be nil); without them
// documents index up to the chunked state.
func NewIndexerService(
	docStore driven.DocumentStore,
	vectorIndex driven.VectorIndex,
	embeddingService driven.EmbeddingService,
	opts ...IndexerOption,
) *IndexerService {
	ix := &IndexerService{
		docStore:         docStore,
		vectorIndex:      vectorIndex,
		embeddingService: embeddingService,
		extractor:        catalog.NewExtractor(),
		splitter:         chunking.New(),
		limiter:          rate.NewLimiter(rate.Limit(4), 1),
		backoffBase:      500 * time.Millisecond,
		locks:            make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// lock returns the per-document mutex, creating it on first use.
func (ix *IndexerService) lock(documentID string) *sync.Mutex {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	l, ok := ix.locks[documentID]
	if !ok {
		l = &sync.Mutex{}
		ix.locks[documentID] = l
	}
	return l
}

// Index extracts the catalog, splits chunks and embeds them for the given
// markdown text, creating or replacing the document.
func (ix *IndexerService) Index(ctx context.Context, documentID, text string) (*driving.IndexStatus, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: empty document id", domain.ErrInvalidInput)
	}

	l := ix.lock(documentID)
	l.Lock()
	defer l.Unlock()

	hash := contentHash(text)

	existing, err := ix.docStore.GetDocument(ctx, documentID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.IndexError{DocumentID: documentID, Stage: domain.StageStore, Err: err}
	}
	if existing != nil && existing.ContentHash == hash && existing.Status != domain.StatusFailed {
		logger.Debug("Document %s unchanged, skipping", documentID)
		return &driving.IndexStatus{
			DocumentID: documentID,
			Status:     existing.Status,
			Chunks:     existing.TotalChunks,
			Embedded:   existing.EmbeddedChunks,
			Unchanged:  true,
		}, nil
	}

	return ix.runPipeline(ctx, documentID, text, hash, existing)
}

// runPipeline executes extract -> split -> embed for one document.
// Callers hold the per-document lock.
func (ix *IndexerService) runPipeline(
	ctx context.Context,
	documentID, text, hash string,
	existing *domain.Document,
) (*driving.IndexStatus, error) {
	logger.Section(fmt.Sprintf("Index %s", documentID))

	now := time.Now()
	doc := &domain.Document{
		ID:          documentID,
		Filename:    documentID,
		Content:     text,
		ContentHash: hash,
		Status:      domain.StatusParsed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if existing != nil {
		doc.Filename = existing.Filename
		doc.CreatedAt = existing.CreatedAt
	}

	// 1. Extract the catalog.
	cat, err := ix.extractor.Extract(documentID, text)
	if err != nil {
		doc.Status = domain.StatusFailed
		_ = ix.docStore.SaveDocument(ctx, doc)
		return nil, &domain.IndexError{DocumentID: documentID, Stage: domain.StageExtract, Err: err}
	}
	logger.Debug("Extracted %d catalog nodes", len(cat.Nodes))

	// 2. Split into chunks.
	chunks := ix.splitter.Split(cat, text)
	doc.TotalChunks = len(chunks)
	logger.Debug("Split into %d chunks", len(chunks))

	// Snapshot old chunks and embeddings before replacing, so unchanged
	// chunk content can keep its vector.
	oldChunks, oldEmbeddings := ix.snapshotForReuse(ctx, documentID, existing)

	// 3. Persist document, catalog and chunks. Stale chunks from the
	// previous version are cleared first so the replace is exact.
	doc.Status = domain.StatusChunked
	if err := ix.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, &domain.IndexError{DocumentID: documentID, Stage: domain.StageStore, Err: err}
	}
	staleSeqs := make(map[int]bool)
	for _, c := range oldChunks {
		staleSeqs[c.NodeSeq] = true
	}
	for seq := range staleSeqs {
		if err := ix.docStore.DeleteNodeChunks(ctx, documentID, seq); err != nil {
			return nil, &domain.IndexError{DocumentID: documentID, Stage: domain.StageStore, Err: err}
		}
	}
	if existing != nil && ix.vectorIndex != nil {
		if err := ix.vectorIndex.Remove(ctx, documentID); err != nil {
			return nil, &domain.IndexError{DocumentID: documentID, Stage: domain.StageStore, Err: err}
		}
	}
	if err := ix.docStore.SaveCatalog(ctx, cat); err != nil {
		return nil, &domain.IndexError{DocumentID: documentID, Stage: domain.StageStore, Err: err}
	}
	if err := ix.docStore.SaveChunks(ctx, chunks); err != nil {
		return nil, &domain.IndexError{DocumentID: documentID, Stage: domain.StageStore, Err: err}
	}

	// 4. Embed and install vectors.
	embedded, err := ix.embedChunks(ctx, documentID, chunks, oldChunks, oldEmbeddings)
	if err != nil {
		return nil, err
	}

	doc.EmbeddedChunks = embedded
	doc.Status = statusFor(len(chunks), embedded, ix.embeddingService != nil)
	if err := ix.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, &domain.IndexError{DocumentID: documentID, Stage: domain.StageStore, Err: err}
	}

	logger.Info("Indexed %s: %d chunks, %d embedded (%s)", documentID, len(chunks), embedded, doc.Status)
	return &driving.IndexStatus{
		DocumentID: documentID,
		Status:     doc.Status,
		Chunks:     len(chunks),
		Embedded:   embedded,
	}, nil
}

// snapshotForReuse loads the previous chunks and embeddings of a document,
// keyed by chunk id. Best effort: a read failure just disables reuse.
func (ix *IndexerService) snapshotForReuse(
	ctx context.Context,
	documentID string,
	existing *domain.Document,
) (map[string]domain.Chunk, map[string]domain.Embedding) {
	if existing == nil {
		return nil, nil
	}
	chunks, err := ix.docStore.GetChunks(ctx, documentID)
	if err != nil {
		return nil, nil
	}
	embeddings, err := ix.docStore.GetEmbeddings(ctx, documentID)
	if err != nil {
		return nil, nil
	}
	chunkByID := make(map[string]domain.Chunk, len(chunks))
	for _, c := range chunks {
		chunkByID[c.ID] = c
	}
	embByID := make(map[string]domain.Embedding, len(embeddings))
	for _, e := range embeddings {
		embByID[e.ChunkID] = e
	}
	return chunkByID, embByID
}

// embedChunks generates or reuses embeddings for the given chunks and
// installs them in the vector index as one atomic batch. Returns the
// number of chunks with a current embedding.
func (ix *IndexerService) embedChunks(
	ctx context.Context,
	documentID string,
	chunks []domain.Chunk,
	oldChunks map[string]domain.Chunk,
	oldEmbeddings map[string]domain.Embedding,
) (int, error) {
	if ix.embeddingService == nil || ix.vectorIndex == nil || len(chunks) == 0 {
		return 0, nil
	}

	model := ix.embeddingService.ModelName()
	embeddings := make([]domain.Embedding, 0, len(chunks))
	var pending []domain.Chunk

	// Reuse vectors for chunks whose content and model are unchanged.
	for _, c := range chunks {
		old, okChunk := oldChunks[c.ID]
		emb, okEmb := oldEmbeddings[c.ID]
		if okChunk && okEmb && old.Content == c.Content && emb.Model == model {
			embeddings = append(embeddings, emb)
			continue
		}
		pending = append(pending, c)
	}
	if n := len(chunks) - len(pending); n > 0 {
		logger.Debug("Reusing %d embeddings for unchanged chunks", n)
	}

	for start := 0; start < len(pending); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		vectors, err := ix.embedBatch(ctx, batch)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return 0, &domain.IndexError{DocumentID: documentID, Stage: domain.StageEmbed, Err: err}
			}
			logger.Warn("Embedding batch failed for %s: %v", documentID, err)
			continue
		}
		for i, v := range vectors {
			embeddings = append(embeddings, domain.Embedding{
				ChunkID:    batch[i].ID,
				DocumentID: documentID,
				Vector:     v,
				Model:      model,
			})
		}
	}

	if len(embeddings) == 0 {
		return 0, nil
	}

	if err := ix.docStore.SaveEmbeddings(ctx, embeddings); err != nil {
		return 0, &domain.IndexError{DocumentID: documentID, Stage: domain.StageStore, Err: err}
	}

	chunkBySeq := make(map[string]domain.Chunk, len(chunks))
	for _, c := range chunks {
		chunkBySeq[c.ID] = c
	}
	entries := make([]driven.VectorEntry, 0, len(embeddings))
	for _, e := range embeddings {
		c := chunkBySeq[e.ChunkID]
		entries = append(entries, driven.VectorEntry{
			ChunkID:    e.ChunkID,
			DocumentID: documentID,
			NodeSeq:    c.NodeSeq,
			Position:   c.Position,
			Vector:     e.Vector,
		})
	}
	if err := ix.vectorIndex.UpsertBatch(ctx, documentID, entries); err != nil {
		return 0, &domain.IndexError{DocumentID: documentID, Stage: domain.StageStore, Err: err}
	}

	return len(embeddings), nil
}

// embedBatch calls the embedding service for one batch, retrying transient
// unavailability with exponential backoff.
func (ix *IndexerService) embedBatch(ctx context.Context, batch []domain.Chunk) ([][]float32, error) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Content
	}

	var lastErr error
	for attempt := 0; attempt < embedRetries; attempt++ {
		if err := ix.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		vectors, err := ix.embeddingService.EmbedBatch(ctx, texts)
		if err == nil {
			if len(vectors) != len(texts) {
				return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(texts))
			}
			return vectors, nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			return nil, err
		}

		backoff := time.Duration(1<<attempt) * ix.backoffBase
		logger.Debug("Embedding attempt %d failed, retrying in %s: %v", attempt+1, backoff, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, lastErr
}

// UpdateNode replaces the text of one catalog node. A body-only edit
// regenerates just that node's chunks and embeddings; an edit that changes
// the heading structure re-indexes the whole document.
func (ix *IndexerService) UpdateNode(
	ctx context.Context,
	documentID string,
	path []string,
	text string,
) (*driving.IndexStatus, error) {
	l := ix.lock(documentID)
	l.Lock()
	defer l.Unlock()

	doc, err := ix.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	cat, err := ix.docStore.GetCatalog(ctx, documentID)
	if err != nil {
		return nil, err
	}
	node := cat.NodeByPath(path)
	if node == nil {
		return nil, fmt.Errorf("%w: no catalog node at path %q", domain.ErrNotFound, strings.Join(path, domain.PathSeparator))
	}

	newContent := spliceNodeBody(doc.Content, node, text)
	hash := contentHash(newContent)
	if hash == doc.ContentHash {
		return &driving.IndexStatus{
			DocumentID: documentID,
			Status:     doc.Status,
			Chunks:     doc.TotalChunks,
			Embedded:   doc.EmbeddedChunks,
			Unchanged:  true,
		}, nil
	}

	newCat, err := ix.extractor.Extract(documentID, newContent)
	if err != nil {
		return nil, &domain.IndexError{DocumentID: documentID, Stage: domain.StageExtract, Err: err}
	}

	if !catalog.StructureEqual(cat, newCat) {
		logger.Debug("Node edit changed heading structure, re-indexing %s", documentID)
		return ix.runPipeline(ctx, documentID, newContent, hash, doc)
	}

	return ix.updateNodeScoped(ctx, doc, newCat, node.Seq, newContent, hash)
}

// updateNodeScoped re-splits and re-embeds a single node after a body-only
// edit, leaving the rest of the document's chunks untouched.
func (ix *IndexerService) updateNodeScoped(
	ctx context.Context,
	doc *domain.Document,
	cat *domain.Catalog,
	nodeSeq int,
	newContent, hash string,
) (*driving.IndexStatus, error) {
	documentID := doc.ID
	logger.Section(fmt.Sprintf("Update %s node %d", documentID, nodeSeq))

	oldChunks, err := ix.docStore.GetChunks(ctx, documentID)
	if err != nil {
		return nil, &domain.IndexError{DocumentID: documentID, Stage: domain.StageStore, Err: err}
	}
	var staleIDs []string
	oldNodeChunks := 0
	for _, c := range oldChunks {
		if c.NodeSeq == nodeSeq {
			staleIDs = append(staleIDs, c.ID)
			oldNodeChunks++
		}
	}
	staleEmbedded := 0
	if oldEmbeddings, embErr := ix.docStore.GetEmbeddings(ctx, documentID); embErr == nil {
		embedded := make(map[string]bool, len(oldEmbeddings))
		for _, e := range oldEmbeddings {
			embedded[e.ChunkID] = true
		}
		for _, id := range staleIDs {
			if embedded[id] {
				staleEmbedded++
			}
		}
	}

	var node *domain.CatalogNode
	for i := range cat.Nodes {
		if cat.Nodes[i].Seq == nodeSeq {
			node = &cat.Nodes[i]
			break
		}
	}
	if node == nil {
		return nil, fmt.Errorf("%w: node %d after re-extract", domain.ErrNotFound, nodeSeq)
	}

	lines := strings.Split(newContent, "\n")
	own := cat.OwnSpan(lines, node.ID)
	chunks := ix.splitter.SplitNode(documentID, node, own)

	// Replace the node's chunks and evict its stale vectors before the
	// new ones go in. Deterministic ids mean surviving positions reuse
	// the same id.
	if err := ix.docStore.DeleteNodeChunks(ctx, documentID, nodeSeq); err != nil {
		return nil, &domain.IndexError{DocumentID: documentID, Stage: domain.StageStore, Err: err}
	}
	for _, id := range staleIDs {
		if ix.vectorIndex != nil {
			if err := ix.vectorIndex.Delete(ctx, id); err != nil {
				return nil, &domain.IndexError{DocumentID: documentID, Stage: domain.StageStore, Err: err}
			}
		}
	}
	if err := ix.docStore.SaveChunks(ctx, chunks); err != nil {
		return nil, &domain.IndexError{DocumentID: documentID, Stage: domain.StageStore, Err: err}
	}
	if err := ix.docStore.SaveCatalog(ctx, cat); err != nil {
		return nil, &domain.IndexError{DocumentID: documentID, Stage: domain.StageStore, Err: err}
	}

	doc.Content = newContent
	doc.ContentHash = hash
	doc.TotalChunks = doc.TotalChunks - oldNodeChunks + len(chunks)
	doc.UpdatedAt = time.Now()

	embedded := 0
	if ix.embeddingService != nil && ix.vectorIndex != nil && len(chunks) > 0 {
		embedded, err = ix.embedNode(ctx, documentID, chunks)
		if err != nil {
			return nil, err
		}
	}
	doc.EmbeddedChunks = doc.EmbeddedChunks - staleEmbedded + embedded
	if doc.EmbeddedChunks < 0 {
		doc.EmbeddedChunks = 0
	}
	doc.Status = statusFor(doc.TotalChunks, doc.EmbeddedChunks, ix.embeddingService != nil)

	if err := ix.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, &domain.IndexError{DocumentID: documentID, Stage: domain.StageStore, Err: err}
	}

	logger.Info("Updated %s node %d: %d chunks, %d embedded", documentID, nodeSeq, len(chunks), embedded)
	return &driving.IndexStatus{
		DocumentID: documentID,
		Status:     doc.Status,
		Chunks:     doc.TotalChunks,
		Embedded:   doc.EmbeddedChunks,
	}, nil
}

// embedNode embeds one node's chunks and upserts them individually, so
// the rest of the document's vectors stay in place.
func (ix *IndexerService) embedNode(ctx context.Context, documentID string, chunks []domain.Chunk) (int, error) {
	vectors, err := ix.embedBatch(ctx, chunks)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, &domain.IndexError{DocumentID: documentID, Stage: domain.StageEmbed, Err: err}
		}
		logger.Warn("Embedding failed for %s: %v", documentID, err)
		return 0, nil
	}

	model := ix.embeddingService.ModelName()
	embeddings := make([]domain.Embedding, len(chunks))
	for i := range chunks {
		embeddings[i] = domain.Embedding{
			ChunkID:    chunks[i].ID,
			DocumentID: documentID,
			Vector:     vectors[i],
			Model:      model,
		}
	}
	if err := ix.docStore.SaveEmbeddings(ctx, embeddings); err != nil {
		return 0, &domain.IndexError{DocumentID: documentID, Stage: domain.StageStore, Err: err}
	}
	for i := range chunks {
		entry := driven.VectorEntry{
			ChunkID:    chunks[i].ID,
			DocumentID: documentID,
			NodeSeq:    chunks[i].NodeSeq,
			Position:   chunks[i].Position,
			Vector:     vectors[i],
		}
		if err := ix.vectorIndex.Upsert(ctx, entry); err != nil {
			return 0, &domain.IndexError{DocumentID: documentID, Stage: domain.StageStore, Err: err}
		}
	}
	return len(chunks), nil
}

// Delete removes a document with its catalog, chunks, embeddings and
// vector entries.
func (ix *IndexerService) Delete(ctx context.Context, documentID string) error {
	l := ix.lock(documentID)
	l.Lock()
	defer l.Unlock()

	if err := ix.docStore.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	if ix.vectorIndex != nil {
		if err := ix.vectorIndex.Remove(ctx, documentID); err != nil {
			return fmt.Errorf("remove vectors: %w", err)
		}
	}
	logger.Info("Deleted document %s", documentID)
	return nil
}

// statusFor derives the document status from chunk and embedding counts.
func statusFor(total, embedded int, embedderConfigured bool) domain.ProcessingStatus {
	switch {
	case total == 0:
		return domain.StatusParsed
	case !embedderConfigured || embedded == 0:
		return domain.StatusChunked
	case embedded < total:
		return domain.StatusPartial
	default:
		return domain.StatusEmbedded
	}
}

// contentHash is the SHA-256 of the document text, hex encoded.
func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// spliceNodeBody replaces a node's own body lines with new text, keeping
// the heading line of non-root nodes in place.
func spliceNodeBody(content string, node *domain.CatalogNode, text string) string {
	lines := strings.Split(content, "\n")
	start := node.StartLine
	if !node.IsRoot() {
		start++ // keep the heading line
	}
	end := node.OwnEndLine
	if start > len(lines) {
		start = len(lines)
	}
	if end > len(lines) {
		end = len(lines)
	}
	if end < start {
		end = start
	}

	var out []string
	out = append(out, lines[:start]...)
	if text != "" {
		out = append(out, strings.Split(text, "\n")...)
	}
	out = append(out, lines[end:]...)
	return strings.Join(out, "\n")
}
