package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/docatlas/docatlas/internal/core/domain"
	"github.com/docatlas/docatlas/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu         sync.RWMutex
	documents  map[string]domain.Document
	catalogs   map[string]domain.Catalog
	chunks     map[string]map[string]domain.Chunk     // documentID -> chunkID
	embeddings map[string]map[string]domain.Embedding // documentID -> chunkID
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents:  make(map[string]domain.Document),
		catalogs:   make(map[string]domain.Catalog),
		chunks:     make(map[string]map[string]domain.Chunk),
		embeddings: make(map[string]map[string]domain.Embedding),
	}
}

// SaveDocument stores or updates a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListDocuments returns all documents sorted by ID.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Document, 0, len(s.documents))
	for id := range s.documents {
		result = append(result, s.documents[id])
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// DeleteDocument removes a document with its catalog, chunks and embeddings.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	delete(s.catalogs, id)
	delete(s.chunks, id)
	delete(s.embeddings, id)
	return nil
}

// SaveCatalog stores or replaces a document's catalog tree.
func (s *DocumentStore) SaveCatalog(_ context.Context, catalog *domain.Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogs[catalog.DocumentID] = *catalog
	return nil
}

// GetCatalog retrieves a document's catalog tree.
func (s *DocumentStore) GetCatalog(_ context.Context, documentID string) (*domain.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	catalog, ok := s.catalogs[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &catalog, nil
}

// SaveChunks upserts chunks by id.
func (s *DocumentStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		byID, ok := s.chunks[c.DocumentID]
		if !ok {
			byID = make(map[string]domain.Chunk)
			s.chunks[c.DocumentID] = byID
		}
		byID[c.ID] = c
	}
	return nil
}

// GetChunks retrieves a document's chunks ordered by node ordinal then
// position.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID, ok := s.chunks[documentID]
	if !ok {
		return nil, nil
	}
	result := make([]domain.Chunk, 0, len(byID))
	for _, c := range byID {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].NodeSeq != result[j].NodeSeq {
			return result[i].NodeSeq < result[j].NodeSeq
		}
		return result[i].Position < result[j].Position
	})
	return result, nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *DocumentStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, byID := range s.chunks {
		if chunk, ok := byID[id]; ok {
			return &chunk, nil
		}
	}
	return nil, domain.ErrNotFound
}

// DeleteNodeChunks removes one node's chunks and their embeddings, leaving
// the rest of the document untouched.
func (s *DocumentStore) DeleteNodeChunks(_ context.Context, documentID string, nodeSeq int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.chunks[documentID]
	if !ok {
		return nil
	}
	for id, c := range byID {
		if c.NodeSeq == nodeSeq {
			delete(byID, id)
			if embs, ok := s.embeddings[documentID]; ok {
				delete(embs, id)
			}
		}
	}
	return nil
}

// SaveEmbeddings upserts embeddings by chunk id.
func (s *DocumentStore) SaveEmbeddings(_ context.Context, embeddings []domain.Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range embeddings {
		byID, ok := s.embeddings[e.DocumentID]
		if !ok {
			byID = make(map[string]domain.Embedding)
			s.embeddings[e.DocumentID] = byID
		}
		byID[e.ChunkID] = e
	}
	return nil
}

// GetEmbeddings retrieves all current embeddings for a document.
func (s *DocumentStore) GetEmbeddings(_ context.Context, documentID string) ([]domain.Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID, ok := s.embeddings[documentID]
	if !ok {
		return nil, nil
	}
	result := make([]domain.Embedding, 0, len(byID))
	for _, e := range byID {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ChunkID < result[j].ChunkID })
	return result, nil
}
