package cli

import (
	"context"
	"time"

	"github.com/docatlas/docatlas/internal/core/domain"
	"github.com/docatlas/docatlas/internal/core/ports/driving"
)

// mockIndexer records calls and returns canned statuses.
type mockIndexer struct {
	indexed   []string
	deleted   []string
	lastText  string
	lastPath  []string
	status    *driving.IndexStatus
	indexErr  error
	deleteErr error
}

func (m *mockIndexer) Index(_ context.Context, documentID, text string) (*driving.IndexStatus, error) {
	if m.indexErr != nil {
		return nil, m.indexErr
	}
	m.indexed = append(m.indexed, documentID)
	m.lastText = text
	if m.status != nil {
		return m.status, nil
	}
	return &driving.IndexStatus{
		DocumentID: documentID,
		Status:     domain.StatusEmbedded,
		Chunks:     3,
		Embedded:   3,
	}, nil
}

func (m *mockIndexer) UpdateNode(_ context.Context, documentID string, path []string, text string) (*driving.IndexStatus, error) {
	if m.indexErr != nil {
		return nil, m.indexErr
	}
	m.lastPath = path
	m.lastText = text
	return &driving.IndexStatus{
		DocumentID: documentID,
		Status:     domain.StatusEmbedded,
		Chunks:     3,
		Embedded:   3,
	}, nil
}

func (m *mockIndexer) Delete(_ context.Context, documentID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, documentID)
	return nil
}

// mockQueryService serves fixed answers and documents.
type mockQueryService struct {
	answer   *domain.Answer
	results  []domain.QueryResult
	catalog  *domain.Catalog
	chunks   []domain.Chunk
	docs     []domain.Document
	queryErr error
}

func (m *mockQueryService) QueryCatalogFirst(_ context.Context, query, _ string) (*domain.Answer, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if m.answer != nil {
		return m.answer, nil
	}
	return &domain.Answer{Query: query, NoContext: true}, nil
}

func (m *mockQueryService) QueryVector(_ context.Context, _ string, _ domain.QueryOptions) ([]domain.QueryResult, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.results, nil
}

func (m *mockQueryService) GetCatalog(_ context.Context, documentID string) (*domain.Catalog, error) {
	if m.catalog == nil {
		return nil, domain.ErrNotFound
	}
	return m.catalog, nil
}

func (m *mockQueryService) GetChunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return m.chunks, nil
}

func (m *mockQueryService) GetDocument(_ context.Context, documentID string) (*domain.Document, error) {
	for i := range m.docs {
		if m.docs[i].ID == documentID {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockQueryService) ListDocuments(_ context.Context) ([]domain.Document, error) {
	return m.docs, nil
}

// mockSettingsService tracks what was configured.
type mockSettingsService struct {
	settings     domain.AppSettings
	lastProvider domain.AIProvider
	saveErr      error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return m.saveErr
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return domain.ErrInvalidInput
	}
	m.lastProvider = provider
	return m.saveErr
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return domain.ErrInvalidInput
	}
	m.lastProvider = provider
	return m.saveErr
}

func (m *mockSettingsService) SetChunking(maxChunkSize, overlap int) error {
	m.settings.Chunking = domain.ChunkingSettings{MaxChunkSize: maxChunkSize, Overlap: overlap}
	return m.saveErr
}

func (m *mockSettingsService) SetQuery(topK int, threshold, overlapRatio float64, maxContextSize int) error {
	m.settings.Query = domain.QuerySettings{
		TopK: topK, Threshold: threshold,
		OverlapRatio: overlapRatio, MaxContextSize: maxContextSize,
	}
	return m.saveErr
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return nil }
func (m *mockSettingsService) ValidateLLMConfig() error       { return nil }

// setupTestServices installs mock services and returns the mocks with a
// cleanup restoring the previous ones.
func setupTestServices() (*mockIndexer, *mockQueryService, *mockSettingsService, func()) {
	oldIndexer := indexerService
	oldQuery := queryService
	oldSettings := settingsService

	indexer := &mockIndexer{}
	query := &mockQueryService{
		docs: []domain.Document{
			{
				ID:             "doc-1",
				Filename:       "guide.md",
				Status:         domain.StatusEmbedded,
				TotalChunks:    3,
				EmbeddedChunks: 3,
				CreatedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
				UpdatedAt:      time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
			},
		},
	}
	settings := &mockSettingsService{settings: domain.DefaultAppSettings()}

	SetServices(indexer, query, settings)

	return indexer, query, settings, func() {
		indexerService = oldIndexer
		queryService = oldQuery
		settingsService = oldSettings
	}
}
