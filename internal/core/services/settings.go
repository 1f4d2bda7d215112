package services

import (
	"fmt"

	"github.com/docatlas/docatlas/internal/core/domain"
	"github.com/docatlas/docatlas/internal/core/ports/driven"
	"github.com/docatlas/docatlas/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkMaxSize    = "chunking.max_chunk_size"
	keyChunkOverlap    = "chunking.overlap"
	keyQueryTopK       = "query.top_k"
	keyQueryThreshold  = "query.threshold"
	keyQueryOverlap    = "query.overlap_ratio"
	keyQueryMaxContext = "query.max_context_size"
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Chunking: domain.ChunkingSettings{
			MaxChunkSize: s.getInt(keyChunkMaxSize, defaults.Chunking.MaxChunkSize),
			Overlap:      s.getInt(keyChunkOverlap, defaults.Chunking.Overlap),
		},
		Query: domain.QuerySettings{
			TopK:           s.getInt(keyQueryTopK, defaults.Query.TopK),
			Threshold:      s.getFloat(keyQueryThreshold, defaults.Query.Threshold),
			OverlapRatio:   s.getFloat(keyQueryOverlap, defaults.Query.OverlapRatio),
			MaxContextSize: s.getInt(keyQueryMaxContext, defaults.Query.MaxContextSize),
		},
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.configStore.GetString(keyEmbedModel),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL),
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.configStore.GetString(keyLLMModel),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := s.configStore.Set(keyChunkMaxSize, settings.Chunking.MaxChunkSize); err != nil {
		return fmt.Errorf("save chunking max size: %w", err)
	}
	if err := s.configStore.Set(keyChunkOverlap, settings.Chunking.Overlap); err != nil {
		return fmt.Errorf("save chunking overlap: %w", err)
	}

	if err := s.configStore.Set(keyQueryTopK, settings.Query.TopK); err != nil {
		return fmt.Errorf("save query top_k: %w", err)
	}
	if err := s.configStore.Set(keyQueryThreshold, settings.Query.Threshold); err != nil {
		return fmt.Errorf("save query threshold: %w", err)
	}
	if err := s.configStore.Set(keyQueryOverlap, settings.Query.OverlapRatio); err != nil {
		return fmt.Errorf("save query overlap_ratio: %w", err)
	}
	if err := s.configStore.Set(keyQueryMaxContext, settings.Query.MaxContextSize); err != nil {
		return fmt.Errorf("save query max_context_size: %w", err)
	}

	if err := s.configStore.Set(keyEmbedProvider, settings.Embedding.Provider.String()); err != nil {
		return fmt.Errorf("save embedding provider: %w", err)
	}
	if err := s.configStore.Set(keyEmbedModel, settings.Embedding.Model); err != nil {
		return fmt.Errorf("save embedding model: %w", err)
	}
	if err := s.configStore.Set(keyEmbedBaseURL, settings.Embedding.BaseURL); err != nil {
		return fmt.Errorf("save embedding base_url: %w", err)
	}
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}

	if err := s.configStore.Set(keyLLMProvider, settings.LLM.Provider.String()); err != nil {
		return fmt.Errorf("save llm provider: %w", err)
	}
	if err := s.configStore.Set(keyLLMModel, settings.LLM.Model); err != nil {
		return fmt.Errorf("save llm model: %w", err)
	}
	if err := s.configStore.Set(keyLLMBaseURL, settings.LLM.BaseURL); err != nil {
		return fmt.Errorf("save llm base_url: %w", err)
	}
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}
	if apiKey != "" {
		settings.Embedding.APIKey = apiKey
	}
	if provider.IsLocal() && settings.Embedding.BaseURL == "" {
		settings.Embedding.BaseURL = "http://localhost:11434"
	}
	if !provider.IsLocal() {
		// Cloud providers use their well-known endpoint
		settings.Embedding.BaseURL = ""
	}

	return s.Save(settings)
}

// SetLLMProvider configures the answer generation provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid llm provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}
	if apiKey != "" {
		settings.LLM.APIKey = apiKey
	}
	if provider.IsLocal() && settings.LLM.BaseURL == "" {
		settings.LLM.BaseURL = "http://localhost:11434"
	}
	if !provider.IsLocal() {
		settings.LLM.BaseURL = ""
	}

	return s.Save(settings)
}

// SetChunking updates the splitting window and overlap.
func (s *SettingsService) SetChunking(maxChunkSize, overlap int) error {
	if maxChunkSize <= 0 {
		return fmt.Errorf("max chunk size must be positive, got %d", maxChunkSize)
	}
	if overlap < 0 || overlap >= maxChunkSize {
		return fmt.Errorf("overlap must be in [0, %d), got %d", maxChunkSize, overlap)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Chunking.MaxChunkSize = maxChunkSize
	settings.Chunking.Overlap = overlap
	return s.Save(settings)
}

// SetQuery updates retrieval tuning.
func (s *SettingsService) SetQuery(topK int, threshold, overlapRatio float64, maxContextSize int) error {
	if topK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", topK)
	}
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("threshold must be in [0, 1], got %g", threshold)
	}
	if overlapRatio < 0 || overlapRatio > 1 {
		return fmt.Errorf("overlap ratio must be in [0, 1], got %g", overlapRatio)
	}
	if maxContextSize <= 0 {
		return fmt.Errorf("max context size must be positive, got %d", maxContextSize)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Query.TopK = topK
	settings.Query.Threshold = threshold
	settings.Query.OverlapRatio = overlapRatio
	settings.Query.MaxContextSize = maxContextSize
	return s.Save(settings)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by
// pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the
// provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// getInt reads an int key with a fallback default.
func (s *SettingsService) getInt(key string, def int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return def
	}
	return s.configStore.GetInt(key)
}

// getFloat reads a float key with a fallback default.
func (s *SettingsService) getFloat(key string, def float64) float64 {
	if _, ok := s.configStore.Get(key); !ok {
		return def
	}
	return s.configStore.GetFloat(key)
}

// getProvider reads a provider key, falling back when unset or invalid.
func (s *SettingsService) getProvider(key string, def domain.AIProvider) domain.AIProvider {
	raw := s.configStore.GetString(key)
	if raw == "" {
		return def
	}
	provider := domain.AIProvider(raw)
	if !provider.IsValid() {
		return def
	}
	return provider
}
