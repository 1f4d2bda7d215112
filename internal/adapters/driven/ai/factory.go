// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/docatlas/docatlas/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/docatlas/docatlas/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/docatlas/docatlas/internal/adapters/driven/llm/ollama"
	openaillm "github.com/docatlas/docatlas/internal/adapters/driven/llm/openai"
	"github.com/docatlas/docatlas/internal/core/domain"
	"github.com/docatlas/docatlas/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// promptConfigurable is implemented by answer services that accept a custom
// grounding template.
type promptConfigurable interface {
	SetPromptTemplate(template string)
}

// CreateEmbeddingService creates the appropriate embedding service based on
// settings. Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateAnswerService creates the appropriate answer service based on
// settings. Returns nil if the provider is not configured. When prompts is
// non-nil, the user's answer template overrides the embedded default.
func CreateAnswerService(settings *domain.LLMSettings, prompts driven.PromptStore) (driven.AnswerService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var (
		svc driven.AnswerService
		err error
	)

	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = ollamallm.NewAnswerService(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderOpenAI:
		svc, err = openaillm.NewAnswerService(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}

	applyPromptTemplate(svc, prompts)
	return svc, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates
// connectivity. Returns nil without error if the provider is not configured.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'docatlas settings' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'docatlas settings' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateAnswerService creates an answer service and validates
// connectivity. Returns nil without error if the provider is not configured.
func CreateAndValidateAnswerService(settings *domain.LLMSettings, prompts driven.PromptStore) (driven.AnswerService, error) {
	svc, err := CreateAnswerService(settings, prompts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'docatlas settings' to fix",
			domain.ErrGenerationUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'docatlas settings' to fix",
			domain.ErrGenerationUnavailable, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a
// service and pinging it. Intended for use when settings change.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and
// pinging it. Intended for use when settings change.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	svc, err := CreateAnswerService(settings, nil)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: domain.EmbeddingDimensions()[settings.Model],
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: domain.EmbeddingDimensions()[settings.Model],
	})
}

// applyPromptTemplate loads the user's answer template and installs it on the
// service. Load failures fall back to the embedded default silently.
func applyPromptTemplate(svc driven.AnswerService, prompts driven.PromptStore) {
	if prompts == nil {
		return
	}
	pc, ok := svc.(promptConfigurable)
	if !ok {
		return
	}
	if tmpl, err := prompts.Load(driven.PromptAnswer); err == nil {
		pc.SetPromptTemplate(tmpl)
	}
}
