// Command docatlas indexes markdown documents into a heading catalog with
// embedded chunks and answers questions over them.
package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/docatlas/docatlas/internal/adapters/driven/ai"
	configfile "github.com/docatlas/docatlas/internal/adapters/driven/config/file"
	"github.com/docatlas/docatlas/internal/adapters/driven/storage/sqlite"
	vectormem "github.com/docatlas/docatlas/internal/adapters/driven/vector/memory"
	"github.com/docatlas/docatlas/internal/adapters/driving/cli"
	"github.com/docatlas/docatlas/internal/catalog"
	"github.com/docatlas/docatlas/internal/chunking"
	"github.com/docatlas/docatlas/internal/core/domain"
	"github.com/docatlas/docatlas/internal/core/ports/driven"
	"github.com/docatlas/docatlas/internal/core/services"
	"github.com/docatlas/docatlas/internal/logger"
)

// version is overridden at build time via ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configStore, err := configfile.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}

	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	applyEnvOverrides(settings)

	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()
	docStore := store.DocumentStore()

	vectorIndex := vectormem.NewIndex()
	defer vectorIndex.Close()

	embeddingService, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		logger.Warn("embedding provider unavailable, indexing without vectors: %v", err)
	}
	if embeddingService != nil {
		defer embeddingService.Close()
		if err := rebuildVectorIndex(context.Background(), docStore, vectorIndex); err != nil {
			return fmt.Errorf("failed to rebuild vector index: %w", err)
		}
	}

	promptStore, err := configfile.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("failed to open prompt store: %w", err)
	}

	answerService, err := ai.CreateAnswerService(&settings.LLM, promptStore)
	if err != nil {
		logger.Warn("llm provider unavailable, queries return ranked context only: %v", err)
	}
	if answerService != nil {
		defer answerService.Close()
	}

	indexer := services.NewIndexerService(docStore, vectorIndex, embeddingService,
		services.WithSplitter(chunking.New(
			chunking.WithMaxChunkSize(settings.Chunking.MaxChunkSize),
			chunking.WithOverlap(settings.Chunking.Overlap),
		)),
	)

	queryEngine := services.NewQueryEngine(docStore, vectorIndex, embeddingService, answerService,
		services.WithTopK(settings.Query.TopK),
		services.WithThreshold(settings.Query.Threshold),
		services.WithMaxContextSize(settings.Query.MaxContextSize),
		services.WithMatcher(catalog.NewMatcher(
			catalog.WithOverlapRatio(settings.Query.OverlapRatio),
		)),
	)

	cli.SetServices(indexer, queryEngine, settingsService)
	cli.SetVersion(version)
	return cli.Execute()
}

// applyEnvOverrides fills in API keys from the environment when the config
// file does not carry them. godotenv has already folded .env into the
// environment by the time this runs.
func applyEnvOverrides(settings *domain.AppSettings) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if settings.Embedding.Provider == domain.AIProviderOpenAI && settings.Embedding.APIKey == "" {
			settings.Embedding.APIKey = key
		}
		if settings.LLM.Provider == domain.AIProviderOpenAI && settings.LLM.APIKey == "" {
			settings.LLM.APIKey = key
		}
	}
}

// rebuildVectorIndex reloads stored embeddings into the in-memory index. The
// index is process-local; embeddings persist in SQLite between runs.
func rebuildVectorIndex(ctx context.Context, docStore driven.DocumentStore, vectorIndex driven.VectorIndex) error {
	docs, err := docStore.ListDocuments(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i := range docs {
		doc := docs[i]
		if !doc.Status.Queryable() {
			continue
		}
		g.Go(func() error {
			embeddings, err := docStore.GetEmbeddings(gctx, doc.ID)
			if err != nil {
				return err
			}
			if len(embeddings) == 0 {
				return nil
			}

			chunks, err := docStore.GetChunks(gctx, doc.ID)
			if err != nil {
				return err
			}
			byID := make(map[string]*domain.Chunk, len(chunks))
			for j := range chunks {
				byID[chunks[j].ID] = &chunks[j]
			}

			entries := make([]driven.VectorEntry, 0, len(embeddings))
			for _, emb := range embeddings {
				c, ok := byID[emb.ChunkID]
				if !ok {
					// Orphaned embedding, skip rather than fail startup
					continue
				}
				entries = append(entries, driven.VectorEntry{
					ChunkID:    emb.ChunkID,
					DocumentID: doc.ID,
					NodeSeq:    c.NodeSeq,
					Position:   c.Position,
					Vector:     emb.Vector,
				})
			}
			return vectorIndex.UpsertBatch(gctx, doc.ID, entries)
		})
	}

	return g.Wait()
}
