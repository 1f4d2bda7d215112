package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docatlas/docatlas/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure chunking, retrieval tuning, and AI providers.

Settings persist in ~/.docatlas/config.toml.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding [provider]",
	Short: "Configure the embedding provider",
	Long: `Configure the embedding provider used to vectorise chunks.

Providers:
  ollama - local Ollama instance (no API key)
  openai - OpenAI cloud API (requires --api-key)`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm [provider]",
	Short: "Configure the answer generation provider",
	Long: `Configure the model that turns retrieved context into answers.

Providers:
  ollama - local Ollama instance (no API key)
  openai - OpenAI cloud API (requires --api-key)`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsLLM,
}

var settingsChunkingCmd = &cobra.Command{
	Use:   "chunking",
	Short: "Tune chunk size and overlap",
	RunE:  runSettingsChunking,
}

var settingsQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Tune retrieval behaviour",
	RunE:  runSettingsQuery,
}

var (
	settingsModel    string
	settingsAPIKey   string
	settingsValidate bool

	settingsMaxChunk int
	settingsOverlap  int

	settingsTopK         int
	settingsThreshold    float64
	settingsOverlapRatio float64
	settingsMaxContext   int
)

func init() {
	for _, c := range []*cobra.Command{settingsEmbeddingCmd, settingsLLMCmd} {
		c.Flags().StringVarP(&settingsModel, "model", "m", "", "model name (provider default when empty)")
		c.Flags().StringVarP(&settingsAPIKey, "api-key", "k", "", "API key for cloud providers")
		c.Flags().BoolVar(&settingsValidate, "validate", false, "ping the provider after saving")
	}

	settingsChunkingCmd.Flags().IntVar(&settingsMaxChunk, "max-chunk-size", 1000, "sliding window size in characters")
	settingsChunkingCmd.Flags().IntVar(&settingsOverlap, "overlap", 200, "characters carried between adjacent windows")

	settingsQueryCmd.Flags().IntVar(&settingsTopK, "top-k", 5, "number of vector hits to retrieve")
	settingsQueryCmd.Flags().Float64Var(&settingsThreshold, "threshold", 0.3, "minimum cosine similarity")
	settingsQueryCmd.Flags().Float64Var(&settingsOverlapRatio, "overlap-ratio", 0.5, "token overlap a catalog match must reach")
	settingsQueryCmd.Flags().IntVar(&settingsMaxContext, "max-context-size", 8000, "context cap in characters")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsChunkingCmd)
	settingsCmd.AddCommand(settingsQueryCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	cmd.Println(styleTitle.Render("Chunking"))
	cmd.Printf("  max chunk size:   %d\n", settings.Chunking.MaxChunkSize)
	cmd.Printf("  overlap:          %d\n", settings.Chunking.Overlap)

	cmd.Println(styleTitle.Render("Query"))
	cmd.Printf("  top k:            %d\n", settings.Query.TopK)
	cmd.Printf("  threshold:        %.2f\n", settings.Query.Threshold)
	cmd.Printf("  overlap ratio:    %.2f\n", settings.Query.OverlapRatio)
	cmd.Printf("  max context size: %d\n", settings.Query.MaxContextSize)

	cmd.Println(styleTitle.Render("Embedding"))
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model, settings.Embedding.IsConfigured())

	cmd.Println(styleTitle.Render("LLM"))
	printProvider(cmd, settings.LLM.Provider, settings.LLM.Model, settings.LLM.IsConfigured())

	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model string, configured bool) {
	if !configured {
		cmd.Printf("  %s\n", styleMuted.Render("not configured"))
		return
	}
	cmd.Printf("  provider: %s\n", provider.Description())
	cmd.Printf("  model:    %s\n", model)
}

func runSettingsEmbedding(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	provider := domain.AIProvider(args[0])
	if err := settingsService.SetEmbeddingProvider(provider, settingsModel, settingsAPIKey); err != nil {
		return err
	}
	cmd.Printf("%s embedding provider set to %s\n", styleSuccess.Render("✓"), provider)

	if settingsValidate {
		if err := settingsService.ValidateEmbeddingConfig(); err != nil {
			return fmt.Errorf("provider saved but validation failed: %w", err)
		}
		cmd.Printf("%s provider reachable\n", styleSuccess.Render("✓"))
	}
	return nil
}

func runSettingsLLM(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	provider := domain.AIProvider(args[0])
	if err := settingsService.SetLLMProvider(provider, settingsModel, settingsAPIKey); err != nil {
		return err
	}
	cmd.Printf("%s llm provider set to %s\n", styleSuccess.Render("✓"), provider)

	if settingsValidate {
		if err := settingsService.ValidateLLMConfig(); err != nil {
			return fmt.Errorf("provider saved but validation failed: %w", err)
		}
		cmd.Printf("%s provider reachable\n", styleSuccess.Render("✓"))
	}
	return nil
}

func runSettingsChunking(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.SetChunking(settingsMaxChunk, settingsOverlap); err != nil {
		return err
	}
	cmd.Printf("%s chunking updated\n", styleSuccess.Render("✓"))
	return nil
}

func runSettingsQuery(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.SetQuery(settingsTopK, settingsThreshold, settingsOverlapRatio, settingsMaxContext); err != nil {
		return err
	}
	cmd.Printf("%s query tuning updated\n", styleSuccess.Render("✓"))
	return nil
}
