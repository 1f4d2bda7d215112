// Package cli implements the docatlas command line interface.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/docatlas/docatlas/internal/core/ports/driving"
	"github.com/docatlas/docatlas/internal/logger"
)

// version is set by the build via ldflags.
var version = "dev"

// Services are injected by the composition root before Execute.
var (
	indexerService  driving.Indexer
	queryService    driving.QueryService
	settingsService driving.SettingsService
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "docatlas",
	Short: "Catalog-aware markdown indexing and retrieval",
	Long: `docatlas indexes markdown documents into a heading catalog plus
embedded chunks, then answers questions about them.

Queries try a lexical match against the catalog first; when no heading
matches, they fall back to vector similarity over the chunk embeddings.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
	SilenceUsage: true,
}

func init() {
	// .env is optional; deployed environments set variables directly
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// SetServices injects the service implementations the commands run against.
func SetServices(indexer driving.Indexer, query driving.QueryService, settings driving.SettingsService) {
	indexerService = indexer
	queryService = query
	settingsService = settings
}

// SetVersion overrides the version string reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
