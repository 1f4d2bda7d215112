package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docatlas/docatlas/internal/core/domain"
)

var (
	queryVectorOnly bool
	queryDocument   string
	queryTopK       int
	queryThreshold  float64
	queryJSON       bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question about indexed documents",
	Long: `Answers a question from the indexed documents.

The default path matches the question against catalog headings first and
falls back to vector similarity when no heading matches. With --vector the
catalog is skipped and raw similarity hits are printed without invoking
the answer model.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&queryVectorOnly, "vector", false, "vector-only search, skip catalog matching and answer generation")
	queryCmd.Flags().StringVarP(&queryDocument, "document", "d", "", "restrict the query to one document id")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "n", 5, "maximum number of vector hits")
	queryCmd.Flags().Float64VarP(&queryThreshold, "threshold", "t", 0.3, "minimum cosine similarity for vector hits")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	ctx := context.Background()

	if queryVectorOnly {
		return runVectorQuery(cmd, ctx, args[0])
	}

	answer, err := queryService.QueryCatalogFirst(ctx, args[0], queryDocument)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputJSON(cmd, answer)
	}

	if answer.NoContext {
		cmd.Println(styleWarning.Render("No relevant content found."))
		return nil
	}

	if answer.Text != "" {
		cmd.Println(styleTitle.Render("Answer"))
		cmd.Println()
		cmd.Println(answer.Text)
		cmd.Println()
	}

	cmd.Println(styleTitle.Render("Sources") + styleMuted.Render(" ("+string(answer.Source)+")"))
	for i, r := range answer.Results {
		location := r.DocumentID
		if len(r.Path) > 0 {
			location += " » " + strings.Join(r.Path, " » ")
		}
		cmd.Printf("  [%d] %s %s\n", i+1, location, styleMuted.Render(fmt.Sprintf("(%.2f)", r.Score)))
	}
	return nil
}

func runVectorQuery(cmd *cobra.Command, ctx context.Context, query string) error {
	results, err := queryService.QueryVector(ctx, query, domain.QueryOptions{
		TopK:       queryTopK,
		Threshold:  queryThreshold,
		DocumentID: queryDocument,
	})
	if err != nil {
		return fmt.Errorf("vector search failed: %w", err)
	}

	if queryJSON {
		return outputJSON(cmd, results)
	}

	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println(styleTitle.Render("Results"))
	cmd.Println()
	for i, r := range results {
		cmd.Printf("  [%d] %s %s\n", i+1, r.ChunkID, styleMuted.Render(fmt.Sprintf("(%.2f)", r.Score)))
		if len(r.Path) > 0 {
			cmd.Printf("      %s\n", styleMuted.Render(strings.Join(r.Path, " » ")))
		}
		cmd.Printf("      %s\n", snippet(r.Content, 120))
	}
	return nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// snippet flattens text to one line and truncates it for display.
func snippet(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
