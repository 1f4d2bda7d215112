package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var indexDocID string

var indexCmd = &cobra.Command{
	Use:   "index [file...]",
	Short: "Index markdown files",
	Long: `Parses each markdown file into a heading catalog, splits it into
chunks and embeds them. Re-indexing an unchanged file is a no-op.

Document ids are derived from the file path, so re-running the command
after edits updates the same document. Use --id to pin an explicit id
when indexing a single file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexDocID, "id", "", "explicit document id (single file only)")
	rootCmd.AddCommand(indexCmd)
}

// documentIDForPath derives a stable document id from a file path. The same
// path always maps to the same id, so watch-triggered re-indexing updates in
// place instead of accumulating copies.
func documentIDForPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+abs)).String()
}

func runIndex(cmd *cobra.Command, args []string) error {
	if indexerService == nil {
		return errors.New("indexer service not configured")
	}
	if indexDocID != "" && len(args) > 1 {
		return errors.New("--id can only be used with a single file")
	}

	ctx := context.Background()
	failures := 0

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			cmd.PrintErrf("%s %s: %v\n", styleError.Render("✗"), path, err)
			failures++
			continue
		}

		docID := indexDocID
		if docID == "" {
			docID = documentIDForPath(path)
		}

		status, err := indexerService.Index(ctx, docID, string(data))
		if err != nil {
			cmd.PrintErrf("%s %s: %v\n", styleError.Render("✗"), path, err)
			failures++
			continue
		}

		if status.Unchanged {
			cmd.Printf("%s %s %s\n", styleSuccess.Render("✓"), path, styleMuted.Render("(unchanged)"))
			continue
		}

		cmd.Printf("%s %s\n", styleSuccess.Render("✓"), path)
		cmd.Printf("  %s %s\n", styleMuted.Render("id:"), status.DocumentID)
		cmd.Printf("  %s %s\n", styleMuted.Render("status:"),
			statusStyle(string(status.Status)).Render(string(status.Status)))
		cmd.Printf("  %s %d chunks, %d embedded\n", styleMuted.Render("chunks:"),
			status.Chunks, status.Embedded)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d files failed", failures, len(args))
	}
	return nil
}

// markdownFile reports whether a path looks like a markdown document.
func markdownFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	default:
		return false
	}
}
