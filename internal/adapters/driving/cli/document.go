package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage indexed documents",
	Long:  `List, inspect, edit, or delete indexed documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentChunksCmd = &cobra.Command{
	Use:   "chunks [doc-id]",
	Short: "List a document's chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentChunks,
}

var documentEditCmd = &cobra.Command{
	Use:   "edit [doc-id]",
	Short: "Replace the text of one catalog section",
	Long: `Replaces the body of a single catalog node, addressed by its heading
path. A body-only edit re-embeds just that section; an edit that adds or
removes headings re-indexes the whole document.

The new text is read from --file, or from stdin when --file is omitted.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentEdit,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document from the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var (
	editPath string
	editFile string
)

func init() {
	documentEditCmd.Flags().StringVarP(&editPath, "path", "p", "", "heading path, slash separated (e.g. \"Install/Requirements\")")
	documentEditCmd.Flags().StringVarP(&editFile, "file", "f", "", "file holding the replacement text (default: stdin)")
	_ = documentEditCmd.MarkFlagRequired("path")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentChunksCmd)
	documentCmd.AddCommand(documentEditCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	docs, err := queryService.ListDocuments(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	for i := range docs {
		d := &docs[i]
		cmd.Printf("  %s\n", d.ID)
		if d.Filename != "" && d.Filename != d.ID {
			cmd.Printf("    %s %s\n", styleMuted.Render("file:"), d.Filename)
		}
		cmd.Printf("    %s %s, %d/%d chunks embedded\n", styleMuted.Render("status:"),
			statusStyle(string(d.Status)).Render(string(d.Status)),
			d.EmbeddedChunks, d.TotalChunks)
	}

	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	doc, err := queryService.GetDocument(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Filename: %s\n", doc.Filename)
	cmd.Printf("  Status:   %s\n", statusStyle(string(doc.Status)).Render(string(doc.Status)))
	cmd.Printf("  Chunks:   %d (%d embedded)\n", doc.TotalChunks, doc.EmbeddedChunks)
	cmd.Printf("  Hash:     %s\n", doc.ContentHash)
	cmd.Printf("  Created:  %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Updated:  %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func runDocumentChunks(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	chunks, err := queryService.GetChunks(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}

	if len(chunks) == 0 {
		cmd.Println("No chunks found.")
		return nil
	}

	for i := range chunks {
		c := &chunks[i]
		marker := ""
		if c.Oversized {
			marker = " " + styleWarning.Render("(oversized)")
		}
		cmd.Printf("  %s%s\n", c.ID, marker)
		if len(c.NodePath) > 0 {
			cmd.Printf("    %s\n", styleMuted.Render(strings.Join(c.NodePath, " » ")))
		}
		cmd.Printf("    %s\n", snippet(c.Content, 100))
	}

	cmd.Printf("\nTotal: %d chunks\n", len(chunks))
	return nil
}

func runDocumentEdit(cmd *cobra.Command, args []string) error {
	if indexerService == nil {
		return errors.New("indexer service not configured")
	}

	var (
		data []byte
		err  error
	)
	if editFile != "" {
		data, err = os.ReadFile(editFile)
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read replacement text: %w", err)
	}

	path := strings.Split(editPath, "/")
	status, err := indexerService.UpdateNode(context.Background(), args[0], path, string(data))
	if err != nil {
		return fmt.Errorf("failed to update section: %w", err)
	}

	if status.Unchanged {
		cmd.Println(styleMuted.Render("Section unchanged, nothing to do."))
		return nil
	}

	cmd.Printf("%s updated %s\n", styleSuccess.Render("✓"), strings.Join(path, " » "))
	cmd.Printf("  %s %s, %d/%d chunks embedded\n", styleMuted.Render("status:"),
		statusStyle(string(status.Status)).Render(string(status.Status)),
		status.Embedded, status.Chunks)
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if indexerService == nil {
		return errors.New("indexer service not configured")
	}

	if err := indexerService.Delete(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("%s deleted %s\n", styleSuccess.Render("✓"), args[0])
	return nil
}
