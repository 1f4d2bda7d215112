package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docatlas/docatlas/internal/core/domain"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog [doc-id]",
	Short: "Show a document's heading catalog",
	Long:  `Prints the heading hierarchy of an indexed document as a tree.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	ctx := context.Background()
	cat, err := queryService.GetCatalog(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	root := cat.Root()
	if root == nil {
		cmd.Println("Catalog is empty.")
		return nil
	}

	cmd.Println(styleTitle.Render(cat.DocumentID))
	printCatalogTree(cmd, cat, root, 0)
	return nil
}

func printCatalogTree(cmd *cobra.Command, cat *domain.Catalog, node *domain.CatalogNode, depth int) {
	if node.Title != "" {
		indent := strings.Repeat("  ", depth)
		span := fmt.Sprintf("[%d:%d)", node.StartLine, node.EndLine)
		cmd.Printf("%s%s %s\n", indent, node.Title, styleMuted.Render(span))
		depth++
	}
	for _, id := range node.Children {
		child := cat.Node(id)
		if child != nil {
			printCatalogTree(cmd, cat, child, depth)
		}
	}
}
