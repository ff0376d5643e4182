package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index and service status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if docStore == nil {
		return errors.New("document store not configured")
	}
	ctx := cmd.Context()

	docs, err := docStore.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	var chunks int
	for i := range docs {
		cs, err := docStore.GetChunks(ctx, docs[i].ID)
		if err != nil {
			return fmt.Errorf("failed to get chunks for %s: %w", docs[i].ID, err)
		}
		chunks += len(cs)
	}

	cmd.Println("Retriva status")
	cmd.Println()
	cmd.Printf("  Documents:      %d\n", len(docs))
	cmd.Printf("  Chunks:         %d\n", chunks)
	cmd.Printf("  Vector backend: %s\n", vectorBackend)

	if embeddingService != nil {
		cmd.Printf("  Embedding:      %s (%d dimensions)\n",
			embeddingService.ModelName(), embeddingService.Dimensions())
		if err := embeddingService.Ping(ctx); err != nil {
			cmd.Printf("  Embedding API:  unreachable (%v)\n", err)
		} else {
			cmd.Println("  Embedding API:  ok")
		}
	}

	return nil
}
