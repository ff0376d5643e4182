package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/retriva/internal/core/domain"
)

var (
	searchTopK int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Runs the query against the keyword (BM25) and vector indexes
concurrently and fuses both rankings with Reciprocal Rank Fusion.
If one index is unavailable the results come from the survivor and a
degradation warning is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 3, "maximum number of passages")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	set, err := retrievalService.Retrieve(cmd.Context(), query, domain.RetrieveOptions{K: searchTopK})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if set.Degraded {
		cmd.PrintErrf("warning: %s index unavailable, results are degraded\n", set.FailedIndex)
	}

	if searchJSON {
		return outputSearchJSON(cmd, set)
	}
	return outputSearchText(cmd, set)
}

func outputSearchJSON(cmd *cobra.Command, set *domain.RankedSet) error {
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchText(cmd *cobra.Command, set *domain.RankedSet) error {
	if len(set.Passages) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, p := range set.Passages {
		cmd.Printf("[%d] %s (score %.4f)\n", i+1, p.ChunkID, p.Score)
		cmd.Printf("    Document: %s\n", p.DocumentID)
		cmd.Printf("    %s\n", snippet(p.Text, 200))
		cmd.Println()
	}
	return nil
}

// snippet truncates text to max runes on a single line.
func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
