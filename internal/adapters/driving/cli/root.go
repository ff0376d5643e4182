// Package cli implements the command-line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/retriva/internal/core/ports/driven"
	"github.com/custodia-labs/retriva/internal/core/ports/driving"
	"github.com/custodia-labs/retriva/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services wired in by the composition root before Execute.
var (
	retrievalService driving.RetrievalService
	ingestService    driving.IngestService
	docStore         driven.DocumentStore
	embeddingService driven.EmbeddingService
	vectorBackend    string
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "retriva",
	Short: "Hybrid retrieval over your documents",
	Long: `Retriva indexes documents into a keyword (BM25) index and a vector
index, and answers queries by fusing both rankings with Reciprocal
Rank Fusion. Retrieved passages are ready to drop into an LLM prompt.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Services bundles everything the commands need.
type Services struct {
	Retrieval driving.RetrievalService
	Ingest    driving.IngestService
	Documents driven.DocumentStore
	Embedding driven.EmbeddingService

	// VectorBackend names the configured vector index ("hnsw" or
	// "qdrant") for the status command.
	VectorBackend string
}

// SetServices wires the services into the command tree.
func SetServices(s Services) {
	retrievalService = s.Retrieval
	ingestService = s.Ingest
	docStore = s.Documents
	embeddingService = s.Embedding
	vectorBackend = s.VectorBackend
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command under the given context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
