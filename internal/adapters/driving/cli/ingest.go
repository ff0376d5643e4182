package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/retriva/internal/core/domain"
)

var ingestDocID string

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest files or directories",
	Long: `Chunks each file, embeds the chunks and writes them into both the
keyword and vector index. Directories are walked recursively. Use "-"
to read a single document from stdin.

Document IDs are derived from the absolute file path, so re-ingesting
the same file updates the existing document instead of duplicating it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDocID, "id", "", "document ID override (stdin or single file only)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	docs, err := collectDocuments(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		cmd.Println("Nothing to ingest.")
		return nil
	}

	reports, err := ingestService.IngestAll(cmd.Context(), docs)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	var chunks, failures int
	for _, report := range reports {
		chunks += len(report.ChunkIDs)
		failures += len(report.Failures)
		for _, failure := range report.Failures {
			cmd.PrintErrf("failed chunk %s (%s): %v\n", failure.ChunkID, failure.Index, failure.Err)
		}
	}

	cmd.Printf("Ingested %d documents, %d chunks", len(reports), chunks)
	if failures > 0 {
		cmd.Printf(", %d failed chunks", failures)
	}
	cmd.Println()
	if failures > 0 {
		return fmt.Errorf("%d chunks failed to ingest", failures)
	}
	return nil
}

// collectDocuments expands the path arguments into documents.
func collectDocuments(stdin io.Reader, args []string) ([]*domain.Document, error) {
	var docs []*domain.Document

	for _, arg := range args {
		if arg == "-" {
			doc, err := documentFromStdin(stdin)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
			continue
		}

		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}

		if info.IsDir() {
			dirDocs, err := documentsFromDir(arg)
			if err != nil {
				return nil, err
			}
			docs = append(docs, dirDocs...)
			continue
		}

		doc, err := documentFromFile(arg)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if ingestDocID != "" {
		if len(docs) != 1 {
			return nil, errors.New("--id requires exactly one document")
		}
		docs[0].ID = ingestDocID
	}

	return docs, nil
}

func documentFromStdin(stdin io.Reader) (*domain.Document, error) {
	content, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return &domain.Document{
		ID:      "stdin",
		Title:   "stdin",
		Content: string(content),
	}, nil
}

func documentFromFile(path string) (*domain.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return &domain.Document{
		ID:      DocumentIDForPath(abs),
		Title:   filepath.Base(abs),
		URI:     "file://" + abs,
		Content: string(content),
	}, nil
}

func documentsFromDir(dir string) ([]*domain.Document, error) {
	var docs []*domain.Document

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		doc, err := documentFromFile(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	return docs, nil
}

// DocumentIDForPath derives a stable document ID from an absolute file
// path, so repeated ingests of the same file update in place.
func DocumentIDForPath(absPath string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+absPath)).String()
}
