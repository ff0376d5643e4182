package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/retriva/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and keep the indexes in sync",
	Long: `Watches a directory tree. New and modified files are ingested;
deleted files are removed from both indexes. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchTree(watcher, dir); err != nil {
		return err
	}

	cmd.Printf("Watching %s (ctrl-c to stop)\n", dir)
	ctx := cmd.Context()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			handleWatchEvent(cmd, watcher, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// watchTree registers the directory and all subdirectories.
func watchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func handleWatchEvent(cmd *cobra.Command, watcher *fsnotify.Watcher, event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return
	}
	ctx := cmd.Context()

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if event.Has(fsnotify.Create) {
				if err := watchTree(watcher, event.Name); err != nil {
					logger.Warn("Failed to watch new directory %s: %v", event.Name, err)
				}
			}
			return
		}

		doc, err := documentFromFile(event.Name)
		if err != nil {
			logger.Warn("Failed to read %s: %v", event.Name, err)
			return
		}
		report, err := ingestService.Ingest(ctx, doc)
		if err != nil {
			cmd.PrintErrf("ingest %s: %v\n", event.Name, err)
			return
		}
		cmd.Printf("Ingested %s (%d chunks)\n", event.Name, len(report.ChunkIDs))

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		abs, err := filepath.Abs(event.Name)
		if err != nil {
			return
		}
		if err := ingestService.Remove(ctx, DocumentIDForPath(abs)); err != nil {
			logger.Debug("Remove %s: %v", event.Name, err)
			return
		}
		cmd.Printf("Removed %s\n", event.Name)
	}
}
