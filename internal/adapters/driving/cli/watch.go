package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/docatlas/docatlas/internal/logger"
)

// watchDebounce coalesces bursts of write events for the same file. Editors
// commonly emit several writes per save.
const watchDebounce = 500 * time.Millisecond

var watchInitialIndex bool

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and re-index markdown files on change",
	Long: `Watches a directory tree and re-indexes markdown files as they are
created or modified. Removed files are deleted from the index.

Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchInitialIndex, "initial", true, "index existing markdown files before watching")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if indexerService == nil {
		return errors.New("indexer service not configured")
	}

	root := args[0]
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if watchInitialIndex {
		if err := indexExisting(ctx, cmd, root); err != nil {
			return err
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, root); err != nil {
		return err
	}

	cmd.Printf("Watching %s for markdown changes. Ctrl-C to stop.\n", root)
	return watchLoop(ctx, cmd, watcher)
}

// indexExisting walks the tree and indexes every markdown file, a few in
// parallel. Per-document locking in the indexer keeps this safe.
func indexExisting(ctx context.Context, cmd *cobra.Command, root string) error {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && markdownFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			status, err := indexerService.Index(gctx, documentIDForPath(path), string(data))
			if err != nil {
				return fmt.Errorf("index %s: %w", path, err)
			}
			if !status.Unchanged {
				cmd.Printf("%s indexed %s (%d chunks)\n", styleSuccess.Render("✓"), path, status.Chunks)
			}
			return nil
		})
	}
	return g.Wait()
}

// addWatchDirs registers the root and all nested directories.
func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

func watchLoop(ctx context.Context, cmd *cobra.Command, watcher *fsnotify.Watcher) error {
	pending := make(map[string]*time.Timer)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			handleWatchEvent(ctx, cmd, watcher, event, pending)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch error: %v", err)
		}
	}
}

func handleWatchEvent(ctx context.Context, cmd *cobra.Command, watcher *fsnotify.Watcher, event fsnotify.Event, pending map[string]*time.Timer) {
	switch {
	case event.Op.Has(fsnotify.Create):
		// New directories need their own watch; new files index below
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = watcher.Add(event.Name)
			return
		}
		fallthrough

	case event.Op.Has(fsnotify.Write):
		if !markdownFile(event.Name) {
			return
		}
		// Debounce: restart the timer on every event for this path
		if timer, ok := pending[event.Name]; ok {
			timer.Stop()
		}
		path := event.Name
		pending[path] = time.AfterFunc(watchDebounce, func() {
			reindexPath(ctx, cmd, path)
		})

	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		if !markdownFile(event.Name) {
			return
		}
		if err := indexerService.Delete(ctx, documentIDForPath(event.Name)); err != nil {
			logger.Warn("failed to delete %s from index: %v", event.Name, err)
			return
		}
		cmd.Printf("%s removed %s\n", styleMuted.Render("-"), event.Name)
	}
}

func reindexPath(ctx context.Context, cmd *cobra.Command, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("failed to read %s: %v", path, err)
		return
	}

	status, err := indexerService.Index(ctx, documentIDForPath(path), string(data))
	if err != nil {
		logger.Warn("failed to index %s: %v", path, err)
		return
	}
	if status.Unchanged {
		return
	}
	cmd.Printf("%s indexed %s (%d chunks, %d embedded)\n",
		styleSuccess.Render("✓"), path, status.Chunks, status.Embedded)
}
