package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch invalidiert die Catalogs, sobald in ihren Wurzel- oder Kategorieverzeichnissen
// Dateien angelegt, gelöscht oder umbenannt werden. Blockiert bis ctx endet.
func Watch(ctx context.Context, logger *zap.Logger, catalogs ...*Catalog) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	owners := make(map[string]*Catalog)
	for _, c := range catalogs {
		dirs := append([]string{c.Dir()}, prefixed(c.Dir(), DiscoverCategories(c.Dir(), logger))...)
		for _, d := range dirs {
			if err := watcher.Add(d); err != nil {
				logger.Warn("Cannot watch directory", zap.String("dir", d), zap.Error(err))
				continue
			}
			owners[filepath.Clean(d)] = c
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			c := owners[filepath.Clean(filepath.Dir(event.Name))]
			if c == nil {
				continue
			}
			logger.Info("Content changed, clearing category cache",
				zap.String("path", event.Name), zap.String("op", event.Op.String()))
			c.Clear()
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() && event.Has(fsnotify.Create) {
				// neue Kategorie -> mitbeobachten
				if err := watcher.Add(event.Name); err == nil {
					owners[filepath.Clean(event.Name)] = c
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Content watcher error", zap.Error(err))
		}
	}
}

func prefixed(dir string, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(dir, n)
	}
	return out
}
