// Package content liest das JSON-Content-Repository direkt von der Platte:
// Kategorien entdecken, Slugs indizieren und Dokumente per Slug auflösen.
package content

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// DiscoverCategories listet die direkten Unterverzeichnisse von dir, sortiert.
// Fehlt dir oder schlägt das Lesen fehl, kommt eine leere Liste zurück.
func DiscoverCategories(dir string, logger *zap.Logger) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Content directory does not exist", zap.String("dir", dir))
		} else {
			logger.Error("Failed to read content directory", zap.String("dir", dir), zap.Error(err))
		}
		return []string{}
	}

	categories := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			categories = append(categories, e.Name())
		}
	}
	sort.Strings(categories)
	return categories
}

// SlugEntry zeigt auf die Datei, aus der ein Slug stammt.
type SlugEntry struct {
	Category string `json:"category"`
	FileName string `json:"file_name"`
}

// BuildSlugIndex bildet kleingeschriebene Slugs auf Kategorie und exakten Dateinamen ab.
// Bei Kollisionen gewinnt der erste Treffer.
func BuildSlugIndex(dir string, categories []string, logger *zap.Logger) map[string]SlugEntry {
	index := make(map[string]SlugEntry)
	for _, category := range categories {
		entries, err := os.ReadDir(filepath.Join(dir, category))
		if err != nil {
			logger.Warn("Skipping unreadable category", zap.String("category", category), zap.Error(err))
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !isJSON(e.Name()) {
				continue
			}
			key := strings.ToLower(slugOf(e.Name()))
			if prev, exists := index[key]; exists {
				logger.Debug("Duplicate slug in index, keeping first",
					zap.String("slug", key),
					zap.String("kept", prev.Category),
					zap.String("ignored", category))
				continue
			}
			index[key] = SlugEntry{Category: category, FileName: e.Name()}
		}
	}
	return index
}

func isJSON(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}

func slugOf(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
