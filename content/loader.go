package content

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// Found ist ein aufgelöstes Dokument samt Herkunft.
type Found struct {
	Slug     string         `json:"slug"`
	Category string         `json:"category"`
	Path     string         `json:"-"`
	FileName string         `json:"file_name"`
	Strategy string         `json:"strategy"`
	Data     map[string]any `json:"data"`
}

// Strategy ist ein Schritt der Lookup-Kette. Find meldet false bei Nichttreffer.
type Strategy struct {
	Name string
	Find func(slug string) (*Found, bool)
}

// Loader löst Slugs über eine geordnete Liste von Strategien auf.
type Loader struct {
	catalog    *Catalog
	strategies []Strategy
	logger     *zap.Logger
}

// NewLoader baut die Standardkette: priorisierte Verzeichnisse (rekursiv),
// dann die Kategorien des Catalogs, dann der case-insensitive Slug-Index.
func NewLoader(catalog *Catalog, logger *zap.Logger, priorityDirs ...string) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{catalog: catalog, logger: logger}
	for _, dir := range priorityDirs {
		l.strategies = append(l.strategies, PriorityDirStrategy(dir, logger))
	}
	l.strategies = append(l.strategies,
		CategoryStrategy(catalog, logger),
		SlugIndexStrategy(catalog, logger),
	)
	return l
}

// NewLoaderWithStrategies erlaubt eine eigene Kette.
func NewLoaderWithStrategies(catalog *Catalog, logger *zap.Logger, strategies ...Strategy) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{catalog: catalog, strategies: strategies, logger: logger}
}

// Catalog gibt den zugrunde liegenden Catalog zurück.
func (l *Loader) Catalog() *Catalog { return l.catalog }

// Strategies gibt die Namen der Kette in Auswertungsreihenfolge zurück.
func (l *Loader) Strategies() []string {
	names := make([]string, len(l.strategies))
	for i, s := range l.strategies {
		names[i] = s.Name
	}
	return names
}

// LoadBySlug probiert die Strategien der Reihe nach; der erste Treffer gewinnt.
func (l *Loader) LoadBySlug(slug string) (*Found, bool) {
	if !validName(slug) {
		return nil, false
	}
	for _, s := range l.strategies {
		if found, ok := s.Find(slug); ok {
			found.Strategy = s.Name
			l.logger.Debug("Slug resolved", zap.String("slug", slug), zap.String("strategy", s.Name))
			return found, true
		}
	}
	return nil, false
}

// LoadByCategory listet alle Slugs einer Kategorie (rekursiv), sortiert.
// Eine leere oder fehlende Kategorie ergibt eine leere Liste.
func (l *Loader) LoadByCategory(category string) []string {
	if !validName(category) {
		return []string{}
	}
	dir := filepath.Join(l.catalog.Dir(), category)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		l.logger.Warn("Category directory not found", zap.String("category", category))
		return []string{}
	}

	matches, err := doublestar.Glob(os.DirFS(dir), "**/*.json")
	if err != nil {
		l.logger.Error("Failed to list category", zap.String("category", category), zap.Error(err))
		return []string{}
	}

	seen := make(map[string]bool, len(matches))
	slugs := make([]string, 0, len(matches))
	for _, m := range matches {
		s := slugOf(filepath.Base(m))
		if !seen[s] {
			seen[s] = true
			slugs = append(slugs, s)
		}
	}
	sort.Strings(slugs)
	return slugs
}

// PriorityDirStrategy durchsucht dir rekursiv und bricht beim ersten passenden Dateinamen ab.
func PriorityDirStrategy(dir string, logger *zap.Logger) Strategy {
	category := filepath.Base(dir)
	return Strategy{
		Name: "priority:" + category,
		Find: func(slug string) (*Found, bool) {
			want := slug + ".json"
			var hit string
			err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					if errors.Is(err, fs.ErrNotExist) && path == dir {
						return fs.SkipAll
					}
					return nil
				}
				if !d.IsDir() && d.Name() == want {
					hit = path
					return fs.SkipAll
				}
				return nil
			})
			if err != nil || hit == "" {
				return nil, false
			}
			return readFound(hit, slug, category, logger)
		},
	}
}

// CategoryStrategy probiert für jede Kategorie den direkten Pfad und danach eine Ebene Unterordner.
func CategoryStrategy(catalog *Catalog, logger *zap.Logger) Strategy {
	return Strategy{
		Name: "category",
		Find: func(slug string) (*Found, bool) {
			root := catalog.Dir()
			for _, category := range catalog.Categories() {
				catDir := filepath.Join(root, category)
				if found, ok := readFound(filepath.Join(catDir, slug+".json"), slug, category, logger); ok {
					return found, true
				}
				entries, err := os.ReadDir(catDir)
				if err != nil {
					continue
				}
				for _, e := range entries {
					if !e.IsDir() {
						continue
					}
					p := filepath.Join(catDir, e.Name(), slug+".json")
					if found, ok := readFound(p, slug, category, logger); ok {
						return found, true
					}
				}
			}
			return nil, false
		},
	}
}

// SlugIndexStrategy findet Dateien mit abweichender Groß-/Kleinschreibung.
func SlugIndexStrategy(catalog *Catalog, logger *zap.Logger) Strategy {
	return Strategy{
		Name: "slug-index",
		Find: func(slug string) (*Found, bool) {
			entry, ok := catalog.SlugIndex()[strings.ToLower(slug)]
			if !ok {
				return nil, false
			}
			p := filepath.Join(catalog.Dir(), entry.Category, entry.FileName)
			return readFound(p, slugOf(entry.FileName), entry.Category, logger)
		},
	}
}

func readFound(path, slug, category string, logger *zap.Logger) (*Found, bool) {
	doc, err := ReadDocument(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Skipping unreadable document", zap.String("path", path), zap.Error(err))
		}
		return nil, false
	}
	return &Found{
		Slug:     slug,
		Category: category,
		Path:     path,
		FileName: filepath.Base(path),
		Data:     doc,
	}, true
}

func validName(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`+"\x00") && !strings.Contains(s, "..")
}
