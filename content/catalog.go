package content

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type snapshot struct {
	categories []string
	builtAt    time.Time

	indexOnce sync.Once
	index     map[string]SlugEntry
}

// Catalog cached die Kategorien eines Content-Verzeichnisses bis zum nächsten Clear.
// Es gibt kein TTL; ein Clear ersetzt nur die Referenz, laufende Leser behalten ihren Snapshot.
type Catalog struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time

	current atomic.Pointer[snapshot]
	mu      sync.Mutex
}

// CatalogOption konfiguriert einen Catalog.
type CatalogOption func(*Catalog)

// WithClock ersetzt die Uhr, z.B. in Tests.
func WithClock(now func() time.Time) CatalogOption {
	return func(c *Catalog) { c.now = now }
}

// NewCatalog erstellt einen Catalog für dir.
func NewCatalog(dir string, logger *zap.Logger, opts ...CatalogOption) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Catalog{dir: dir, logger: logger.With(zap.String("content_dir", dir)), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir gibt das Wurzelverzeichnis zurück.
func (c *Catalog) Dir() string { return c.dir }

func (c *Catalog) load() *snapshot {
	if s := c.current.Load(); s != nil {
		return s
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.current.Load(); s != nil {
		return s
	}
	s := &snapshot{categories: DiscoverCategories(c.dir, c.logger), builtAt: c.now()}
	c.current.Store(s)
	c.logger.Debug("Categories discovered", zap.Strings("categories", s.categories))
	return s
}

// Categories liefert die sortierten Kategorien (gecached).
func (c *Catalog) Categories() []string {
	cats := c.load().categories
	out := make([]string, len(cats))
	copy(out, cats)
	return out
}

// DiscoveredAt ist der Zeitpunkt, zu dem der aktuelle Snapshot gebaut wurde.
func (c *Catalog) DiscoveredAt() time.Time {
	return c.load().builtAt
}

// SlugIndex liefert den Index des aktuellen Snapshots; er wird beim ersten Zugriff gebaut.
func (c *Catalog) SlugIndex() map[string]SlugEntry {
	s := c.load()
	s.indexOnce.Do(func() {
		s.index = BuildSlugIndex(c.dir, s.categories, c.logger)
	})
	return s.index
}

// Clear verwirft den Cache. Der nächste Zugriff liest das Verzeichnis neu.
func (c *Catalog) Clear() {
	c.current.Store(nil)
}
