package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"mindhub/config"
	"mindhub/content"
	"mindhub/models"
	"mindhub/normalize"
)

var errMissingCategory = errors.New("missing required field: category (not in document or directory)")

// ContentKinds sind die Top-Level-Ordner des Content-Repositorys in Sync-Reihenfolge.
var ContentKinds = []string{"treatments", "conditions", "resources"}

var syncRecordsCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "content_sync_records_total",
		Help: "Records processed by the content synchronizer, by entity type and result.",
	},
	[]string{"type", "result"},
)

func init() {
	prometheus.MustRegister(syncRecordsCounter)
}

// EntityUpserter ist der Teil des Stores, den der Synchronizer braucht.
type EntityUpserter interface {
	UpsertEntities(ctx context.Context, entities []models.Entity) error
	UpsertRelationships(ctx context.Context, rels []models.Relationship) error
	RecordFiles(ctx context.Context, files []models.ContentFile) error
}

type SyncOptions struct {
	DryRun  bool
	Types   []string
	Verbose bool
}

// Synchronizer spiegelt die JSON-Dateien des Content-Repositorys in den Store.
type Synchronizer struct {
	Root        string
	Store       EntityUpserter
	Normalizer  *normalize.Normalizer
	Logger      *zap.Logger
	Rules       []TypeRule
	BatchSize   int
	Concurrency int

	now func() time.Time
}

// NewSynchronizer erstellt einen Synchronizer mit den Sync-Einstellungen aus der Konfiguration.
func NewSynchronizer(cfg *config.Config, store EntityUpserter, n *normalize.Normalizer, logger *zap.Logger) *Synchronizer {
	s := &Synchronizer{
		Root:        cfg.ContentRoot,
		Store:       store,
		Normalizer:  n,
		Logger:      logger,
		Rules:       DefaultTypeRules,
		BatchSize:   cfg.SyncBatchSize,
		Concurrency: cfg.SyncConcurrency,
		now:         time.Now,
	}
	if s.BatchSize <= 0 {
		s.BatchSize = 50
	}
	if s.Concurrency <= 0 {
		s.Concurrency = 5
	}
	return s
}

type syncRecord struct {
	kind   string
	path   string
	entity models.Entity
	rels   []models.Relationship
	file   models.ContentFile
}

// Run führt einen vollständigen Sync aus. Fehler einzelner Dateien oder Batches
// landen im Report, der Lauf wird nie vorzeitig abgebrochen.
func (s *Synchronizer) Run(ctx context.Context, opts SyncOptions) (*SyncReport, error) {
	kinds, err := selectKinds(opts.Types)
	if err != nil {
		return nil, err
	}
	started := s.now()
	report := newSyncReport(opts.DryRun, started)
	log := s.Logger.With(zap.Bool("dry_run", opts.DryRun))
	log.Info("Starte Content-Sync", zap.Strings("types", kinds), zap.String("root", s.Root))

	var records []*syncRecord
	for _, kind := range kinds {
		records = append(records, s.collect(kind, report.stats(kind), opts.Verbose)...)
	}
	records = s.dedup(records, report)

	batches := chunk(records, s.BatchSize)
	log.Info("Dateien eingelesen", zap.Int("records", len(records)), zap.Int("batches", len(batches)))

	if opts.DryRun {
		for _, r := range records {
			report.stats(r.kind).Synced++
			syncRecordsCounter.WithLabelValues(string(r.entity.Type), "dry_run").Inc()
		}
		report.Elapsed = s.now().Sub(started)
		return report, nil
	}

	var (
		mu     sync.Mutex
		synced []*syncRecord
	)
	g := new(errgroup.Group)
	g.SetLimit(s.Concurrency)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			entities := make([]models.Entity, len(batch))
			for j, r := range batch {
				entities[j] = r.entity
			}
			err := s.Store.UpsertEntities(ctx, entities)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Error("Batch-Upsert fehlgeschlagen", zap.Int("batch", i+1), zap.Int("records", len(batch)), zap.Error(err))
				for _, r := range batch {
					report.stats(r.kind).fail(r.path, fmt.Sprintf("batch %d upsert failed: %v", i+1, err))
					syncRecordsCounter.WithLabelValues(string(r.entity.Type), "error").Inc()
				}
				return nil
			}
			for _, r := range batch {
				report.stats(r.kind).Synced++
				syncRecordsCounter.WithLabelValues(string(r.entity.Type), "synced").Inc()
			}
			synced = append(synced, batch...)
			return nil
		})
	}
	_ = g.Wait()

	report.Relationships = s.writeFollowUps(ctx, log, synced)
	report.Elapsed = s.now().Sub(started)
	log.Info("Content-Sync abgeschlossen",
		zap.Int("synced", report.Totals().Synced),
		zap.Int("errors", report.Totals().Errors),
		zap.Duration("elapsed", report.Elapsed))

	return report, ctx.Err()
}

// collect liest alle Dateien eines Content-Typs und wandelt sie in Datensätze um.
func (s *Synchronizer) collect(kind string, stats *TypeStats, verbose bool) []*syncRecord {
	dir := filepath.Join(s.Root, kind)
	if _, err := os.Stat(dir); err != nil {
		s.Logger.Warn("Content-Verzeichnis fehlt", zap.String("dir", dir), zap.Error(err))
		return nil
	}
	files, err := doublestar.Glob(os.DirFS(dir), "**/*.json")
	if err != nil {
		stats.fail(dir, err.Error())
		return nil
	}
	sort.Strings(files)

	var records []*syncRecord
	for _, rel := range files {
		stats.Found++
		path := filepath.Join(dir, filepath.FromSlash(rel))
		rec, err := s.prepare(kind, rel, path)
		switch {
		case errors.Is(err, content.ErrEmptyDocument), errors.Is(err, content.ErrNotObject):
			stats.Skipped++
			syncRecordsCounter.WithLabelValues(kind, "skipped").Inc()
			if verbose {
				s.Logger.Debug("Datei übersprungen", zap.String("path", path), zap.Error(err))
			}
		case err != nil:
			stats.fail(path, err.Error())
			syncRecordsCounter.WithLabelValues(kind, "error").Inc()
			if verbose {
				s.Logger.Warn("Datei abgelehnt", zap.String("path", path), zap.Error(err))
			}
		default:
			records = append(records, rec)
		}
	}
	return records
}

func (s *Synchronizer) prepare(kind, rel, path string) (*syncRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := content.ParseDocument(data)
	if err != nil {
		return nil, err
	}

	entityType := InferType(s.Rules, "/"+kind+"/"+rel)
	if explicit, ok := doc["type"].(string); ok {
		if t, known := models.ParseEntityType(explicit); known && t != models.TypeUnknown {
			entityType = t
		}
	}
	category := categoryFromPath(rel)

	var (
		slug, title, description string
		body, metadata           map[string]any
	)
	if kind == "resources" {
		vr, err := s.Normalizer.Normalize(doc, normalize.Source{FileName: filepath.Base(path), Category: category})
		if err != nil {
			return nil, err
		}
		slug, title, body = vr.Slug, vr.Name, vr.Document
		description = stringField(body, "description")
		metadata, _ = body["metadata"].(map[string]any)
	} else {
		slug = stringField(doc, "slug")
		title = firstNonEmpty(stringField(doc, "name"), stringField(doc, "title"))
		switch {
		case slug == "":
			return nil, errors.New("missing required field: slug")
		case title == "":
			return nil, errors.New("missing required field: name or title")
		}
		description = firstNonEmpty(stringField(doc, "description"), stringField(doc, "summary"))
		body = doc
		metadata = rowMetadata(doc, category)
		if stringField(metadata, "category") == "" {
			return nil, errMissingCategory
		}
	}

	contentJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	sum := sha256.Sum256(data)

	return &syncRecord{
		kind: kind,
		path: path,
		entity: models.Entity{
			Type:        string(entityType),
			Slug:        slug,
			Title:       title,
			Description: description,
			Content:     datatypes.JSON(contentJSON),
			Metadata:    datatypes.JSON(metaJSON),
			Status:      rowStatus(doc),
		},
		rels: extractRelationships(entityType, slug, doc),
		file: models.ContentFile{
			Path:       filepath.ToSlash(filepath.Join(kind, rel)),
			EntityType: string(entityType),
			Slug:       slug,
			Checksum:   hex.EncodeToString(sum[:]),
		},
	}, nil
}

// dedup behält pro (type, slug) den zuletzt gelesenen Datensatz, damit kein Schlüssel in zwei Batches landet.
func (s *Synchronizer) dedup(records []*syncRecord, report *SyncReport) []*syncRecord {
	index := make(map[string]int, len(records))
	out := make([]*syncRecord, 0, len(records))
	for _, r := range records {
		key := r.entity.Type + "/" + r.entity.Slug
		if i, ok := index[key]; ok {
			prev := out[i]
			s.Logger.Debug("Doppelter Schlüssel, spätere Datei gewinnt",
				zap.String("key", key), zap.String("dropped", prev.path), zap.String("kept", r.path))
			report.stats(prev.kind).Skipped++
			out[i] = r
			continue
		}
		index[key] = len(out)
		out = append(out, r)
	}
	return out
}

// writeFollowUps schreibt Beziehungen und Dateiherkunft der erfolgreich synchronisierten Datensätze.
func (s *Synchronizer) writeFollowUps(ctx context.Context, log *zap.Logger, synced []*syncRecord) int {
	if len(synced) == 0 {
		return 0
	}
	now := s.now()
	var (
		rels  []models.Relationship
		files []models.ContentFile
	)
	for _, r := range synced {
		rels = append(rels, r.rels...)
		f := r.file
		f.SyncedAt = now
		files = append(files, f)
	}

	written := 0
	for _, batch := range chunk(rels, s.BatchSize) {
		if err := s.Store.UpsertRelationships(ctx, batch); err != nil {
			log.Warn("Beziehungen konnten nicht gespeichert werden", zap.Int("records", len(batch)), zap.Error(err))
			continue
		}
		written += len(batch)
	}
	for _, batch := range chunk(files, s.BatchSize) {
		if err := s.Store.RecordFiles(ctx, batch); err != nil {
			log.Warn("Dateiherkunft konnte nicht gespeichert werden", zap.Int("records", len(batch)), zap.Error(err))
		}
	}
	return written
}

func selectKinds(types []string) ([]string, error) {
	if len(types) == 0 {
		return ContentKinds, nil
	}
	var kinds []string
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		found := false
		for _, k := range ContentKinds {
			if k == t {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown content type %q (expected one of %s)", t, strings.Join(ContentKinds, ", "))
		}
		kinds = append(kinds, t)
	}
	return kinds, nil
}

// rowMetadata übernimmt metadata und ergänzt category (Dokument vor Verzeichnis) und source.
func rowMetadata(doc map[string]any, category string) map[string]any {
	md := map[string]any{}
	if src, ok := doc["metadata"].(map[string]any); ok {
		for k, v := range src {
			md[k] = v
		}
	}
	if stringField(md, "category") == "" {
		if c := firstNonEmpty(stringField(doc, "category"), category); c != "" {
			md["category"] = c
		}
	}
	if _, ok := md["source"]; !ok {
		md["source"] = "json-file"
	}
	return md
}

func rowStatus(doc map[string]any) string {
	switch s := stringField(doc, "status"); s {
	case models.StatusActive, models.StatusDraft, models.StatusArchived:
		return s
	}
	return models.StatusActive
}

func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
