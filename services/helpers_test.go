package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mindhub/config"
	"mindhub/models"
	"mindhub/normalize"
	"mindhub/storage"
)

func writeJSON(t *testing.T, root, rel, body string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "mindhub.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db))
	return db
}

func newTestSynchronizer(root string, store EntityUpserter, batchSize int) *Synchronizer {
	cfg := &config.Config{ContentRoot: root, SyncBatchSize: batchSize, SyncConcurrency: 5}
	return NewSynchronizer(cfg, store, normalize.New(), zap.NewNop())
}

// fakeStore zeichnet Aufrufe auf und lässt Batches mit failSlug scheitern.
type fakeStore struct {
	mu       sync.Mutex
	calls    int
	failSlug string
	entities []models.Entity
	rels     []models.Relationship
	files    []models.ContentFile
}

func (f *fakeStore) UpsertEntities(_ context.Context, entities []models.Entity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, e := range entities {
		if f.failSlug != "" && e.Slug == f.failSlug {
			return errors.New("connection reset")
		}
	}
	f.entities = append(f.entities, entities...)
	return nil
}

func (f *fakeStore) UpsertRelationships(_ context.Context, rels []models.Relationship) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rels = append(f.rels, rels...)
	return nil
}

func (f *fakeStore) RecordFiles(_ context.Context, files []models.ContentFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append(f.files, files...)
	return nil
}

func (f *fakeStore) slugs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entities))
	for _, e := range f.entities {
		out = append(out, e.Slug)
	}
	sort.Strings(out)
	return out
}
