package storage

import (
	"context"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mindhub/models"
)

// EntityStore kapselt den Mirror-Store für Entities, Beziehungen und Dateiherkunft.
type EntityStore struct {
	db *gorm.DB
}

func NewEntityStore(db *gorm.DB) *EntityStore {
	return &EntityStore{db: db}
}

// EntityFilter schränkt ListEntities ein. Leere Felder filtern nicht.
type EntityFilter struct {
	Type     string
	Category string
	Limit    int
	Offset   int
}

// UpsertEntities schreibt alle Datensätze in einem Statement. Existiert (type, slug)
// bereits, wird die Zeile vollständig überschrieben.
func (s *EntityStore) UpsertEntities(ctx context.Context, entities []models.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "type"}, {Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "content", "metadata", "status", "updated_at"}),
	}).Create(&entities).Error
}

// ListEntities liefert aktive Entities sortiert nach Slug sowie die Gesamtanzahl.
func (s *EntityStore) ListEntities(ctx context.Context, f EntityFilter) ([]models.Entity, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("status = ?", models.StatusActive)
		if f.Type != "" {
			db = db.Where("type = ?", f.Type)
		}
		if f.Category != "" {
			db = db.Where(datatypes.JSONQuery("metadata").Equals(f.Category, "category"))
		}
		return db
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Entity{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := s.db.WithContext(ctx).Scopes(scope).Order("slug").Order("type")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var entities []models.Entity
	if err := q.Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return entities, total, nil
}

// GetEntity sucht ein aktives Entity über seinen natürlichen Schlüssel.
func (s *EntityStore) GetEntity(ctx context.Context, entityType, slug string) (*models.Entity, error) {
	var e models.Entity
	err := s.db.WithContext(ctx).
		Where("type = ? AND slug = ? AND status = ?", entityType, slug, models.StatusActive).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertRelationships legt Kanten an. Eine bestehende Kante behält ihre ID, nur die Metadaten ändern sich.
func (s *EntityStore) UpsertRelationships(ctx context.Context, rels []models.Relationship) error {
	if len(rels) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "source_type"}, {Name: "source_slug"},
			{Name: "target_type"}, {Name: "target_slug"},
			{Name: "relation"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"metadata", "updated_at"}),
	}).Create(&rels).Error
}

// ListRelationships liefert alle ein- und ausgehenden Kanten eines Entity.
func (s *EntityStore) ListRelationships(ctx context.Context, entityType, slug string) ([]models.Relationship, error) {
	var rels []models.Relationship
	err := s.db.WithContext(ctx).
		Where("(source_type = ? AND source_slug = ?) OR (target_type = ? AND target_slug = ?)", entityType, slug, entityType, slug).
		Order("relation").Order("target_type").Order("target_slug").
		Find(&rels).Error
	return rels, err
}

// RecordFiles speichert, aus welcher Datei ein Entity zuletzt synchronisiert wurde.
func (s *EntityStore) RecordFiles(ctx context.Context, files []models.ContentFile) error {
	if len(files) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"entity_type", "slug", "checksum", "synced_at", "updated_at"}),
	}).Create(&files).Error
}

// CountByType zählt aktive Entities je Typ.
func (s *EntityStore) CountByType(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Type  string
		Count int64
	}
	err := s.db.WithContext(ctx).Model(&models.Entity{}).
		Select("type, COUNT(*) AS count").
		Where("status = ?", models.StatusActive).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Type] = r.Count
	}
	return counts, nil
}
