package storage

import (
	"context"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mindhub/models"
)

// ProviderFilter enthält bereits validierte Suchparameter.
type ProviderFilter struct {
	Query                string
	State                string
	City                 string
	Zip                  string
	Gender               string
	Specializations      []string
	AcceptingNewPatients *bool
	Telehealth           *bool
	Limit                int
	Offset               int
}

type ProviderStore struct {
	db *gorm.DB
}

func NewProviderStore(db *gorm.DB) *ProviderStore {
	return &ProviderStore{db: db}
}

// SearchProviders liefert eine Seite Treffer, sortiert nach Slug, und die Anzahl aller Treffer des Filters.
func (s *ProviderStore) SearchProviders(ctx context.Context, f ProviderFilter) ([]models.Provider, int64, error) {
	scope := providerScope(f)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Provider{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var providers []models.Provider
	err := s.db.WithContext(ctx).Scopes(scope).
		Order("slug").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&providers).Error
	if err != nil {
		return nil, 0, err
	}
	return providers, total, nil
}

// UpsertProviders schreibt Verzeichniseinträge, Schlüssel ist der Slug.
func (s *ProviderStore) UpsertProviders(ctx context.Context, providers []models.Provider) error {
	if len(providers) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		UpdateAll: true,
	}).Create(&providers).Error
}

// providerNameExpr deckt full_name und die einzelnen Namensteile ab.
const providerNameExpr = "LOWER(COALESCE(full_name, '') || ' ' || COALESCE(first_name, '') || ' ' || COALESCE(last_name, ''))"

func providerScope(f ProviderFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.Query != "" {
			db = db.Where(providerNameExpr+" LIKE ? ESCAPE '\\'", likePattern(f.Query))
		}
		if f.City != "" {
			db = db.Where("LOWER(city) LIKE ? ESCAPE '\\'", likePattern(f.City))
		}
		if f.State != "" {
			db = db.Where("state = ?", f.State)
		}
		if f.Zip != "" {
			db = db.Where("zip = ?", f.Zip)
		}
		if f.Gender != "" {
			db = db.Where("gender = ?", f.Gender)
		}
		if f.AcceptingNewPatients != nil {
			db = db.Where("accepting_new_patients = ?", *f.AcceptingNewPatients)
		}
		if f.Telehealth != nil {
			db = db.Where("telehealth_available = ?", *f.Telehealth)
		}
		for _, term := range f.Specializations {
			db = db.Where(datatypes.JSONArrayQuery("specialties").Contains(term))
		}
		return db
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern baut ein case-insensitives Teilstring-Muster, Wildcards im Suchtext werden maskiert.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
