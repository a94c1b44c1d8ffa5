package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entity ist der kanonische, normalisierte Datensatz einer JSON-Quelldatei.
// (type, slug) ist der natürliche Schlüssel für Upserts.
type Entity struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Type        string `json:"type" gorm:"not null;uniqueIndex:idx_entities_type_slug,priority:1"`
	Slug        string `json:"slug" gorm:"not null;uniqueIndex:idx_entities_type_slug,priority:2"`
	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description,omitempty" gorm:"type:text"`

	// Content hält das Originaldokument unverändert für die Renderer.
	Content  datatypes.JSON `json:"content"`
	Metadata datatypes.JSON `json:"metadata"`
	Status   string         `json:"status" gorm:"not null;default:'active';index"`
}

// TableName gibt explizit den Tabellennamen an.
func (Entity) TableName() string {
	return "entities"
}

// BeforeCreate vergibt die ID, falls der Aufrufer keine gesetzt hat.
func (e *Entity) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
