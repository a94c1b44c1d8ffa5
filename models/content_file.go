package models

import "time"

// ContentFile speichert die Herkunft eines Entity: aus welcher Datei es zuletzt synchronisiert wurde.
type ContentFile struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Path       string    `json:"path" gorm:"uniqueIndex;not null"`
	EntityType string    `json:"entity_type" gorm:"index"`
	Slug       string    `json:"slug" gorm:"index"`
	Checksum   string    `json:"checksum" gorm:"size:64"`
	SyncedAt   time.Time `json:"synced_at"`
}

func (ContentFile) TableName() string { return "content_files" }
