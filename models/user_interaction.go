package models

import (
	"time"

	"gorm.io/datatypes"
)

// UserInteraction ist für spätere Auswertungen (Bookmarks, Views) angelegt.
type UserInteraction struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	CreatedAt  time.Time      `json:"created_at"`
	UserID     string         `json:"user_id" gorm:"index;not null"`
	EntityType string         `json:"entity_type" gorm:"index"`
	EntitySlug string         `json:"entity_slug" gorm:"index"`
	Action     string         `json:"action" gorm:"size:32"`
	Payload    datatypes.JSON `json:"payload,omitempty"`
}

func (UserInteraction) TableName() string { return "user_interactions" }
