package models

import (
	"time"

	"gorm.io/datatypes"
)

// Relationship modelliert eine gerichtete Kante zwischen zwei Entities (z.B. condition -> treatment).
type Relationship struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SourceType string `json:"source_type" gorm:"index:idx_relationships_unique_edge,unique;size:64"`
	SourceSlug string `json:"source_slug" gorm:"index:idx_relationships_unique_edge,unique;size:255"`
	TargetType string `json:"target_type" gorm:"index:idx_relationships_unique_edge,unique;size:64"`
	TargetSlug string `json:"target_slug" gorm:"index:idx_relationships_unique_edge,unique;size:255"`
	Relation   string `json:"relation" gorm:"index:idx_relationships_unique_edge,unique;size:64"`

	Metadata datatypes.JSON `json:"metadata,omitempty"`
}

func (Relationship) TableName() string { return "relationships" }
