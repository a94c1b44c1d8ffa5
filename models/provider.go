package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Provider ist ein Eintrag im Behandler-Verzeichnis. Viele Felder stammen aus
// Fremdquellen und können fehlen, deshalb die Pointer.
type Provider struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Slug        string  `json:"slug" gorm:"uniqueIndex;not null"`
	NPI         string  `json:"npi,omitempty" gorm:"column:npi;index"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	FullName    string  `json:"full_name" gorm:"index"`
	Credentials string  `json:"credentials,omitempty"`
	Gender      string  `json:"gender,omitempty" gorm:"size:1;index"`

	City  string `json:"city,omitempty" gorm:"index"`
	State string `json:"state,omitempty" gorm:"size:2;index"`
	Zip   string `json:"zip,omitempty" gorm:"size:10;index"`
	Phone string `json:"phone,omitempty"`

	Specialties  datatypes.JSON `json:"specialties"`
	TaxonomyCode *string        `json:"taxonomy_code"`

	AcceptingNewPatients bool `json:"accepting_new_patients" gorm:"index"`
	TelehealthAvailable  bool `json:"telehealth_available" gorm:"index"`
}

func (Provider) TableName() string { return "providers" }

// BeforeCreate vergibt die ID, falls keine gesetzt ist.
func (p *Provider) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
