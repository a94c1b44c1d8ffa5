package services

import (
	"strings"

	"mindhub/models"
)

var treatmentTypeByCategory = map[string]models.EntityType{
	"medications":     models.TypeMedication,
	"interventional":  models.TypeInterventional,
	"investigational": models.TypeInvestigational,
	"alternative":     models.TypeAlternative,
	"therapy":         models.TypeTherapy,
	"supplements":     models.TypeSupplement,
}

// TreatmentEntityType bildet den Kategorie-Ordner einer Behandlung auf ihren Typ ab.
func TreatmentEntityType(category string) models.EntityType {
	if t, ok := treatmentTypeByCategory[strings.ToLower(category)]; ok {
		return t
	}
	return models.TypeTreatment
}

type EnvelopeSchema struct {
	EntityType string `json:"entity_type"`
}

// EntityEnvelope verpackt ein Dokument aus dem Dateisystem wie eine Zeile des Mirror-Stores.
type EntityEnvelope struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Slug        string         `json:"slug"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Content     map[string]any `json:"content"`
	Metadata    map[string]any `json:"metadata"`
	Status      string         `json:"status"`
	Schema      EnvelopeSchema `json:"schema"`
}

// NewEnvelope baut den Umschlag. Die ID ist synthetisch: "json-" + Slug.
func NewEnvelope(slug, category string, entityType models.EntityType, doc map[string]any) EntityEnvelope {
	if s := stringField(doc, "slug"); s != "" {
		slug = s
	}
	return EntityEnvelope{
		ID:          "json-" + slug,
		Type:        string(entityType),
		Slug:        slug,
		Title:       firstNonEmpty(stringField(doc, "name"), stringField(doc, "title"), slug),
		Description: firstNonEmpty(stringField(doc, "description"), stringField(doc, "summary")),
		Content:     doc,
		Metadata:    rowMetadata(doc, category),
		Status:      rowStatus(doc),
		Schema:      EnvelopeSchema{EntityType: string(entityType)},
	}
}
