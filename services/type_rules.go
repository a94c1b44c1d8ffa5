package services

import (
	"path/filepath"
	"strings"

	"mindhub/models"
)

// TypeRule ordnet Pfaden, die Marker enthalten, einen Entity-Typ zu.
type TypeRule struct {
	Marker string
	Type   models.EntityType
}

// DefaultTypeRules werden der Reihe nach geprüft, die erste passende Regel gewinnt.
// Spezifische Unterordner stehen deshalb vor ihrem Elternordner.
var DefaultTypeRules = []TypeRule{
	{"/treatments/medications/", models.TypeMedication},
	{"/treatments/therapy/", models.TypeTherapy},
	{"/treatments/therapies/", models.TypeTherapy},
	{"/treatments/interventional/", models.TypeInterventional},
	{"/treatments/investigational/", models.TypeInvestigational},
	{"/treatments/alternative/", models.TypeAlternative},
	{"/treatments/supplements/", models.TypeSupplement},
	{"/treatments/", models.TypeTreatment},
	{"/conditions/", models.TypeCondition},
	{"/resources/", models.TypeResource},
}

// InferType bestimmt den Typ aus dem Pfad, ohne Treffer ist er "unknown".
func InferType(rules []TypeRule, path string) models.EntityType {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for _, r := range rules {
		if strings.Contains(p, r.Marker) {
			return r.Type
		}
	}
	return models.TypeUnknown
}

// categoryFromPath liefert das Segment direkt unter dem Typ-Ordner, "" für Dateien auf oberster Ebene.
func categoryFromPath(rel string) string {
	rel = filepath.ToSlash(rel)
	if i := strings.Index(rel, "/"); i > 0 {
		return rel[:i]
	}
	return ""
}
