package models

// EntityType klassifiziert einen Datensatz im Mirror-Store.
type EntityType string

const (
	TypeCondition       EntityType = "condition"
	TypeMedication      EntityType = "medication"
	TypeTherapy         EntityType = "therapy"
	TypeInterventional  EntityType = "interventional"
	TypeInvestigational EntityType = "investigational"
	TypeAlternative     EntityType = "alternative"
	TypeSupplement      EntityType = "supplement"
	TypeResource        EntityType = "resource"
	TypeProvider        EntityType = "provider"
	TypeTreatment       EntityType = "treatment"
	TypeUnknown         EntityType = "unknown"
)

var knownTypes = map[EntityType]bool{
	TypeCondition: true, TypeMedication: true, TypeTherapy: true, TypeInterventional: true,
	TypeInvestigational: true, TypeAlternative: true, TypeSupplement: true, TypeResource: true,
	TypeProvider: true, TypeTreatment: true, TypeUnknown: true,
}

// ParseEntityType liefert den Typ und ob er zur festen Aufzählung gehört.
func ParseEntityType(s string) (EntityType, bool) {
	t := EntityType(s)
	return t, knownTypes[t]
}

// Status-Werte eines Entity. Nur "active" ist öffentlich abfragbar.
const (
	StatusActive   = "active"
	StatusDraft    = "draft"
	StatusArchived = "archived"
)
