package models

// All listet alle Modelle für die Auto-Migration.
func All() []any {
	return []any{&Entity{}, &Relationship{}, &ContentFile{}, &UserInteraction{}, &Provider{}}
}
