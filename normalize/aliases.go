package normalize

import "strings"

// Kategorien mit eigenem Contract.
const (
	CategoryAssessments  = "assessments-screeners"
	CategorySupport      = "support-community"
	CategoryKnowledgeHub = "knowledge-hub"
	CategoryCrisis       = "crisis-helplines"
	CategoryEducation    = "education-guides"
	CategoryDigitalTools = "digital-tools"

	sourceJSONFile  = "json-file"
	anonymousAuthor = "anonymous"
)

// Legacy-Kategorienamen, die vor der Validierung umgeschrieben werden.
var categoryAliases = map[string]string{
	"articles-blogs":  CategoryKnowledgeHub,
	"articles-guides": CategoryKnowledgeHub,
	"articles":        CategoryKnowledgeHub,
}

// CanonicalCategory normalisiert Schreibweise und löst Legacy-Aliase auf.
func CanonicalCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if canonical, ok := categoryAliases[c]; ok {
		return canonical
	}
	return c
}
