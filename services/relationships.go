package services

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"

	"mindhub/models"
)

// extractRelationships sammelt die Kanten eines Dokuments. Unterstützt werden
// "relationships" als Objektliste sowie die Slug-Listen "related_treatments" und "related_conditions".
func extractRelationships(source models.EntityType, slug string, doc map[string]any) []models.Relationship {
	var rels []models.Relationship
	add := func(targetType, targetSlug, relation string, meta map[string]any) {
		targetType = strings.TrimSpace(targetType)
		targetSlug = strings.TrimSpace(targetSlug)
		if targetType == "" || targetSlug == "" {
			return
		}
		rel := models.Relationship{
			SourceType: string(source),
			SourceSlug: slug,
			TargetType: targetType,
			TargetSlug: targetSlug,
			Relation:   relation,
		}
		if len(meta) > 0 {
			if data, err := json.Marshal(meta); err == nil {
				rel.Metadata = datatypes.JSON(data)
			}
		}
		rels = append(rels, rel)
	}

	if items, ok := doc["relationships"].([]any); ok {
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			relation := stringField(m, "relation")
			if relation == "" {
				relation = "related"
			}
			meta, _ := m["metadata"].(map[string]any)
			add(firstNonEmpty(stringField(m, "target_type"), stringField(m, "type")),
				firstNonEmpty(stringField(m, "target_slug"), stringField(m, "slug")),
				relation, meta)
		}
	}
	for _, s := range stringList(doc["related_treatments"]) {
		add(string(models.TypeTreatment), s, "related_treatment", nil)
	}
	for _, s := range stringList(doc["related_conditions"]) {
		add(string(models.TypeCondition), s, "related_condition", nil)
	}
	return dedupRelationships(rels)
}

func dedupRelationships(rels []models.Relationship) []models.Relationship {
	seen := make(map[string]bool, len(rels))
	out := rels[:0]
	for _, r := range rels {
		key := r.SourceType + "|" + r.SourceSlug + "|" + r.TargetType + "|" + r.TargetSlug + "|" + r.Relation
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case string:
			out = append(out, t)
		case map[string]any:
			out = append(out, stringField(t, "slug"))
		}
	}
	return out
}
