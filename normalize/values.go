package normalize

import "strings"

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	}
	return v
}

// str liefert einen getrimmten String-Wert oder "".
func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

// firstString gibt den ersten nicht-leeren Kandidaten zurück.
func firstString(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

func obj(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	o, _ := m[key].(map[string]any)
	return o
}

// metadataOf liefert die Metadaten-Map eines Dokuments und legt sie bei Bedarf an.
func metadataOf(doc map[string]any) map[string]any {
	md, ok := doc["metadata"].(map[string]any)
	if !ok {
		md = map[string]any{}
		doc["metadata"] = md
	}
	return md
}
