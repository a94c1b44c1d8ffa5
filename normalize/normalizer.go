package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Source beschreibt, woher ein Dokument stammt. Beide Felder sind optional.
type Source struct {
	FileName string
	Category string
}

// ValidatedResource ist das Ergebnis einer erfolgreichen Normalisierung.
type ValidatedResource struct {
	Slug     string
	Name     string
	Category string
	Pillar   string
	Resource Resource
	Document map[string]any
}

// Normalizer bringt rohe JSON-Dokumente in die kanonische Form und prüft sie
// gegen den Contract ihrer Kategorie. Ein Normalizer ist goroutine-sicher.
type Normalizer struct {
	validate *validator.Validate
}

func New() *Normalizer {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return &Normalizer{validate: v}
}

// Normalize normalisiert doc. Die Eingabe wird nicht verändert.
func (n *Normalizer) Normalize(doc map[string]any, src Source) (*ValidatedResource, error) {
	if doc == nil {
		return nil, &ValidationError{Slug: fileSlug(src.FileName), Err: errors.New("document is empty")}
	}
	out, _ := cloneValue(doc).(map[string]any)
	out = unwrapRow(out)

	fs := fileSlug(src.FileName)
	md := metadataOf(out)
	category := CanonicalCategory(firstString(str(md, "category"), str(out, "category"), src.Category))
	if category == "" {
		return nil, &ValidationError{Slug: firstString(str(out, "slug"), fs), Err: ErrMissingCategory}
	}
	md["category"] = category
	if _, ok := out["category"]; ok {
		out["category"] = category
	}

	if category == CategoryKnowledgeHub {
		transformKnowledgeHub(out, fs)
	} else if str(out, "slug") == "" && fs != "" {
		out["slug"] = fs
	}

	slug := str(out, "slug")
	if str(out, "name") == "" {
		if name := firstString(str(out, "title"), titleFromSlug(slug)); name != "" {
			out["name"] = name
		}
	}
	if str(out, "description") == "" {
		if summary := str(out, "summary"); summary != "" {
			out["description"] = summary
		}
	}
	if str(out, "kind") == "" {
		out["kind"] = "resource"
	}
	if str(md, "source") == "" {
		md["source"] = sourceJSONFile
	}

	newResource, ok := contracts[category]
	if !ok {
		return nil, &ValidationError{Slug: slug, Category: category, Err: fmt.Errorf("%w %q", ErrUnknownCategory, category)}
	}
	res := newResource()
	if fields := n.decode(out, res); len(fields) > 0 {
		return nil, &ValidationError{Slug: slug, Category: category, Fields: fields}
	}

	vr := &ValidatedResource{
		Slug:     slug,
		Name:     str(out, "name"),
		Category: category,
		Resource: res,
		Document: out,
	}
	if kh, ok := res.(*KnowledgeHubResource); ok {
		vr.Pillar = kh.Pillar
	}
	return vr, nil
}

func (n *Normalizer) decode(doc map[string]any, res Resource) []FieldError {
	data, err := json.Marshal(doc)
	if err != nil {
		return []FieldError{{Message: err.Error()}}
	}
	if err := json.Unmarshal(data, res); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return []FieldError{{Field: typeErr.Field, Message: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value)}}
		}
		return []FieldError{{Message: err.Error()}}
	}
	if err := n.validate.Struct(res); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []FieldError{{Message: err.Error()}}
		}
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fieldPath(fe.Namespace()), Message: fieldMessage(fe)})
		}
		return fields
	}
	return nil
}

// fieldPath entfernt den Typnamen und eingebettete Base-Segmente aus dem Namespace.
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	kept := parts[:0]
	for i, p := range parts {
		if i == 0 || p == "Base" {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, ".")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "eq":
		return "must be " + fe.Param()
	}
	return "failed " + fe.Tag()
}

// unwrapRow entpackt eine Datenbankzeile, deren content das eigentliche Dokument hält.
// Felder der Zeile füllen nur Lücken.
func unwrapRow(doc map[string]any) map[string]any {
	content, ok := doc["content"].(map[string]any)
	if !ok || str(doc, "type") == "" {
		return doc
	}
	if _, hasID := doc["id"]; !hasID && str(doc, "slug") == "" {
		return doc
	}
	if str(content, "slug") == "" && str(doc, "slug") != "" {
		content["slug"] = str(doc, "slug")
	}
	if str(content, "name") == "" && str(content, "title") == "" && str(doc, "title") != "" {
		content["name"] = str(doc, "title")
	}
	if str(content, "description") == "" && str(doc, "description") != "" {
		content["description"] = str(doc, "description")
	}
	if rowMD := obj(doc, "metadata"); rowMD != nil {
		md := metadataOf(content)
		for k, v := range rowMD {
			if _, exists := md[k]; !exists {
				md[k] = v
			}
		}
	}
	return content
}

func fileSlug(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
