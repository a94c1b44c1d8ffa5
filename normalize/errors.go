package normalize

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingCategory = errors.New("category missing in document and directory")
	ErrUnknownCategory = errors.New("no contract for category")
)

// FieldError beschreibt ein einzelnes fehlerhaftes Feld.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError wird zurückgegeben, wenn ein Dokument seinen Contract nicht erfüllt.
// Slug ist gesetzt, soweit er ermittelt werden konnte.
type ValidationError struct {
	Slug     string       `json:"slug"`
	Category string       `json:"category,omitempty"`
	Fields   []FieldError `json:"fields,omitempty"`
	Err      error        `json:"-"`
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "validation failed for %q", e.Slug)
	if e.Category != "" {
		fmt.Fprintf(&b, " (%s)", e.Category)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	for i, f := range e.Fields {
		if i == 0 && e.Err == nil {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		if f.Field != "" {
			b.WriteString(f.Field)
			b.WriteString(" ")
		}
		b.WriteString(f.Message)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error { return e.Err }
