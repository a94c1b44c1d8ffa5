package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrEmptyDocument: Datei ist leer oder enthält nur Whitespace.
	ErrEmptyDocument = errors.New("empty document")
	// ErrNotObject: gültiges JSON, aber kein Objekt auf oberster Ebene.
	ErrNotObject = errors.New("document is not a JSON object")
)

// ParseDocument dekodiert ein JSON-Objekt. Zahlen bleiben json.Number, damit
// IDs und Codes beim erneuten Serialisieren nicht verfälscht werden.
func ParseDocument(data []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyDocument
	}
	if trimmed[0] != '{' {
		if json.Valid(trimmed) {
			return nil, ErrNotObject
		}
		return nil, errors.New("invalid json: unexpected leading token")
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("invalid json: trailing data after object")
	}
	return doc, nil
}

// ReadDocument liest und dekodiert eine JSON-Datei.
func ReadDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDocument(data)
}
