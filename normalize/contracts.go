package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Resource ist eine der Kategorie-Varianten. Alle teilen sich Base.
type Resource interface {
	Common() *Base
}

// Metadata enthält die Klassifikation eines Dokuments.
type Metadata struct {
	Category    string `json:"category" validate:"required"`
	Subcategory string `json:"subcategory,omitempty"`
	Source      string `json:"source,omitempty"`
	ArticleType string `json:"article_type,omitempty"`
	Pillar      string `json:"pillar,omitempty"`
	Description string `json:"description,omitempty"`
}

// Section ist ein Abschnitt im Legacy-Format: entweder reiner Text oder ein Objekt.
type Section struct {
	Title   string `json:"title,omitempty"`
	Heading string `json:"heading,omitempty"`
	Content any    `json:"content,omitempty"`
	Body    any    `json:"body,omitempty"`
}

func (s *Section) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*s = Section{Content: text}
		return nil
	}
	type plain Section
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.New("section must be a string or an object")
	}
	*s = Section(p)
	return nil
}

// Base sind die gemeinsamen Felder aller Contracts. Nur Kind, Slug und Name sind Pflicht.
type Base struct {
	Kind         string    `json:"kind" validate:"required"`
	Slug         string    `json:"slug" validate:"required"`
	Name         string    `json:"name" validate:"required"`
	Description  string    `json:"description,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Metadata     Metadata  `json:"metadata"`
	Sections     []Section `json:"sections,omitempty"`
	References   []any     `json:"references,omitempty"`
	LastReviewed string    `json:"last_reviewed,omitempty"`
}

func (b *Base) Common() *Base { return b }

// ItemSet akzeptiert sowohl das alte Array-Format als auch das neue, nach Namen
// geschlüsselte Objekt-Format.
type ItemSet struct {
	List  []any
	Keyed map[string]any
}

func (s *ItemSet) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		return json.Unmarshal(trimmed, &s.List)
	case len(trimmed) > 0 && trimmed[0] == '{':
		return json.Unmarshal(trimmed, &s.Keyed)
	}
	return errors.New("must be an array or an object keyed by name")
}

func (s ItemSet) MarshalJSON() ([]byte, error) {
	if s.Keyed != nil {
		return json.Marshal(s.Keyed)
	}
	return json.Marshal(s.List)
}

// Len zählt Einträge unabhängig vom Format.
func (s *ItemSet) Len() int {
	if s == nil {
		return 0
	}
	if s.Keyed != nil {
		return len(s.Keyed)
	}
	return len(s.List)
}

type AssessmentResource struct {
	Base
	Items     *ItemSet `json:"items,omitempty"`
	Questions *ItemSet `json:"questions,omitempty"`
	Scoring   *ItemSet `json:"scoring,omitempty"`
	TimeFrame string   `json:"time_frame,omitempty"`
}

type SupportCommunityResource struct {
	Base
	Format   string `json:"format,omitempty"`
	Website  string `json:"website,omitempty"`
	Meetings []any  `json:"meetings,omitempty"`
}

// Block ist ein typisierter Inhaltsblock im strukturierten Body eines Artikels.
// Unbekannte Typen bleiben unverändert im Dokument, geprüft werden nur die vier bekannten.
type Block struct {
	Type  string   `json:"type" validate:"required"`
	Text  string   `json:"text,omitempty" validate:"required_if=Type heading,required_if=Type paragraph"`
	Level int      `json:"level,omitempty"`
	Items []string `json:"items,omitempty" validate:"required_if=Type list"`
	Links []Link   `json:"links,omitempty" validate:"required_if=Type related-links,dive"`
}

type Link struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url" validate:"required"`
}

type KnowledgeHubResource struct {
	Base
	Pillar  string   `json:"pillar" validate:"required"`
	Author  string   `json:"author" validate:"eq=anonymous"`
	Authors []string `json:"authors,omitempty" validate:"dive,eq=anonymous"`
	Excerpt string   `json:"excerpt,omitempty"`
	Body    []Block  `json:"body,omitempty" validate:"dive"`
}

type CrisisHelplineResource struct {
	Base
	Phone     string `json:"phone,omitempty"`
	TextLine  string `json:"text_line,omitempty"`
	Hours     string `json:"hours,omitempty"`
	Country   string `json:"country,omitempty"`
	Helplines []any  `json:"helplines,omitempty"`
}

type EducationGuideResource struct {
	Base
	Audience     string    `json:"audience,omitempty"`
	ReadingLevel string    `json:"reading_level,omitempty"`
	Chapters     []Section `json:"chapters,omitempty"`
}

type DigitalToolResource struct {
	Base
	URL       string   `json:"url,omitempty"`
	Platforms []string `json:"platforms,omitempty"`
	Pricing   string   `json:"pricing,omitempty"`
}

var contracts = map[string]func() Resource{
	CategoryAssessments:  func() Resource { return &AssessmentResource{} },
	CategorySupport:      func() Resource { return &SupportCommunityResource{} },
	CategoryKnowledgeHub: func() Resource { return &KnowledgeHubResource{} },
	CategoryCrisis:       func() Resource { return &CrisisHelplineResource{} },
	CategoryEducation:    func() Resource { return &EducationGuideResource{} },
	CategoryDigitalTools: func() Resource { return &DigitalToolResource{} },
}

// HasContract meldet, ob für die (kanonische) Kategorie ein Contract existiert.
func HasContract(category string) bool {
	_, ok := contracts[category]
	return ok
}
