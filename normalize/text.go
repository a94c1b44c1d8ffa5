package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	blankLine  = regexp.MustCompile(`\n[ \t]*\n`)
	listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)
	whitespace = regexp.MustCompile(`\s+`)
)

// titleFromSlug macht aus "generalized-anxiety_disorder" "Generalized Anxiety Disorder".
// Ein Caser ist nicht goroutine-sicher, deshalb wird er pro Aufruf erzeugt.
func titleFromSlug(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// splitChunks teilt Freitext an Leerzeilen (NFC-normalisiert).
func splitChunks(text string) []string {
	text = norm.NFC.String(strings.ReplaceAll(text, "\r\n", "\n"))
	var chunks []string
	for _, c := range blankLine.Split(text, -1) {
		if c = strings.TrimSpace(c); c != "" {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

// chunkBlocks wandelt einen Textabschnitt in Heading-, List- oder Paragraph-Blöcke.
func chunkBlocks(text string) []any {
	var blocks []any
	for _, chunk := range splitChunks(text) {
		lines := strings.Split(chunk, "\n")
		if level, heading := markdownHeading(chunk); level > 0 && len(lines) == 1 {
			blocks = append(blocks, headingBlock(heading, level))
			continue
		}
		if items, ok := listItems(lines); ok {
			blocks = append(blocks, map[string]any{"type": "list", "items": items})
			continue
		}
		blocks = append(blocks, paragraphBlock(collapse(chunk)))
	}
	return blocks
}

func listItems(lines []string) ([]any, bool) {
	items := make([]any, 0, len(lines))
	for _, l := range lines {
		if !listMarker.MatchString(l) {
			return nil, false
		}
		items = append(items, strings.TrimSpace(listMarker.ReplaceAllString(l, "")))
	}
	return items, len(items) > 0
}

func markdownHeading(line string) (int, string) {
	trimmed := strings.TrimLeft(line, "#")
	level := len(line) - len(trimmed)
	if level == 0 || level > 6 || !strings.HasPrefix(trimmed, " ") {
		return 0, ""
	}
	return level, strings.TrimSpace(trimmed)
}

func headingBlock(text string, level int) map[string]any {
	return map[string]any{"type": "heading", "text": text, "level": level}
}

func paragraphBlock(text string) map[string]any {
	return map[string]any{"type": "paragraph", "text": text}
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// stripAsterisks entfernt rekursiv alle '*' aus String-Werten.
func stripAsterisks(v any) any {
	switch t := v.(type) {
	case string:
		return strings.ReplaceAll(t, "*", "")
	case map[string]any:
		for k, val := range t {
			t[k] = stripAsterisks(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = stripAsterisks(val)
		}
		return t
	}
	return v
}
