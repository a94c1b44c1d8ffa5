package normalize

import (
	"net/url"
	"path"
	"strings"
)

// Pillars des Knowledge Hub.
const (
	PillarResearch  = "research-and-science"
	PillarCommunity = "community-and-stories"
	PillarHowTo     = "how-to-guides"
)

var pillarByArticleType = map[string]string{
	"research":         PillarResearch,
	"latest":           PillarResearch,
	"lived-experience": PillarCommunity,
	"how-to":           PillarHowTo,
}

// PillarFor bestimmt den Pillar aus article_type. Ohne article_type entscheidet der Slug.
func PillarFor(articleType, slug string) string {
	at := strings.ToLower(strings.TrimSpace(articleType))
	if at == "" {
		if strings.Contains(strings.ToLower(slug), "community") {
			return PillarCommunity
		}
		return PillarHowTo
	}
	if p, ok := pillarByArticleType[at]; ok {
		return p
	}
	return PillarHowTo
}

// transformKnowledgeHub bringt einen Artikel in die Knowledge-Hub-Form.
// Die Autorenangabe wird immer zuletzt überschrieben.
func transformKnowledgeHub(doc map[string]any, fileSlug string) {
	md := metadataOf(doc)

	slug := firstString(str(doc, "slug"), canonicalSlug(doc), fileSlug)
	doc["slug"] = slug

	summary := str(doc, "summary")
	mdDesc := str(md, "description")
	excerpt := str(doc, "excerpt")

	if name := firstString(str(doc, "name"), str(doc, "title"), summary, mdDesc, excerpt); name != "" {
		doc["name"] = name
	}
	if desc := firstString(str(doc, "description"), summary, mdDesc, excerpt); desc != "" {
		doc["description"] = desc
	}
	if sum := firstString(summary, str(doc, "description"), mdDesc, excerpt); sum != "" {
		doc["summary"] = sum
	}

	pillar := firstString(str(doc, "pillar"), str(md, "pillar"))
	if pillar == "" {
		pillar = PillarFor(firstString(str(md, "article_type"), str(doc, "article_type")), slug)
	}
	doc["pillar"] = pillar
	md["pillar"] = pillar

	if !hasBody(doc) {
		if blocks := legacyBody(doc); len(blocks) > 0 {
			doc["body"] = blocks
		}
	}

	stripAsterisks(doc)

	doc["author"] = anonymousAuthor
	doc["authors"] = []any{anonymousAuthor}
}

func canonicalSlug(doc map[string]any) string {
	seo := obj(doc, "seo")
	raw := firstString(str(seo, "canonical_url"), str(seo, "canonicalUrl"), str(seo, "canonical"))
	if raw == "" {
		return ""
	}
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	base := path.Base(strings.TrimRight(p, "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

func hasBody(doc map[string]any) bool {
	body, ok := doc["body"].([]any)
	return ok && len(body) > 0
}

// legacyBody baut einen strukturierten Body aus introduction, sections und conclusion.
func legacyBody(doc map[string]any) []any {
	var blocks []any
	if intro := str(doc, "introduction"); intro != "" {
		blocks = append(blocks, chunkBlocks(intro)...)
	}
	if sections, ok := doc["sections"].([]any); ok {
		for _, s := range sections {
			blocks = append(blocks, sectionBlocks(s)...)
		}
	}
	if conclusion := str(doc, "conclusion"); conclusion != "" {
		blocks = append(blocks, chunkBlocks(conclusion)...)
	}
	if links := relatedLinks(doc["related_links"]); len(links) > 0 {
		blocks = append(blocks, map[string]any{"type": "related-links", "links": links})
	}
	return blocks
}

func sectionBlocks(s any) []any {
	switch t := s.(type) {
	case string:
		return chunkBlocks(t)
	case map[string]any:
		var blocks []any
		if title := firstString(str(t, "title"), str(t, "heading")); title != "" {
			blocks = append(blocks, headingBlock(title, 2))
		}
		content := t["content"]
		if content == nil {
			content = t["body"]
		}
		switch c := content.(type) {
		case string:
			blocks = append(blocks, chunkBlocks(c)...)
		case []any:
			items := make([]any, 0, len(c))
			for _, item := range c {
				if text, ok := item.(string); ok && strings.TrimSpace(text) != "" {
					items = append(items, strings.TrimSpace(text))
				}
			}
			if len(items) > 0 {
				blocks = append(blocks, map[string]any{"type": "list", "items": items})
			}
		}
		return blocks
	}
	return nil
}

func relatedLinks(v any) []any {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	links := make([]any, 0, len(raw))
	for _, item := range raw {
		switch t := item.(type) {
		case string:
			if t = strings.TrimSpace(t); t != "" {
				links = append(links, map[string]any{"url": t})
			}
		case map[string]any:
			u := firstString(str(t, "url"), str(t, "href"))
			if u == "" {
				continue
			}
			link := map[string]any{"url": u}
			if title := firstString(str(t, "title"), str(t, "label")); title != "" {
				link["title"] = title
			}
			links = append(links, link)
		}
	}
	return links
}
