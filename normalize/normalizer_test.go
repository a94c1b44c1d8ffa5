package normalize

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, raw string) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestLegacyCategoriesConvergeOnKnowledgeHub(t *testing.T) {
	n := New()
	for _, alias := range []string{"articles-blogs", "articles-guides", "articles", "Articles"} {
		t.Run(alias, func(t *testing.T) {
			doc := mustDoc(t, `{"title":"Coping with Stress","metadata":{"category":"`+alias+`"}}`)

			vr, err := n.Normalize(doc, Source{FileName: "coping-with-stress.json"})
			require.NoError(t, err)

			assert.Equal(t, CategoryKnowledgeHub, vr.Category)
			assert.Equal(t, CategoryKnowledgeHub, vr.Document["metadata"].(map[string]any)["category"])
			assert.Equal(t, "coping-with-stress", vr.Slug)
			assert.Equal(t, "Coping with Stress", vr.Name)
			assert.Equal(t, PillarHowTo, vr.Pillar)
		})
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	doc := mustDoc(t, `{"title":"T","author":"Someone","metadata":{"category":"articles"}}`)

	_, err := New().Normalize(doc, Source{FileName: "t.json"})
	require.NoError(t, err)

	assert.Equal(t, "articles", doc["metadata"].(map[string]any)["category"])
	assert.Equal(t, "Someone", doc["author"])
}

func TestKnowledgeHubAuthorIsAlwaysAnonymous(t *testing.T) {
	doc := mustDoc(t, `{
		"slug": "my-story",
		"title": "My Story",
		"author": "Dr. Jane Example",
		"authors": ["Jane", "John"],
		"metadata": {"category": "knowledge-hub", "author": "kept in metadata"}
	}`)

	vr, err := New().Normalize(doc, Source{})
	require.NoError(t, err)

	assert.Equal(t, "anonymous", vr.Document["author"])
	assert.Equal(t, []any{"anonymous"}, vr.Document["authors"])
	kh := vr.Resource.(*KnowledgeHubResource)
	assert.Equal(t, "anonymous", kh.Author)
	assert.Equal(t, []string{"anonymous"}, kh.Authors)
}

func TestPillarFor(t *testing.T) {
	tests := []struct {
		articleType string
		slug        string
		want        string
	}{
		{"research", "any", PillarResearch},
		{"latest", "any", PillarResearch},
		{"Research", "any", PillarResearch},
		{"lived-experience", "any", PillarCommunity},
		{"how-to", "any", PillarHowTo},
		{"opinion", "community-voices", PillarHowTo},
		{"", "community-voices", PillarCommunity},
		{"", "sleep-tips", PillarHowTo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PillarFor(tt.articleType, tt.slug), "%q/%q", tt.articleType, tt.slug)
	}
}

func TestExplicitPillarWins(t *testing.T) {
	doc := mustDoc(t, `{"slug":"x","title":"X","pillar":"community-and-stories","metadata":{"category":"knowledge-hub","article_type":"research"}}`)

	vr, err := New().Normalize(doc, Source{})
	require.NoError(t, err)
	assert.Equal(t, PillarCommunity, vr.Pillar)
	assert.Equal(t, PillarCommunity, vr.Document["metadata"].(map[string]any)["pillar"])
}

func TestPillarFromArticleType(t *testing.T) {
	doc := mustDoc(t, `{"slug":"new-findings","title":"New Findings","metadata":{"category":"knowledge-hub","article_type":"latest"}}`)

	vr, err := New().Normalize(doc, Source{})
	require.NoError(t, err)
	assert.Equal(t, PillarResearch, vr.Pillar)
}

func TestKnowledgeHubSlugCascade(t *testing.T) {
	n := New()

	doc := mustDoc(t, `{"title":"Panic","seo":{"canonical_url":"https://example.org/hub/understanding-panic/"},"metadata":{"category":"knowledge-hub"}}`)
	vr, err := n.Normalize(doc, Source{FileName: "file-name.json"})
	require.NoError(t, err)
	assert.Equal(t, "understanding-panic", vr.Slug)

	doc = mustDoc(t, `{"slug":"explicit","title":"Panic","seo":{"canonical_url":"https://example.org/hub/understanding-panic"},"metadata":{"category":"knowledge-hub"}}`)
	vr, err = n.Normalize(doc, Source{FileName: "file-name.json"})
	require.NoError(t, err)
	assert.Equal(t, "explicit", vr.Slug)

	doc = mustDoc(t, `{"title":"Panic","metadata":{"category":"knowledge-hub"}}`)
	vr, err = n.Normalize(doc, Source{FileName: "file-name.json"})
	require.NoError(t, err)
	assert.Equal(t, "file-name", vr.Slug)
}

func TestKnowledgeHubNameCascade(t *testing.T) {
	doc := mustDoc(t, `{"slug":"s","excerpt":"From the excerpt","metadata":{"category":"knowledge-hub"}}`)

	vr, err := New().Normalize(doc, Source{})
	require.NoError(t, err)
	assert.Equal(t, "From the excerpt", vr.Name)
	assert.Equal(t, "From the excerpt", vr.Document["description"])
	assert.Equal(t, "From the excerpt", vr.Document["summary"])
}

func TestLegacyBodyIsBuilt(t *testing.T) {
	doc := mustDoc(t, `{
		"slug": "sleep-hygiene",
		"title": "Sleep Hygiene",
		"introduction": "Intro para one.\n\nIntro para two.",
		"sections": [
			{"title": "What helps", "content": "- sleep\n- exercise"},
			"Plain section text."
		],
		"conclusion": "**Bold** ending.",
		"related_links": [{"label": "Sleep Foundation", "href": "https://example.org/sleep"}],
		"metadata": {"category": "knowledge-hub"}
	}`)

	vr, err := New().Normalize(doc, Source{})
	require.NoError(t, err)

	body := vr.Resource.(*KnowledgeHubResource).Body
	require.Len(t, body, 7)
	assert.Equal(t, Block{Type: "paragraph", Text: "Intro para one."}, body[0])
	assert.Equal(t, Block{Type: "paragraph", Text: "Intro para two."}, body[1])
	assert.Equal(t, Block{Type: "heading", Text: "What helps", Level: 2}, body[2])
	assert.Equal(t, Block{Type: "list", Items: []string{"sleep", "exercise"}}, body[3])
	assert.Equal(t, Block{Type: "paragraph", Text: "Plain section text."}, body[4])
	assert.Equal(t, Block{Type: "paragraph", Text: "Bold ending."}, body[5])
	assert.Equal(t, "related-links", body[6].Type)
	assert.Equal(t, []Link{{Title: "Sleep Foundation", URL: "https://example.org/sleep"}}, body[6].Links)
}

func TestExistingBodyIsKept(t *testing.T) {
	doc := mustDoc(t, `{
		"slug": "x", "title": "X",
		"introduction": "ignored",
		"body": [{"type": "paragraph", "text": "Existing"}],
		"metadata": {"category": "knowledge-hub"}
	}`)

	vr, err := New().Normalize(doc, Source{})
	require.NoError(t, err)
	body := vr.Resource.(*KnowledgeHubResource).Body
	require.Len(t, body, 1)
	assert.Equal(t, "Existing", body[0].Text)
}

func TestAsterisksAreStrippedRecursively(t *testing.T) {
	doc := mustDoc(t, `{
		"slug": "x", "title": "**Bold** title",
		"tags": ["*anxiety*"],
		"metadata": {"category": "knowledge-hub", "description": "**meta**"},
		"extra": {"nested": ["a*b"]}
	}`)

	vr, err := New().Normalize(doc, Source{})
	require.NoError(t, err)
	assert.Equal(t, "Bold title", vr.Name)
	assert.Equal(t, []string{"anxiety"}, vr.Resource.Common().Tags)
	assert.Equal(t, "meta", vr.Document["metadata"].(map[string]any)["description"])
	assert.Equal(t, []any{"ab"}, vr.Document["extra"].(map[string]any)["nested"])
}

func TestInvalidBodyBlockIsRejected(t *testing.T) {
	tests := map[string]string{
		`[{"text":"no type"}]`:  "body[0].type",
		`[{"type":"paragraph"}]`: "body[0].text",
		`[{"type":"list"}]`:      "body[0].items",
	}
	for body, field := range tests {
		doc := mustDoc(t, `{"slug":"x","title":"X","body":`+body+`,"metadata":{"category":"knowledge-hub"}}`)

		_, err := New().Normalize(doc, Source{})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, body)
		assert.Equal(t, "x", verr.Slug)
		require.NotEmpty(t, verr.Fields)
		assert.Equal(t, field, verr.Fields[0].Field, body)
	}
}

func TestUnknownBlockTypesPassThrough(t *testing.T) {
	doc := mustDoc(t, `{
		"slug": "x",
		"title": "X",
		"body": [{"type":"callout","tone":"info","text":"Call 988"}, {"type":"paragraph","text":"Hello"}],
		"metadata": {"category": "knowledge-hub"}
	}`)

	vr, err := New().Normalize(doc, Source{})
	require.NoError(t, err)
	body := vr.Document["body"].([]any)
	require.Len(t, body, 2)
	assert.Equal(t, "info", body[0].(map[string]any)["tone"])
}

func TestLinksAreNotFormatChecked(t *testing.T) {
	n := New()

	vr, err := n.Normalize(mustDoc(t, `{"slug":"nami","name":"NAMI","website":"www.nami.org"}`), Source{Category: CategorySupport})
	require.NoError(t, err)
	assert.Equal(t, "www.nami.org", vr.Resource.(*SupportCommunityResource).Website)

	vr, err = n.Normalize(mustDoc(t, `{"slug":"calm","name":"Calm","url":"calm.com"}`), Source{Category: CategoryDigitalTools})
	require.NoError(t, err)
	assert.Equal(t, "calm.com", vr.Resource.(*DigitalToolResource).URL)
}

func TestNormalizationRoundTrip(t *testing.T) {
	n := New()
	doc := mustDoc(t, `{
		"title": "Finding Community",
		"introduction": "First.\n\nSecond.",
		"metadata": {"category": "articles-blogs"}
	}`)

	first, err := n.Normalize(doc, Source{FileName: "finding-community.json"})
	require.NoError(t, err)

	data, err := json.Marshal(first.Document)
	require.NoError(t, err)
	again := mustDoc(t, string(data))

	second, err := n.Normalize(again, Source{})
	require.NoError(t, err)

	assert.Equal(t, first.Slug, second.Slug)
	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, first.Category, second.Category)
	assert.Equal(t, first.Pillar, second.Pillar)
	assert.Equal(t, PillarCommunity, second.Pillar)
}

func TestAssessmentItemFormats(t *testing.T) {
	n := New()

	legacy := mustDoc(t, `{
		"slug": "phq-9", "name": "PHQ-9",
		"metadata": {"category": "assessments-screeners"},
		"items": [{"id": 1, "text": "Little interest or pleasure in doing things"}],
		"scoring": {"minimal": {"min": 0, "max": 4}, "mild": {"min": 5, "max": 9}}
	}`)
	vr, err := n.Normalize(legacy, Source{})
	require.NoError(t, err)
	a := vr.Resource.(*AssessmentResource)
	assert.Equal(t, 1, a.Items.Len())
	assert.NotNil(t, a.Scoring.Keyed)
	assert.Equal(t, 2, a.Scoring.Len())
	assert.Nil(t, a.Questions)

	keyed := mustDoc(t, `{
		"slug": "gad-7", "name": "GAD-7",
		"metadata": {"category": "assessments-screeners"},
		"questions": {"q1": {"text": "Feeling nervous"}, "q2": {"text": "Not being able to stop worrying"}}
	}`)
	vr, err = n.Normalize(keyed, Source{})
	require.NoError(t, err)
	assert.Equal(t, 2, vr.Resource.(*AssessmentResource).Questions.Len())

	broken := mustDoc(t, `{"slug":"bad","name":"Bad","metadata":{"category":"assessments-screeners"},"items":"nine"}`)
	_, err = n.Normalize(broken, Source{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "bad", verr.Slug)
	assert.NotEmpty(t, verr.Fields)
}

func TestTypeMismatchIsRejected(t *testing.T) {
	doc := mustDoc(t, `{"slug":"circle","name":"Circle","tags":"anxiety","metadata":{"category":"support-community"}}`)

	_, err := New().Normalize(doc, Source{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "circle", verr.Slug)
	assert.Equal(t, CategorySupport, verr.Category)
	require.Len(t, verr.Fields, 1)
	assert.Contains(t, verr.Fields[0].Message, "got string")
}

func TestMissingAndUnknownCategory(t *testing.T) {
	n := New()

	_, err := n.Normalize(mustDoc(t, `{"slug":"x","name":"X"}`), Source{})
	assert.True(t, errors.Is(err, ErrMissingCategory))

	_, err = n.Normalize(mustDoc(t, `{"slug":"x","name":"X","metadata":{"category":"podcasts"}}`), Source{})
	assert.True(t, errors.Is(err, ErrUnknownCategory))

	_, err = n.Normalize(nil, Source{FileName: "empty.json"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "empty", verr.Slug)
}

func TestDirectoryCategoryAndBackfill(t *testing.T) {
	doc := mustDoc(t, `{"url":"https://calm.example.org","platforms":["ios"],"custom_field":{"a":1}}`)

	vr, err := New().Normalize(doc, Source{FileName: "calm-harbor_app.json", Category: "digital-tools"})
	require.NoError(t, err)

	assert.Equal(t, "calm-harbor_app", vr.Slug)
	assert.Equal(t, "Calm Harbor App", vr.Name)
	assert.Equal(t, CategoryDigitalTools, vr.Category)
	assert.Equal(t, "resource", vr.Document["kind"])
	assert.Equal(t, "json-file", vr.Document["metadata"].(map[string]any)["source"])
	assert.Equal(t, map[string]any{"a": float64(1)}, vr.Document["custom_field"])
	assert.Equal(t, []string{"ios"}, vr.Resource.(*DigitalToolResource).Platforms)
}

func TestDatabaseRowIsUnwrapped(t *testing.T) {
	row := mustDoc(t, `{
		"id": "7f0c", "type": "resource", "slug": "peer-circle", "title": "Peer Circle",
		"metadata": {"category": "support-community"},
		"content": {"format": "online", "description": "Weekly peer meetings"}
	}`)

	vr, err := New().Normalize(row, Source{})
	require.NoError(t, err)
	assert.Equal(t, "peer-circle", vr.Slug)
	assert.Equal(t, "Peer Circle", vr.Name)
	assert.Equal(t, CategorySupport, vr.Category)
	assert.Equal(t, "online", vr.Resource.(*SupportCommunityResource).Format)
	assert.Equal(t, "Weekly peer meetings", vr.Resource.Common().Description)
}

func TestCanonicalCategory(t *testing.T) {
	assert.Equal(t, CategoryKnowledgeHub, CanonicalCategory(" Articles-Guides "))
	assert.Equal(t, CategoryCrisis, CanonicalCategory("crisis-helplines"))
	assert.True(t, HasContract(CategoryEducation))
	assert.False(t, HasContract("articles"))
}

func TestChunkBlocksComposesUnicode(t *testing.T) {
	blocks := chunkBlocks("Café culture\n\n## Résumé")
	require.Len(t, blocks, 2)
	assert.Equal(t, "Café culture", blocks[0].(map[string]any)["text"])
	assert.Equal(t, "Résumé", blocks[1].(map[string]any)["text"])
}
