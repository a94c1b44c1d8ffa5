package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"mindhub/models"
)

func entity(typ, slug, title, category string) models.Entity {
	return models.Entity{
		Type:     typ,
		Slug:     slug,
		Title:    title,
		Content:  datatypes.JSON(`{"slug":"` + slug + `","name":"` + title + `"}`),
		Metadata: datatypes.JSON(`{"category":"` + category + `"}`),
		Status:   models.StatusActive,
	}
}

func TestUpsertEntitiesOverwritesOnNaturalKey(t *testing.T) {
	ctx := context.Background()
	store := NewEntityStore(newTestDB(t))

	require.NoError(t, store.UpsertEntities(ctx, []models.Entity{entity("condition", "anxiety", "Anxiety", "anxiety-disorders")}))
	first, err := store.GetEntity(ctx, "condition", "anxiety")
	require.NoError(t, err)

	require.NoError(t, store.UpsertEntities(ctx, []models.Entity{entity("condition", "anxiety", "Anxiety Disorders", "anxiety-disorders")}))
	second, err := store.GetEntity(ctx, "condition", "anxiety")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Anxiety Disorders", second.Title)

	_, total, err := store.ListEntities(ctx, EntityFilter{Type: "condition"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestSameSlugDifferentTypeIsTwoRecords(t *testing.T) {
	ctx := context.Background()
	store := NewEntityStore(newTestDB(t))

	require.NoError(t, store.UpsertEntities(ctx, []models.Entity{
		entity("condition", "depression", "Depression", "mood"),
		entity("resource", "depression", "Depression Guide", "education-guides"),
	}))

	entities, total, err := store.ListEntities(ctx, EntityFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, entities, 2)
	assert.Equal(t, "condition", entities[0].Type)
	assert.Equal(t, "resource", entities[1].Type)
}

func TestListEntitiesFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	store := NewEntityStore(newTestDB(t))

	draft := entity("resource", "hidden", "Hidden", "knowledge-hub")
	draft.Status = models.StatusDraft
	require.NoError(t, store.UpsertEntities(ctx, []models.Entity{
		entity("resource", "c-article", "C", "knowledge-hub"),
		entity("resource", "a-article", "A", "knowledge-hub"),
		entity("resource", "b-article", "B", "knowledge-hub"),
		entity("resource", "988-lifeline", "988", "crisis-helplines"),
		draft,
	}))

	page, total, err := store.ListEntities(ctx, EntityFilter{Type: "resource", Category: "knowledge-hub", Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "b-article", page[0].Slug)
	assert.Equal(t, "c-article", page[1].Slug)

	_, err = store.GetEntity(ctx, "resource", "hidden")
	assert.ErrorIs(t, err, ErrNotFound)

	counts, err := store.CountByType(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"resource": 4}, counts)
}

func TestGetEntityNotFound(t *testing.T) {
	store := NewEntityStore(newTestDB(t))
	_, err := store.GetEntity(context.Background(), "condition", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRelationshipsAreUpsertedAndListedBothWays(t *testing.T) {
	ctx := context.Background()
	store := NewEntityStore(newTestDB(t))

	edge := models.Relationship{
		SourceType: "condition", SourceSlug: "depression",
		TargetType: "medication", TargetSlug: "sertraline",
		Relation: "treated_by",
	}
	require.NoError(t, store.UpsertRelationships(ctx, []models.Relationship{edge}))
	edge.Metadata = datatypes.JSON(`{"evidence":"strong"}`)
	require.NoError(t, store.UpsertRelationships(ctx, []models.Relationship{edge}))

	out, err := store.ListRelationships(ctx, "condition", "depression")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.JSONEq(t, `{"evidence":"strong"}`, string(out[0].Metadata))

	in, err := store.ListRelationships(ctx, "medication", "sertraline")
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, "depression", in[0].SourceSlug)
}

func TestRecordFilesUpdatesProvenance(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := NewEntityStore(db)

	file := models.ContentFile{Path: "conditions/mood/depression.json", EntityType: "condition", Slug: "depression", Checksum: "aaa", SyncedAt: time.Now()}
	require.NoError(t, store.RecordFiles(ctx, []models.ContentFile{file}))
	file.Checksum = "bbb"
	require.NoError(t, store.RecordFiles(ctx, []models.ContentFile{file}))

	var files []models.ContentFile
	require.NoError(t, db.Find(&files).Error)
	require.Len(t, files, 1)
	assert.Equal(t, "bbb", files[0].Checksum)
}
