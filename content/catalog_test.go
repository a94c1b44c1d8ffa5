package content

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDiscoverCategories(t *testing.T) {
	t.Run("sorted subdirectories only", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "therapy/cbt.json", `{}`)
		writeFile(t, root, "medications/sertraline.json", `{}`)
		writeFile(t, root, "alternative/.keep", ``)
		writeFile(t, root, "README.json", `{}`)
		require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))

		assert.Equal(t, []string{"alternative", "medications", "therapy"}, DiscoverCategories(root, zap.NewNop()))
	})

	t.Run("missing root yields empty list", func(t *testing.T) {
		got := DiscoverCategories(filepath.Join(t.TempDir(), "nope"), zap.NewNop())
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestCatalogCachesUntilClear(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "medications/a.json", `{}`)

	tick := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCatalog(root, zap.NewNop(), WithClock(func() time.Time { return tick }))

	assert.Equal(t, []string{"medications"}, c.Categories())
	first := c.DiscoveredAt()
	assert.Equal(t, tick, first)

	writeFile(t, root, "therapy/b.json", `{}`)
	tick = tick.Add(time.Hour)
	assert.Equal(t, []string{"medications"}, c.Categories(), "no TTL: cache survives directory changes")
	assert.Equal(t, first, c.DiscoveredAt())

	c.Clear()
	assert.Equal(t, []string{"medications", "therapy"}, c.Categories())
	assert.Equal(t, tick, c.DiscoveredAt())
}

func TestCategoriesReturnsCopy(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/x.json", `{}`)
	c := NewCatalog(root, nil)

	cats := c.Categories()
	cats[0] = "mutated"
	assert.Equal(t, []string{"a"}, c.Categories())
}

func TestBuildSlugIndex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "antidepressants/Escitalopram-Lexapro.json", `{}`)
	writeFile(t, root, "medications/escitalopram-lexapro.json", `{}`)
	writeFile(t, root, "medications/notes.txt", `x`)

	idx := BuildSlugIndex(root, []string{"antidepressants", "medications"}, zap.NewNop())

	require.Len(t, idx, 1)
	assert.Equal(t, SlugEntry{Category: "antidepressants", FileName: "Escitalopram-Lexapro.json"}, idx["escitalopram-lexapro"])
}

func TestSlugIndexRebuiltAfterClear(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "medications/a.json", `{}`)
	c := NewCatalog(root, zap.NewNop())
	assert.Len(t, c.SlugIndex(), 1)

	writeFile(t, root, "medications/b.json", `{}`)
	assert.Len(t, c.SlugIndex(), 1)

	c.Clear()
	assert.Len(t, c.SlugIndex(), 2)
}
