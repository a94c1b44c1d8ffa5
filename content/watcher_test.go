package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWatchClearsCatalogOnNewCategory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "medications/a.json", `{}`)
	c := NewCatalog(root, zap.NewNop())
	require.Equal(t, []string{"medications"}, c.Categories())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, zap.NewNop(), c) }()

	// Der Watcher startet asynchron, deshalb wird pro Versuch ein neues Verzeichnis angelegt.
	n := 0
	assert.Eventually(t, func() bool {
		n++
		_ = os.Mkdir(filepath.Join(root, fmt.Sprintf("therapy-%d", n)), 0o755)
		return len(c.Categories()) > 1
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
