package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTypes(t *testing.T) {
	assert.Equal(t, []string{"treatments", "conditions"}, splitTypes([]string{"Treatments, conditions"}))
	assert.Equal(t, []string{"resources"}, splitTypes([]string{"", " resources "}))
	assert.Nil(t, splitTypes(nil))
}

func TestDryRunNeedsNoDatabase(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "conditions", "mood")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "depression.json"),
		[]byte(`{"slug":"depression","name":"Depression"}`), 0o644))
	t.Setenv("DB_HOST", "unreachable.invalid")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--dry-run", "--type", "conditions", "--root", root})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "conditions")
	assert.Contains(t, out.String(), "(dry run)")
}

func TestDryRunFailsOnBrokenDocument(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "conditions")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nameless.json"), []byte(`{"slug":"nameless"}`), 0o644))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--dry-run", "--type", "conditions", "--root", root})

	assert.Error(t, cmd.Execute())
}

func TestUnknownTypeIsRejected(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--dry-run", "--type", "papers", "--root", t.TempDir()})

	assert.ErrorContains(t, cmd.Execute(), "unknown content type")
}
