package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4xw311/scribe/errors"
	"github.com/m4xw311/scribe/parser"
)

func writeVaultFile(t *testing.T, root, rel, body string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
}

func TestDirStoreListPaths(t *testing.T) {
	root := t.TempDir()
	writeVaultFile(t, root, "b.md", "")
	writeVaultFile(t, root, "notes/a.md", "")
	writeVaultFile(t, root, "notes/image.png", "")
	writeVaultFile(t, root, "build/generated.md", "")
	writeVaultFile(t, root, ".trash/gone.md", "")
	writeVaultFile(t, root, ".scribe/prompts/setup.md", "")
	writeVaultFile(t, root, ".gitignore", "build/\n")

	store, err := NewDirStore(root, ".md")
	require.NoError(t, err)

	paths, err := store.ListPaths(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b.md", "notes/a.md"}, paths)
}

func TestDirStoreExecutorLifecycle(t *testing.T) {
	root := t.TempDir()
	store, err := NewDirStore(root, ".md")
	require.NoError(t, err)
	exec := NewExecutor(store, ".md", nil)
	ctx := context.Background()

	steps := []struct {
		action parser.Action
		want   string
	}{
		{action(parser.KindCreate, "Daily/2024-05-01.md", "# Today"), "Created: Daily/2024-05-01.md"},
		{action(parser.KindCreate, "2024-05-01", "dup"), "File already exists: Daily/2024-05-01.md"},
		{action(parser.KindAppend, "Daily/2024-05-01", "- walked"), "Appended to: Daily/2024-05-01.md"},
		{parser.Action{Kind: parser.KindRename, Path: "Daily/2024-05-01.md", NewPath: "Archive/may-01.md"}, "Renamed: Daily/2024-05-01.md -> Archive/may-01.md"},
		{action(parser.KindDelete, "may-01", ""), "Moved to trash: Archive/may-01.md"},
	}
	for _, step := range steps {
		msg, err := exec.Apply(ctx, step.action)
		require.NoError(t, err, step.action.Label())
		assert.Equal(t, step.want, msg)
	}

	data, err := os.ReadFile(filepath.Join(root, TrashDir, "Archive", "may-01.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Today\n- walked", string(data))

	paths, err := store.ListPaths(ctx)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestDirStoreTrashCollision(t *testing.T) {
	root := t.TempDir()
	store, err := NewDirStore(root, ".md")
	require.NoError(t, err)
	ctx := context.Background()

	writeVaultFile(t, root, "a.md", "first")
	require.NoError(t, store.Trash(ctx, "a.md"))
	writeVaultFile(t, root, "a.md", "second")
	require.NoError(t, store.Trash(ctx, "a.md"))

	entries, err := os.ReadDir(filepath.Join(root, TrashDir))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDirStoreRejectsEscapes(t *testing.T) {
	store, err := NewDirStore(t.TempDir(), ".md")
	require.NoError(t, err)
	ctx := context.Background()

	err = store.Create(ctx, "../outside.md", "x")
	assert.True(t, errors.Is(err, errors.ErrAccessDenied))

	found, err := store.Lookup(ctx, "../../etc/passwd")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDirStoreReadMissing(t *testing.T) {
	store, err := NewDirStore(t.TempDir(), ".md")
	require.NoError(t, err)

	_, err = store.Read(context.Background(), "nope.md")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestNewDirStoreRequiresDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.md")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := NewDirStore(file, ".md")
	assert.Error(t, err)
}
