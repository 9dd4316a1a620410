package project_store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nanunh/genstack/code_analyzer/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
}

func newDiskFixture(t *testing.T, maxFileSize int64) (*DiskFileStore, Project) {
	t.Helper()
	registry := newTestRegistry(t, t.TempDir())
	root := filepath.Join(t.TempDir(), "app")
	require.NoError(t, os.MkdirAll(root, 0755))
	p, err := registry.Register(context.Background(), root, "app")
	require.NoError(t, err)
	return NewDiskFileStore(registry, maxFileSize, nil), p
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"main.go", "main.go", false},
		{"./src/../src/app.py", "src/app.py", false},
		{"a//b", "a/b", false},
		{"/etc/passwd", "", true},
		{"../outside", "", true},
		{"src/../../outside", "", true},
		{".", "", true},
	}
	for _, tt := range tests {
		got, err := CleanPath(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestDiskFileStore_ListFiles(t *testing.T) {
	store, p := newDiskFixture(t, 64)
	writeTree(t, p.Root, map[string]string{
		".gitignore":                     "build/\n*.gen.go\n# comment\n",
		"main.go":                        "package main\n",
		"sub/util.py":                    "x = 1\n",
		"a.gen.go":                       "package main\n",
		"build/out.go":                   "package build\n",
		"node_modules/dep/index.js":      "module.exports = {}\n",
		"main_backup_20240101_120000.go": "package main\n",
		"image.png":                      "png",
		"big.txt":                        strings.Repeat("x", 100),
	})

	entries, err := store.ListFiles(context.Background(), p.ID)
	require.NoError(t, err)

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{".gitignore", "main.go", "sub/util.py"}, paths)
	assert.Equal(t, int64(len("package main\n")), entries[1].Size)
	assert.False(t, entries[1].LastModified.IsZero())
}

func TestDiskFileStore_ReadWrite(t *testing.T) {
	store, p := newDiskFixture(t, 0)
	ctx := context.Background()

	require.NoError(t, store.WriteFile(ctx, p.ID, "pkg/new.go", "package pkg\n"))
	content, err := store.ReadFile(ctx, p.ID, "pkg/new.go")
	require.NoError(t, err)
	assert.Equal(t, "package pkg\n", content)

	stat, err := store.Stat(ctx, p.ID, "./pkg/new.go")
	require.NoError(t, err)
	assert.Equal(t, "pkg/new.go", stat.Path)
	assert.Equal(t, int64(12), stat.Size)

	leftovers, err := filepath.Glob(filepath.Join(p.Root, "pkg", ".genstack-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestDiskFileStore_WriteKeepsMode(t *testing.T) {
	store, p := newDiskFixture(t, 0)
	ctx := context.Background()
	script := filepath.Join(p.Root, "run.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"), 0755))

	require.NoError(t, store.WriteFile(ctx, p.ID, "run.sh", "#!/bin/sh\necho hi\n"))
	info, err := os.Stat(script)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}

func TestDiskFileStore_RefusesBookkeepingFiles(t *testing.T) {
	store, p := newDiskFixture(t, 0)
	err := store.WriteFile(context.Background(), p.ID, MetadataFileName, "{}")
	assert.Error(t, err)
}

func TestDiskFileStore_Errors(t *testing.T) {
	store, p := newDiskFixture(t, 16)
	ctx := context.Background()
	writeTree(t, p.Root, map[string]string{"big.txt": strings.Repeat("x", 32)})
	require.NoError(t, os.MkdirAll(filepath.Join(p.Root, "dir"), 0755))

	_, err := store.ReadFile(ctx, p.ID, "missing.go")
	assert.ErrorIs(t, err, models.ErrFileNotFound)

	_, err = store.ReadFile(ctx, p.ID, "../escape.go")
	assert.ErrorIs(t, err, models.ErrFileNotFound)

	_, err = store.ReadFile(ctx, p.ID, "dir")
	assert.ErrorIs(t, err, models.ErrFileNotFound)

	_, err = store.Stat(ctx, p.ID, "missing.go")
	assert.ErrorIs(t, err, models.ErrFileNotFound)

	_, err = store.ReadFile(ctx, p.ID, "big.txt")
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrFileNotFound)

	_, err = store.ReadFile(ctx, "unknown", "main.go")
	assert.ErrorIs(t, err, models.ErrProjectNotFound)

	_, err = store.ListFiles(ctx, "unknown")
	assert.ErrorIs(t, err, models.ErrProjectNotFound)
}
