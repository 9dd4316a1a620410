package code_analyzer

import (
	"bytes"
	"context"
	"encoding/gob"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nanunh/genstack/code_analyzer/models"
	"github.com/nanunh/genstack/project_store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectID = "p1"

func newTestCache(t *testing.T, opts CacheOptions) (*StructureCache, *project_store.MemoryFileStore) {
	t.Helper()
	store := project_store.NewMemoryFileStore()
	store.AddProject(projectID)
	cache, err := NewStructureCache(t.TempDir(), store, nil, opts, nil)
	require.NoError(t, err)
	return cache, store
}

// frozenStore reports the same modification time whatever is written.
type frozenStore struct {
	*project_store.MemoryFileStore
	modTime time.Time
}

func (f *frozenStore) Stat(ctx context.Context, projectID, path string) (models.FileEntry, error) {
	entry, err := f.MemoryFileStore.Stat(ctx, projectID, path)
	entry.LastModified = f.modTime
	return entry, err
}

func encodeStructure(t *testing.T, fs models.FileStructure) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(fs))
	return buf.Bytes()
}

func TestStructureCache_GetMissThenHit(t *testing.T) {
	cache, store := newTestCache(t, CacheOptions{})
	ctx := context.Background()
	store.Put(projectID, "auth/service.go", goSample)

	first, err := cache.Get(ctx, projectID, "auth/service.go")
	require.NoError(t, err)
	assert.NotNil(t, first.FindFunction("Login"))

	second, err := cache.Get(ctx, projectID, "auth/service.go")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	perf := cache.GetPerformanceStats()
	assert.Equal(t, int64(2), perf["total_requests"])
	assert.Equal(t, int64(1), perf["cache_hits"])
	assert.Equal(t, int64(1), perf["cache_misses"])

	record := filepath.Join(cache.CacheDir(), projectID, "auth", "service.go"+recordSuffix)
	assert.FileExists(t, record)
}

func TestStructureCache_RecordMatchesFileModTime(t *testing.T) {
	cache, store := newTestCache(t, CacheOptions{})
	ctx := context.Background()
	store.Put(projectID, "app.py", pythonSample)

	fs, err := cache.Get(ctx, projectID, "app.py")
	require.NoError(t, err)
	stat, err := store.Stat(ctx, projectID, "app.py")
	require.NoError(t, err)
	assert.True(t, fs.LastModified.Equal(stat.LastModified))
}

func TestStructureCache_WriteInvalidates(t *testing.T) {
	cache, store := newTestCache(t, CacheOptions{})
	ctx := context.Background()
	store.Put(projectID, "app.py", "def old(a):\n    pass\n")

	before, err := cache.Get(ctx, projectID, "app.py")
	require.NoError(t, err)
	require.NotNil(t, before.FindFunction("old"))

	require.NoError(t, store.WriteFile(ctx, projectID, "app.py", "def new(a, b):\n    pass\n"))

	after, err := cache.Get(ctx, projectID, "app.py")
	require.NoError(t, err)
	assert.Nil(t, after.FindFunction("old"))
	require.NotNil(t, after.FindFunction("new"))
	assert.Equal(t, []string{"a", "b"}, after.FindFunction("new").Params)
	assert.True(t, after.LastModified.After(before.LastModified))
}

func TestStructureCache_RefreshIsIdempotent(t *testing.T) {
	cache, store := newTestCache(t, CacheOptions{})
	ctx := context.Background()
	store.Put(projectID, "src/server.js", jsSample)

	first, err := cache.Refresh(ctx, projectID, "src/server.js", jsSample)
	require.NoError(t, err)
	firstEntry, err := cache.fileCache.load(projectID, "src/server.js")
	require.NoError(t, err)

	second, err := cache.Refresh(ctx, projectID, "src/server.js", jsSample)
	require.NoError(t, err)
	secondEntry, err := cache.fileCache.load(projectID, "src/server.js")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, encodeStructure(t, firstEntry.Structure), encodeStructure(t, secondEntry.Structure))
	assert.Equal(t, int64(2), cache.GetPerformanceStats()["refreshes"])
}

func TestStructureCache_PersistedRecordSurvivesRestart(t *testing.T) {
	store := project_store.NewMemoryFileStore()
	store.Put(projectID, "auth/service.go", goSample)
	dir := t.TempDir()
	ctx := context.Background()

	cache, err := NewStructureCache(dir, store, nil, CacheOptions{}, nil)
	require.NoError(t, err)
	original, err := cache.Get(ctx, projectID, "auth/service.go")
	require.NoError(t, err)

	reopened, err := NewStructureCache(dir, store, nil, CacheOptions{}, nil)
	require.NoError(t, err)
	loaded, err := reopened.Get(ctx, projectID, "auth/service.go")
	require.NoError(t, err)

	assert.Equal(t, original, loaded)
	assert.Equal(t, int64(1), reopened.GetPerformanceStats()["cache_hits"])
}

func TestStructureCache_RecordsDropMonotonicClock(t *testing.T) {
	cache, store := newTestCache(t, CacheOptions{})
	store.Put(projectID, "auth/service.go", goSample)

	fs, err := cache.Get(context.Background(), projectID, "auth/service.go")
	require.NoError(t, err)
	assert.Equal(t, fs.LastModified.Round(0), fs.LastModified)
}

func TestStructureCache_ReturnsCopies(t *testing.T) {
	cache, store := newTestCache(t, CacheOptions{})
	ctx := context.Background()
	store.Put(projectID, "auth/service.go", goSample)

	fs, err := cache.Get(ctx, projectID, "auth/service.go")
	require.NoError(t, err)
	fs.Functions[0].Name = "mutated"
	fs.Imports[0] = "mutated"

	again, err := cache.Get(ctx, projectID, "auth/service.go")
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again.Functions[0].Name)
	assert.NotEqual(t, "mutated", again.Imports[0])
}

func TestStructureCache_VerifyHashCatchesSameTimestampEdit(t *testing.T) {
	memory := project_store.NewMemoryFileStore()
	memory.AddProject(projectID)
	store := &frozenStore{MemoryFileStore: memory, modTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	ctx := context.Background()

	cache, err := NewStructureCache(t.TempDir(), store, nil, CacheOptions{VerifyHash: true}, nil)
	require.NoError(t, err)

	memory.Put(projectID, "app.py", "def first():\n    pass\n")
	_, err = cache.Get(ctx, projectID, "app.py")
	require.NoError(t, err)

	memory.Put(projectID, "app.py", "def second():\n    pass\n")
	fs, err := cache.Get(ctx, projectID, "app.py")
	require.NoError(t, err)
	assert.NotNil(t, fs.FindFunction("second"))
	assert.Nil(t, fs.FindFunction("first"))
}

func TestStructureCache_WithoutVerifyHashTrustsTimestamp(t *testing.T) {
	memory := project_store.NewMemoryFileStore()
	memory.AddProject(projectID)
	store := &frozenStore{MemoryFileStore: memory, modTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	ctx := context.Background()

	cache, err := NewStructureCache(t.TempDir(), store, nil, CacheOptions{}, nil)
	require.NoError(t, err)

	memory.Put(projectID, "app.py", "def first():\n    pass\n")
	_, err = cache.Get(ctx, projectID, "app.py")
	require.NoError(t, err)

	memory.Put(projectID, "app.py", "def second():\n    pass\n")
	fs, err := cache.Get(ctx, projectID, "app.py")
	require.NoError(t, err)
	assert.NotNil(t, fs.FindFunction("first"))
}

func TestStructureCache_MissingFileDropsRecord(t *testing.T) {
	cache, store := newTestCache(t, CacheOptions{})
	ctx := context.Background()
	store.Put(projectID, "gone.py", "x = 1\n")

	_, err := cache.Get(ctx, projectID, "gone.py")
	require.NoError(t, err)
	store.Remove(projectID, "gone.py")

	_, err = cache.Get(ctx, projectID, "gone.py")
	assert.ErrorIs(t, err, models.ErrFileNotFound)

	_, err = cache.fileCache.load(projectID, "gone.py")
	assert.ErrorIs(t, err, models.ErrCacheMiss)
}

func TestStructureCache_UnknownProject(t *testing.T) {
	cache, _ := newTestCache(t, CacheOptions{})
	_, err := cache.Get(context.Background(), "missing", "a.go")
	assert.ErrorIs(t, err, models.ErrProjectNotFound)
}

func TestStructureCache_InvalidateAll(t *testing.T) {
	cache, store := newTestCache(t, CacheOptions{})
	ctx := context.Background()
	store.Put(projectID, "a.py", "x = 1\n")
	store.Put(projectID, "b.py", "y = 2\n")
	store.Put("other", "c.py", "z = 3\n")

	for _, p := range []string{"a.py", "b.py"} {
		_, err := cache.Get(ctx, projectID, p)
		require.NoError(t, err)
	}
	_, err := cache.Get(ctx, "other", "c.py")
	require.NoError(t, err)

	require.NoError(t, cache.InvalidateAll(projectID))

	stats, err := cache.GetCacheStats(projectID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats["cache_files"])
	assert.Equal(t, 1, stats["memory_entries"])

	_, err = os.Stat(filepath.Join(cache.CacheDir(), "other", "c.py"+recordSuffix))
	assert.NoError(t, err)

	// Records are rebuilt on demand.
	_, err = cache.Get(ctx, projectID, "a.py")
	require.NoError(t, err)
	assert.Equal(t, int64(4), cache.GetPerformanceStats()["cache_misses"])
}

func TestStructureCache_Prune(t *testing.T) {
	cache, store := newTestCache(t, CacheOptions{})
	ctx := context.Background()
	for _, p := range []string{"keep.py", "nested/keep.go", "drop.py"} {
		store.Put(projectID, p, "x = 1\n")
		_, err := cache.Get(ctx, projectID, p)
		require.NoError(t, err)
	}

	removed, err := cache.Prune(projectID, map[string]struct{}{"keep.py": {}, "nested/keep.go": {}})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	paths, err := cache.fileCache.list(projectID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"keep.py", "nested/keep.go"}, paths)
}

func TestStructureCache_DeleteMissingRecordIsNoop(t *testing.T) {
	cache, _ := newTestCache(t, CacheOptions{})
	assert.NoError(t, cache.Delete(projectID, "never/cached.go"))
}

func TestStructureCache_RejectsBadProjectID(t *testing.T) {
	cache, _ := newTestCache(t, CacheOptions{})
	assert.ErrorIs(t, cache.InvalidateAll("../escape"), models.ErrProjectNotFound)
	assert.ErrorIs(t, cache.InvalidateAll(""), models.ErrProjectNotFound)
}

func TestStructureCache_PathCannotEscapeProject(t *testing.T) {
	path, err := (&FileCache{cacheDir: "/cache"}).getCachePath(projectID, "../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/cache", projectID, "etc", "passwd"+recordSuffix), path)
}

func TestStructureCache_CleanupExpired(t *testing.T) {
	cache, store := newTestCache(t, CacheOptions{})
	ctx := context.Background()
	store.Put(projectID, "fresh.py", "x = 1\n")
	_, err := cache.Get(ctx, projectID, "fresh.py")
	require.NoError(t, err)

	old := CacheEntry{
		Structure: models.FileStructure{Path: "old.py", Language: "python"},
		StoredAt:  time.Now().Add(-48 * time.Hour),
	}
	require.NoError(t, cache.fileCache.store(projectID, "old.py", old))

	removed, err := cache.CleanupExpired(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	paths, err := cache.fileCache.list(projectID)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh.py"}, paths)

	removed, err = cache.CleanupExpired(0)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestStructureCache_CorruptRecordIsRebuilt(t *testing.T) {
	cache, store := newTestCache(t, CacheOptions{MaxMemoryEntries: 1})
	ctx := context.Background()
	store.Put(projectID, "a.py", "def a():\n    pass\n")
	store.Put(projectID, "b.py", "def b():\n    pass\n")

	_, err := cache.Get(ctx, projectID, "a.py")
	require.NoError(t, err)
	// Pushes a.py out of the single-entry memory front.
	_, err = cache.Get(ctx, projectID, "b.py")
	require.NoError(t, err)

	record := filepath.Join(cache.CacheDir(), projectID, "a.py"+recordSuffix)
	require.NoError(t, os.WriteFile(record, []byte("not gob"), 0644))

	fs, err := cache.Get(ctx, projectID, "a.py")
	require.NoError(t, err)
	assert.NotNil(t, fs.FindFunction("a"))
}

func TestStructureCache_GetCacheStats(t *testing.T) {
	cache, store := newTestCache(t, CacheOptions{})
	ctx := context.Background()

	stats, err := cache.GetCacheStats(projectID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats["cache_files"])
	assert.NotContains(t, stats, "oldest_entry")

	store.Put(projectID, "a.py", "x = 1\n")
	_, err = cache.Get(ctx, projectID, "a.py")
	require.NoError(t, err)

	stats, err = cache.GetCacheStats(projectID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats["cache_files"])
	assert.Greater(t, stats["total_size"].(int64), int64(0))
	assert.Contains(t, stats, "newest_entry")

	all, err := cache.GetCacheStats("")
	require.NoError(t, err)
	assert.Equal(t, cache.CacheDir(), all["cache_dir"])
}

func TestStructureCache_ConcurrentAccess(t *testing.T) {
	cache, store := newTestCache(t, CacheOptions{})
	ctx := context.Background()
	store.Put(projectID, "auth/service.go", goSample)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, err := cache.Refresh(ctx, projectID, "auth/service.go", goSample)
				assert.NoError(t, err)
				return
			}
			fs, err := cache.Get(ctx, projectID, "auth/service.go")
			assert.NoError(t, err)
			assert.NotNil(t, fs.FindFunction("Login"))
		}(i)
	}
	wg.Wait()
}

func TestFindElementsByName(t *testing.T) {
	cache, store := newTestCache(t, CacheOptions{})
	store.Put(projectID, "auth/service.go", goSample)
	store.Put(projectID, "bank/account.py", pythonSample)
	store.Put(projectID, "README.md", "# readme\n")

	matches, err := cache.FindElementsByName(context.Background(), projectID, "LOG")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, models.ElementMatch{Kind: "function", Name: "Login", Path: "auth/service.go", Line: 14, EndLine: 19}, matches[0])

	matches, err = cache.FindElementsByName(context.Background(), projectID, "account")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "class", matches[0].Kind)
	assert.Equal(t, "bank/account.py", matches[0].Path)
}
