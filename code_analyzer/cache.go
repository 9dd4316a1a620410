package code_analyzer

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nanunh/genstack/code_analyzer/contracts"
	"github.com/nanunh/genstack/code_analyzer/models"
	"github.com/pterm/pterm"
)

// recordSuffix marks a file under the cache tree as a derived structural record.
const recordSuffix = ".struct"

// sniffSize is how much of a file the resolver sees for shebang detection.
const sniffSize = 512

// CacheEntry is the persisted form of one structural record.
type CacheEntry struct {
	Structure models.FileStructure
	StoredAt  time.Time
}

// FileCache stores gob-encoded records under <cacheDir>/<projectId>/<path>.struct.
type FileCache struct {
	cacheDir string
	mutex    sync.RWMutex
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	TotalRequests int64
	CacheHits     int64
	CacheMisses   int64
	Refreshes     int64
	LastResetTime time.Time
	mutex         sync.RWMutex
}

// CacheOptions tunes a StructureCache.
type CacheOptions struct {
	MaxMemoryEntries int
	// VerifyHash confirms a timestamp match against the content hash before
	// serving a record. It costs one file read per hit.
	VerifyHash bool
}

// StructureCache keeps one FileStructure per (project, path), invalidated by
// the modification time reported by the file store.
type StructureCache struct {
	files      contracts.IFileStore
	extractor  contracts.IStructureExtractor
	fileCache  *FileCache
	memory     *lru.Cache[string, CacheEntry]
	verifyHash bool
	stats      *CacheStats
	logger     *pterm.Logger
}

// NewStructureCache creates the cache. If cacheDir is empty, it defaults to
// ".cache" in the current working directory.
func NewStructureCache(cacheDir string, files contracts.IFileStore, extractor contracts.IStructureExtractor, opts CacheOptions, logger *pterm.Logger) (*StructureCache, error) {
	if cacheDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current working directory: %w", err)
		}
		cacheDir = filepath.Join(cwd, ".cache")
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	if opts.MaxMemoryEntries <= 0 {
		opts.MaxMemoryEntries = 1024
	}
	memory, err := lru.New[string, CacheEntry](opts.MaxMemoryEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	if logger == nil {
		logger = pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled)
	}
	if extractor == nil {
		extractor = NewStructureExtractor(logger)
	}

	return &StructureCache{
		files:      files,
		extractor:  extractor,
		fileCache:  &FileCache{cacheDir: cacheDir},
		memory:     memory,
		verifyHash: opts.VerifyHash,
		stats:      &CacheStats{LastResetTime: time.Now()},
		logger:     logger,
	}, nil
}

// CacheDir returns the root of the persisted records.
func (sc *StructureCache) CacheDir() string {
	return sc.fileCache.cacheDir
}

// Get returns the cached record when its LastModified equals the file's current
// modification time; otherwise the file is re-extracted and the record replaced.
func (sc *StructureCache) Get(ctx context.Context, projectID, filePath string) (models.FileStructure, error) {
	filePath = normalizeRelPath(filePath)
	stat, err := sc.files.Stat(ctx, projectID, filePath)
	if err != nil {
		if errors.Is(err, models.ErrFileNotFound) {
			_ = sc.Delete(projectID, filePath)
		}
		return models.FileStructure{}, err
	}

	var content *string
	entry, err := sc.lookup(projectID, filePath)
	if err == nil && entry.Structure.LastModified.Equal(stat.LastModified) {
		if !sc.verifyHash {
			sc.recordCacheHit()
			return entry.Structure.Clone(), nil
		}
		text, err := sc.files.ReadFile(ctx, projectID, filePath)
		if err != nil {
			return models.FileStructure{}, err
		}
		if ContentHash([]byte(text)) == entry.Structure.ContentHash {
			sc.recordCacheHit()
			return entry.Structure.Clone(), nil
		}
		sc.logger.Debug("content hash mismatch on fresh timestamp", sc.logger.Args("project", projectID, "path", filePath))
		content = &text
	} else if err != nil && !errors.Is(err, models.ErrCacheMiss) {
		sc.logger.Warn("discarding unreadable cache record", sc.logger.Args("project", projectID, "path", filePath, "error", err.Error()))
	}

	sc.recordCacheMiss()
	if content == nil {
		text, err := sc.files.ReadFile(ctx, projectID, filePath)
		if err != nil {
			return models.FileStructure{}, err
		}
		content = &text
	}
	return sc.build(ctx, projectID, filePath, *content, stat.LastModified)
}

// Refresh re-extracts content and overwrites the record. It is called after
// every write to the file; concurrent refreshes are last-writer-wins.
func (sc *StructureCache) Refresh(ctx context.Context, projectID, filePath, content string) (models.FileStructure, error) {
	filePath = normalizeRelPath(filePath)
	stat, err := sc.files.Stat(ctx, projectID, filePath)
	if err != nil {
		return models.FileStructure{}, err
	}
	sc.recordRefresh()
	return sc.build(ctx, projectID, filePath, content, stat.LastModified)
}

func (sc *StructureCache) build(ctx context.Context, projectID, filePath, content string, modTime time.Time) (models.FileStructure, error) {
	raw := []byte(content)
	sniff := raw
	if len(sniff) > sniffSize {
		sniff = sniff[:sniffSize]
	}
	structure := sc.extractor.Extract(ctx, filePath, raw, ResolveLanguage(filePath, sniff))
	// Strip the monotonic reading so records compare equal after a gob round trip.
	structure.LastModified = modTime.Round(0)

	entry := CacheEntry{Structure: structure, StoredAt: time.Now()}
	if err := sc.fileCache.store(projectID, filePath, entry); err != nil {
		return models.FileStructure{}, err
	}
	sc.memory.Add(memoryKey(projectID, filePath), entry)
	return structure.Clone(), nil
}

func (sc *StructureCache) lookup(projectID, filePath string) (CacheEntry, error) {
	if entry, ok := sc.memory.Get(memoryKey(projectID, filePath)); ok {
		return entry, nil
	}
	entry, err := sc.fileCache.load(projectID, filePath)
	if err != nil {
		return CacheEntry{}, err
	}
	sc.memory.Add(memoryKey(projectID, filePath), entry)
	return entry, nil
}

// InvalidateAll deletes every record of a project.
func (sc *StructureCache) InvalidateAll(projectID string) error {
	for _, key := range sc.memory.Keys() {
		if strings.HasPrefix(key, projectID+"\x00") {
			sc.memory.Remove(key)
		}
	}
	return sc.fileCache.removeProject(projectID)
}

// Delete removes the record of a single file.
func (sc *StructureCache) Delete(projectID, filePath string) error {
	filePath = normalizeRelPath(filePath)
	sc.memory.Remove(memoryKey(projectID, filePath))
	return sc.fileCache.remove(projectID, filePath)
}

// Prune removes records whose path is not in live and returns how many were removed.
func (sc *StructureCache) Prune(projectID string, live map[string]struct{}) (int, error) {
	paths, err := sc.fileCache.list(projectID)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, p := range paths {
		if _, ok := live[p]; ok {
			continue
		}
		if err := sc.Delete(projectID, p); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// FindElementsByName returns the functions and classes across a project whose
// name contains name, case-insensitively.
func (sc *StructureCache) FindElementsByName(ctx context.Context, projectID, name string) ([]models.ElementMatch, error) {
	entries, err := sc.files.ListFiles(ctx, projectID)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(name)
	matches := []models.ElementMatch{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		structure, err := sc.Get(ctx, projectID, entry.Path)
		if err != nil {
			sc.logger.Debug("skipping file in element search", sc.logger.Args("path", entry.Path, "error", err.Error()))
			continue
		}
		for _, fn := range structure.Functions {
			if strings.Contains(strings.ToLower(fn.Name), needle) {
				matches = append(matches, models.ElementMatch{Kind: "function", Name: fn.Name, Path: structure.Path, Line: fn.Line, EndLine: fn.EndLine})
			}
		}
		for _, cls := range structure.Classes {
			if strings.Contains(strings.ToLower(cls.Name), needle) {
				matches = append(matches, models.ElementMatch{Kind: "class", Name: cls.Name, Path: structure.Path, Line: cls.Line, EndLine: cls.EndLine})
			}
		}
	}
	return matches, nil
}

// CleanupExpired removes records stored more than maxAge ago and returns how
// many were removed.
func (sc *StructureCache) CleanupExpired(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-maxAge)
	removed, err := sc.fileCache.removeWhere(func(entry CacheEntry) bool {
		return entry.StoredAt.Before(cutoff)
	})
	if removed > 0 {
		sc.memory.Purge()
	}
	return removed, err
}

// GetCacheStats returns record counts and sizes for one project, or for the
// whole cache when projectID is empty.
func (sc *StructureCache) GetCacheStats(projectID string) (map[string]interface{}, error) {
	root := sc.fileCache.cacheDir
	if projectID != "" {
		root = filepath.Join(root, projectID)
	}

	var records int
	var totalSize int64
	oldestTime := time.Now()
	newestTime := time.Time{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, recordSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		records++
		totalSize += info.Size()
		if info.ModTime().Before(oldestTime) {
			oldestTime = info.ModTime()
		}
		if info.ModTime().After(newestTime) {
			newestTime = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	stats := map[string]interface{}{
		"cache_dir":      root,
		"cache_files":    records,
		"total_size":     totalSize,
		"total_size_mb":  float64(totalSize) / (1024 * 1024),
		"memory_entries": sc.memory.Len(),
	}
	if records > 0 {
		stats["oldest_entry"] = oldestTime.Format(time.RFC3339)
		stats["newest_entry"] = newestTime.Format(time.RFC3339)
	}
	return stats, nil
}

func memoryKey(projectID, filePath string) string {
	return projectID + "\x00" + filePath
}

// normalizeRelPath turns a project-relative path into a clean slash path that
// cannot escape the project root.
func normalizeRelPath(p string) string {
	return strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(p)), "/")
}

func (fc *FileCache) projectDir(projectID string) (string, error) {
	if projectID == "" || projectID == "." || projectID == ".." || strings.ContainsAny(projectID, `/\`) {
		return "", fmt.Errorf("invalid project id %q: %w", projectID, models.ErrProjectNotFound)
	}
	return filepath.Join(fc.cacheDir, projectID), nil
}

// getCachePath returns the full path to a record
func (fc *FileCache) getCachePath(projectID, filePath string) (string, error) {
	dir, err := fc.projectDir(projectID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.FromSlash(normalizeRelPath(filePath))+recordSuffix), nil
}

func (fc *FileCache) load(projectID, filePath string) (CacheEntry, error) {
	fc.mutex.RLock()
	defer fc.mutex.RUnlock()

	cachePath, err := fc.getCachePath(projectID, filePath)
	if err != nil {
		return CacheEntry{}, err
	}
	return readEntry(cachePath)
}

func readEntry(cachePath string) (CacheEntry, error) {
	data, err := os.ReadFile(cachePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return CacheEntry{}, models.ErrCacheMiss
		}
		return CacheEntry{}, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry CacheEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return CacheEntry{}, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	entry.Structure.Normalize()
	return entry, nil
}

// store writes to a temp file in the target directory and renames it into place.
func (fc *FileCache) store(projectID, filePath string, entry CacheEntry) error {
	cachePath, err := fc.getCachePath(projectID, filePath)
	if err != nil {
		return err
	}

	var buffer bytes.Buffer
	if err := gob.NewEncoder(&buffer).Encode(entry); err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(cachePath), ".record-*")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	if _, err := tmp.Write(buffer.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), cachePath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move cache file into place: %w", err)
	}
	return nil
}

func (fc *FileCache) remove(projectID, filePath string) error {
	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	cachePath, err := fc.getCachePath(projectID, filePath)
	if err != nil {
		return err
	}
	if err := os.Remove(cachePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

func (fc *FileCache) removeProject(projectID string) error {
	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	dir, err := fc.projectDir(projectID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear project cache: %w", err)
	}
	return nil
}

// list returns the project-relative paths that have a record.
func (fc *FileCache) list(projectID string) ([]string, error) {
	fc.mutex.RLock()
	defer fc.mutex.RUnlock()

	dir, err := fc.projectDir(projectID)
	if err != nil {
		return nil, err
	}
	var paths []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, recordSuffix) {
			return nil
		}
		rel, err := filepath.Rel(dir, strings.TrimSuffix(p, recordSuffix))
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}
	return paths, nil
}

func (fc *FileCache) removeWhere(match func(CacheEntry) bool) (int, error) {
	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	removed := 0
	err := filepath.WalkDir(fc.cacheDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, recordSuffix) {
			return nil
		}
		entry, err := readEntry(p)
		if err != nil || match(entry) {
			if os.Remove(p) == nil {
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to read cache directory: %w", err)
	}
	return removed, nil
}
