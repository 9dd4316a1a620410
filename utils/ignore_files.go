package utils

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ignoreFileNames are read from a project root, in order.
var ignoreFileNames = []string{".gitignore", ".genstack-ignore"}

// ignoreCacheEntry holds cached ignore patterns with metadata
type ignoreCacheEntry struct {
	patterns []string
	modTime  time.Time
}

// Global cache for ignore patterns
var (
	ignoreCache = make(map[string]*ignoreCacheEntry)
	cacheMutex  sync.RWMutex
)

// defaultIgnoredNames are directories and files never considered project sources.
var defaultIgnoredNames = map[string]bool{
	".git":                 true,
	".svn":                 true,
	".hg":                  true,
	".idea":                true,
	".vscode":              true,
	".cache":               true,
	"node_modules":         true,
	"__pycache__":          true,
	".venv":                true,
	"venv":                 true,
	"dist":                 true,
	"bin":                  true,
	"obj":                  true,
	"genstack-config.yml":  true,
	"genstack-config.yaml": true,
}

// defaultIgnoredExtensions are binary or generated artifacts.
var defaultIgnoredExtensions = []string{
	".exe", ".dll", ".so", ".dylib", ".log", ".bak", ".bkp", ".tmp", ".sum", ".lock",
	".mp3", ".wav", ".aac", ".flac", ".ogg",
	".jpg", ".jpeg", ".png", ".gif", ".ico", ".webp",
	".mkv", ".mp4", ".avi", ".mov", ".wmv",
	".zip", ".tar", ".gz", ".pdf", ".struct",
	".drawio", ".excalidraw",
}

// GetIgnorePatterns returns the patterns of the project's ignore files. Missing
// files yield no patterns. Results are cached by file modification time.
func GetIgnorePatterns(root string) ([]string, error) {
	var all []string
	for _, name := range ignoreFileNames {
		patterns, err := cachedPatterns(filepath.Join(root, name))
		if err != nil {
			return nil, err
		}
		all = append(all, patterns...)
	}
	return all, nil
}

func cachedPatterns(ignorePath string) ([]string, error) {
	fileInfo, err := os.Stat(ignorePath)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("error checking %s: %w", filepath.Base(ignorePath), err)
	}

	cacheMutex.RLock()
	if cached, exists := ignoreCache[ignorePath]; exists && fileInfo.ModTime().Equal(cached.modTime) {
		cacheMutex.RUnlock()
		return cached.patterns, nil
	}
	cacheMutex.RUnlock()

	patterns, err := readIgnoreFile(ignorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(ignorePath), err)
	}

	cacheMutex.Lock()
	ignoreCache[ignorePath] = &ignoreCacheEntry{
		patterns: patterns,
		modTime:  fileInfo.ModTime(),
	}
	cacheMutex.Unlock()

	return patterns, nil
}

// IsDefaultIgnored reports whether any segment of a slash-separated relative
// path is a well-known non-source directory or artifact.
func IsDefaultIgnored(relPath string) bool {
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		part = strings.ToLower(part)
		if defaultIgnoredNames[part] {
			return true
		}
		for _, ext := range defaultIgnoredExtensions {
			if strings.HasSuffix(part, ext) {
				return true
			}
		}
	}
	return false
}

// readIgnoreFile returns the non-empty, non-comment lines of an ignore file.
func readIgnoreFile(ignorePath string) ([]string, error) {
	content, err := os.ReadFile(ignorePath)
	if err != nil {
		return nil, err
	}
	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") && !strings.HasPrefix(line, "!") {
			patterns = append(patterns, line)
		}
	}
	return patterns, nil
}

// IsIgnored checks a slash-separated relative path against ignore patterns.
// A pattern without a slash matches any path segment; "dir/" ignores a directory.
func IsIgnored(relPath string, patterns []string) bool {
	relPath = filepath.ToSlash(relPath)
	segments := strings.Split(relPath, "/")
	for _, pattern := range patterns {
		if strings.HasSuffix(pattern, "/") {
			dir := strings.Trim(pattern, "/")
			if relPath == dir || strings.HasPrefix(relPath, dir+"/") {
				return true
			}
			for _, seg := range segments[:len(segments)-1] {
				if seg == dir {
					return true
				}
			}
			continue
		}
		pattern = strings.TrimPrefix(pattern, "/")
		if match, _ := path.Match(pattern, relPath); match {
			return true
		}
		if !strings.Contains(pattern, "/") {
			for _, seg := range segments {
				if match, _ := path.Match(pattern, seg); match {
					return true
				}
			}
		}
	}
	return false
}

// ClearIgnoreCache clears all cached ignore patterns
func ClearIgnoreCache() {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	ignoreCache = make(map[string]*ignoreCacheEntry)
}
