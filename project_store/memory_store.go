package project_store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nanunh/genstack/code_analyzer/contracts"
	"github.com/nanunh/genstack/code_analyzer/models"
)

type memoryFile struct {
	content string
	modTime time.Time
}

// MemoryFileStore keeps project files in memory. Every write advances the
// file's modification time, even within one clock tick.
type MemoryFileStore struct {
	mu       sync.RWMutex
	projects map[string]map[string]memoryFile
	last     time.Time
	now      func() time.Time
}

var _ contracts.IFileStore = (*MemoryFileStore)(nil)

func NewMemoryFileStore() *MemoryFileStore {
	return &MemoryFileStore{projects: make(map[string]map[string]memoryFile), now: time.Now}
}

// AddProject registers an empty project.
func (s *MemoryFileStore) AddProject(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[projectID]; !ok {
		s.projects[projectID] = make(map[string]memoryFile)
	}
}

// Put writes a file, creating the project if needed.
func (s *MemoryFileStore) Put(projectID, relPath, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	files, ok := s.projects[projectID]
	if !ok {
		files = make(map[string]memoryFile)
		s.projects[projectID] = files
	}
	files[relPath] = memoryFile{content: content, modTime: s.tick()}
}

// Remove deletes a file if present.
func (s *MemoryFileStore) Remove(projectID, relPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projects[projectID], relPath)
}

// Content returns a file's content without the context plumbing.
func (s *MemoryFileStore) Content(projectID, relPath string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.projects[projectID][relPath]
	return f.content, ok
}

func (s *MemoryFileStore) tick() time.Time {
	t := s.now()
	if !t.After(s.last) {
		t = s.last.Add(time.Millisecond)
	}
	s.last = t
	return t
}

func (s *MemoryFileStore) lookup(projectID, relPath string) (memoryFile, string, error) {
	cleaned, err := CleanPath(relPath)
	if err != nil {
		return memoryFile{}, "", fmt.Errorf("%w: %v", models.ErrFileNotFound, err)
	}
	files, ok := s.projects[projectID]
	if !ok {
		return memoryFile{}, "", fmt.Errorf("%w: %s", models.ErrProjectNotFound, projectID)
	}
	f, ok := files[cleaned]
	if !ok {
		return memoryFile{}, "", fmt.Errorf("%w: %s", models.ErrFileNotFound, cleaned)
	}
	return f, cleaned, nil
}

func (s *MemoryFileStore) ReadFile(ctx context.Context, projectID, relPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, _, err := s.lookup(projectID, relPath)
	return f.content, err
}

func (s *MemoryFileStore) WriteFile(ctx context.Context, projectID, relPath, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cleaned, err := CleanPath(relPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	files, ok := s.projects[projectID]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrProjectNotFound, projectID)
	}
	files[cleaned] = memoryFile{content: content, modTime: s.tick()}
	return nil
}

func (s *MemoryFileStore) ListFiles(ctx context.Context, projectID string) ([]models.FileEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	files, ok := s.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrProjectNotFound, projectID)
	}
	entries := make([]models.FileEntry, 0, len(files))
	for p, f := range files {
		if isReserved(p) || backupFile.MatchString(p) {
			continue
		}
		entries = append(entries, models.FileEntry{Path: p, LastModified: f.modTime, Size: int64(len(f.content))})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (s *MemoryFileStore) Stat(ctx context.Context, projectID, relPath string) (models.FileEntry, error) {
	if err := ctx.Err(); err != nil {
		return models.FileEntry{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, cleaned, err := s.lookup(projectID, relPath)
	if err != nil {
		return models.FileEntry{}, err
	}
	return models.FileEntry{Path: cleaned, LastModified: f.modTime, Size: int64(len(f.content))}, nil
}
