package project_store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/nanunh/genstack/code_analyzer/contracts"
	"github.com/nanunh/genstack/code_analyzer/models"
	"github.com/nanunh/genstack/utils"
	"github.com/pterm/pterm"
)

const defaultMaxFileSize = 1 << 20

// backupFile matches <stem>_backup_<yyyymmdd_hhmmss><ext>.
var backupFile = regexp.MustCompile(`_backup_\d{8}_\d{6}(\.[^/]*)?$`)

// DiskFileStore serves project files from the directories of a Registry.
type DiskFileStore struct {
	registry    Registry
	maxFileSize int64
	logger      *pterm.Logger
}

var _ contracts.IFileStore = (*DiskFileStore)(nil)

func NewDiskFileStore(registry Registry, maxFileSize int64, logger *pterm.Logger) *DiskFileStore {
	if maxFileSize <= 0 {
		maxFileSize = defaultMaxFileSize
	}
	if logger == nil {
		logger = pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled)
	}
	return &DiskFileStore{registry: registry, maxFileSize: maxFileSize, logger: logger}
}

// CleanPath normalizes a project-relative path and rejects paths that leave the root.
func CleanPath(relPath string) (string, error) {
	slashed := filepath.ToSlash(relPath)
	if strings.HasPrefix(slashed, "/") || filepath.IsAbs(relPath) {
		return "", fmt.Errorf("absolute path not allowed: %s", relPath)
	}
	cleaned := path.Clean(slashed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("path outside project root: %s", relPath)
	}
	return cleaned, nil
}

func (s *DiskFileStore) resolve(ctx context.Context, projectID, relPath string) (string, string, error) {
	project, err := s.registry.Get(ctx, projectID)
	if err != nil {
		return "", "", err
	}
	cleaned, err := CleanPath(relPath)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", models.ErrFileNotFound, err)
	}
	return filepath.Join(project.Root, filepath.FromSlash(cleaned)), cleaned, nil
}

func (s *DiskFileStore) ReadFile(ctx context.Context, projectID, relPath string) (string, error) {
	full, cleaned, err := s.resolve(ctx, projectID, relPath)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", models.ErrFileNotFound, cleaned)
		}
		return "", err
	}
	if info.Size() > s.maxFileSize {
		return "", fmt.Errorf("file %s exceeds max size (%d > %d bytes)", cleaned, info.Size(), s.maxFileSize)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", cleaned, err)
	}
	return string(data), nil
}

// WriteFile replaces a file through a temp file and rename, keeping its mode.
func (s *DiskFileStore) WriteFile(ctx context.Context, projectID, relPath, content string) error {
	full, cleaned, err := s.resolve(ctx, projectID, relPath)
	if err != nil {
		return err
	}
	if isReserved(cleaned) {
		return fmt.Errorf("refusing to overwrite %s", cleaned)
	}
	mode := os.FileMode(0644)
	if info, err := os.Stat(full); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", cleaned, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".genstack-*")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", cleaned, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", cleaned, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", cleaned, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", cleaned, err)
	}
	s.logger.Debug("file written", s.logger.Args("project", projectID, "path", cleaned, "bytes", len(content)))
	return nil
}

// ListFiles walks the project root. Ignored paths, registry bookkeeping,
// modification backups and oversized files are left out.
func (s *DiskFileStore) ListFiles(ctx context.Context, projectID string) ([]models.FileEntry, error) {
	project, err := s.registry.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	patterns, err := utils.GetIgnorePatterns(project.Root)
	if err != nil {
		s.logger.Warn("ignoring unreadable ignore file", s.logger.Args("project", projectID, "error", err.Error()))
	}

	var entries []models.FileEntry
	err = filepath.WalkDir(project.Root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			s.logger.Debug("walk error", s.logger.Args("path", p, "error", walkErr.Error()))
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == project.Root {
			return nil
		}
		rel, err := filepath.Rel(project.Root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if utils.IsDefaultIgnored(rel) || utils.IsIgnored(rel+"/", patterns) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || isReserved(rel) || backupFile.MatchString(rel) {
			return nil
		}
		if utils.IsDefaultIgnored(rel) || utils.IsIgnored(rel, patterns) {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > s.maxFileSize {
			return nil
		}
		entries = append(entries, models.FileEntry{Path: rel, LastModified: info.ModTime(), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (s *DiskFileStore) Stat(ctx context.Context, projectID, relPath string) (models.FileEntry, error) {
	full, cleaned, err := s.resolve(ctx, projectID, relPath)
	if err != nil {
		return models.FileEntry{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.FileEntry{}, fmt.Errorf("%w: %s", models.ErrFileNotFound, cleaned)
		}
		return models.FileEntry{}, err
	}
	if info.IsDir() {
		return models.FileEntry{}, fmt.Errorf("%w: %s is a directory", models.ErrFileNotFound, cleaned)
	}
	return models.FileEntry{Path: cleaned, LastModified: info.ModTime(), Size: info.Size()}, nil
}
