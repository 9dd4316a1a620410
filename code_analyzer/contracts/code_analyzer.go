package contracts

import (
	"context"

	"github.com/nanunh/genstack/code_analyzer/models"
)

// IFileStore is the only path through which project files are read or written.
type IFileStore interface {
	ReadFile(ctx context.Context, projectID, path string) (string, error)
	WriteFile(ctx context.Context, projectID, path, content string) error
	ListFiles(ctx context.Context, projectID string) ([]models.FileEntry, error)
	Stat(ctx context.Context, projectID, path string) (models.FileEntry, error)
}

// IStructureExtractor turns source text into a FileStructure. Implementations never fail.
type IStructureExtractor interface {
	Extract(ctx context.Context, path string, content []byte, spec models.LanguageSpec) models.FileStructure
}

// IStructureCache stores one FileStructure per (project, path).
type IStructureCache interface {
	Get(ctx context.Context, projectID, path string) (models.FileStructure, error)
	Refresh(ctx context.Context, projectID, path, content string) (models.FileStructure, error)
	InvalidateAll(projectID string) error
	Delete(projectID, path string) error
	Prune(projectID string, live map[string]struct{}) (int, error)
}

// ICodeAnalyzer is the read side of the structural model.
type ICodeAnalyzer interface {
	GetStructure(ctx context.Context, projectID, path string) (models.FileStructure, error)
	RefreshStructure(ctx context.Context, projectID, path string) (models.FileStructure, error)
	GetProjectSummary(ctx context.Context, projectID string) (models.ProjectStructureSummary, error)
	FindElementsByName(ctx context.Context, projectID, name string) ([]models.ElementMatch, error)
	ClearCache(projectID string) error
	GetCacheStats(projectID string) (map[string]interface{}, error)
}
