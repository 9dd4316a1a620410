package code_analyzer

import (
	"context"
	"fmt"
	"runtime"

	"github.com/nanunh/genstack/code_analyzer/contracts"
	"github.com/nanunh/genstack/code_analyzer/models"
	"github.com/pterm/pterm"
)

// CodeAnalyzer is the read side of the structural model: it answers structure
// queries for project files through the structure cache.
type CodeAnalyzer struct {
	files   contracts.IFileStore
	cache   *StructureCache
	workers int
	logger  *pterm.Logger
}

// AnalyzerOptions configures a CodeAnalyzer.
type AnalyzerOptions struct {
	CacheDir string
	Cache    CacheOptions
	// Workers bounds how many files are extracted concurrently during aggregation.
	Workers int
}

// NewCodeAnalyzer initializes a new CodeAnalyzer.
func NewCodeAnalyzer(files contracts.IFileStore, opts AnalyzerOptions, logger *pterm.Logger) (*CodeAnalyzer, error) {
	if logger == nil {
		logger = pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled)
	}
	cache, err := NewStructureCache(opts.CacheDir, files, NewStructureExtractor(logger), opts.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize structure cache: %w", err)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &CodeAnalyzer{
		files:   files,
		cache:   cache,
		workers: workers,
		logger:  logger,
	}, nil
}

var _ contracts.ICodeAnalyzer = (*CodeAnalyzer)(nil)

// Cache exposes the structure cache so writers can refresh records after a write.
func (analyzer *CodeAnalyzer) Cache() *StructureCache {
	return analyzer.cache
}

func (analyzer *CodeAnalyzer) GetStructure(ctx context.Context, projectID, path string) (models.FileStructure, error) {
	return analyzer.cache.Get(ctx, projectID, path)
}

// RefreshStructure re-reads the file from the file store and replaces its record.
func (analyzer *CodeAnalyzer) RefreshStructure(ctx context.Context, projectID, path string) (models.FileStructure, error) {
	content, err := analyzer.files.ReadFile(ctx, projectID, path)
	if err != nil {
		return models.FileStructure{}, err
	}
	return analyzer.cache.Refresh(ctx, projectID, path, content)
}

func (analyzer *CodeAnalyzer) GetProjectSummary(ctx context.Context, projectID string) (models.ProjectStructureSummary, error) {
	return analyzer.Aggregate(ctx, projectID)
}

func (analyzer *CodeAnalyzer) FindElementsByName(ctx context.Context, projectID, name string) ([]models.ElementMatch, error) {
	return analyzer.cache.FindElementsByName(ctx, projectID, name)
}

func (analyzer *CodeAnalyzer) ClearCache(projectID string) error {
	if err := analyzer.cache.InvalidateAll(projectID); err != nil {
		return err
	}
	analyzer.logger.Info("structure cache cleared", analyzer.logger.Args("project", projectID))
	return nil
}

// GetCacheStats merges storage and performance statistics.
func (analyzer *CodeAnalyzer) GetCacheStats(projectID string) (map[string]interface{}, error) {
	storage, err := analyzer.cache.GetCacheStats(projectID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"storage":     storage,
		"performance": analyzer.cache.GetPerformanceStats(),
	}, nil
}
