package engine

import (
	"context"
	"errors"
	"time"

	"github.com/nanunh/genstack/code_analyzer"
	"github.com/nanunh/genstack/code_analyzer/contracts"
	"github.com/nanunh/genstack/code_analyzer/models"
	"github.com/nanunh/genstack/code_modifier"
	"github.com/nanunh/genstack/project_store"
	provider_contracts "github.com/nanunh/genstack/providers/contracts"
	"github.com/pterm/pterm"
)

// ErrNoOracle is returned by Modify when no generation backend is configured.
var ErrNoOracle = errors.New("no generation oracle configured")

// Options configures an Engine.
type Options struct {
	Analyzer code_analyzer.AnalyzerOptions
	Modifier code_modifier.Options
	// CacheMaxAge drops persisted records older than this at startup; zero keeps everything.
	CacheMaxAge time.Duration
}

// Engine is the public surface of the structural code model.
type Engine struct {
	registry project_store.Registry
	files    contracts.IFileStore
	analyzer *code_analyzer.CodeAnalyzer
	modifier *code_modifier.Modifier
	logger   *pterm.Logger
}

// New wires the analyzer and orchestrator over one file store. registry may
// be nil; when set, deleting a project also clears its cached structures.
// oracle may be nil for read-only use.
func New(registry project_store.Registry, files contracts.IFileStore, oracle provider_contracts.IGenerationOracle, opts Options, logger *pterm.Logger) (*Engine, error) {
	if logger == nil {
		logger = pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled)
	}
	analyzer, err := code_analyzer.NewCodeAnalyzer(files, opts.Analyzer, logger)
	if err != nil {
		return nil, err
	}

	if opts.CacheMaxAge > 0 {
		if removed, err := analyzer.Cache().CleanupExpired(opts.CacheMaxAge); err != nil {
			logger.Warn("failed to clean up expired structure records", logger.Args("error", err.Error()))
		} else if removed > 0 {
			logger.Debug("removed expired structure records", logger.Args("removed", removed))
		}
	}

	e := &Engine{
		registry: registry,
		files:    files,
		analyzer: analyzer,
		logger:   logger,
	}
	if oracle != nil {
		e.modifier = code_modifier.NewModifier(files, analyzer.Cache(), oracle, opts.Modifier, logger)
	}
	if registry != nil {
		registry.OnDelete(func(projectID string) {
			if err := analyzer.ClearCache(projectID); err != nil {
				logger.Warn("failed to clear cache of deleted project", logger.Args("project", projectID, "error", err.Error()))
			}
		})
	}
	return e, nil
}

// Registry returns the project registry, or nil.
func (e *Engine) Registry() project_store.Registry {
	return e.registry
}

// Analyzer exposes the read side, mostly for cache statistics.
func (e *Engine) Analyzer() *code_analyzer.CodeAnalyzer {
	return e.analyzer
}

// Modifier returns the orchestrator, or nil without an oracle.
func (e *Engine) Modifier() *code_modifier.Modifier {
	return e.modifier
}

func (e *Engine) GetStructure(ctx context.Context, projectID, path string) (models.FileStructure, error) {
	return e.analyzer.GetStructure(ctx, projectID, path)
}

func (e *Engine) GetProjectSummary(ctx context.Context, projectID string) (models.ProjectStructureSummary, error) {
	return e.analyzer.GetProjectSummary(ctx, projectID)
}

func (e *Engine) RefreshStructure(ctx context.Context, projectID, path string) (models.FileStructure, error) {
	return e.analyzer.RefreshStructure(ctx, projectID, path)
}

func (e *Engine) ClearCache(projectID string) error {
	return e.analyzer.ClearCache(projectID)
}

func (e *Engine) FindElements(ctx context.Context, projectID, name string) ([]models.ElementMatch, error) {
	return e.analyzer.FindElementsByName(ctx, projectID, name)
}

func (e *Engine) GetCacheStats(projectID string) (map[string]interface{}, error) {
	return e.analyzer.GetCacheStats(projectID)
}

// Modify runs one targeted modification.
func (e *Engine) Modify(ctx context.Context, projectID, path, instruction string) (models.ModificationResult, error) {
	if e.modifier == nil {
		return models.ModificationResult{
			Outcome:     models.OutcomeOracleFailure,
			Changes:     []string{},
			Diagnostics: []models.Issue{{Check: "oracle", Severity: models.SeverityError, Message: ErrNoOracle.Error()}},
		}, ErrNoOracle
	}
	return e.modifier.Modify(ctx, projectID, path, instruction)
}
