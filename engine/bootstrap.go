package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/nanunh/genstack/code_analyzer"
	analyzer_models "github.com/nanunh/genstack/code_analyzer/models"
	"github.com/nanunh/genstack/code_modifier"
	"github.com/nanunh/genstack/config"
	"github.com/nanunh/genstack/project_store"
	"github.com/nanunh/genstack/providers"
	token_contracts "github.com/nanunh/genstack/token_management/contracts"
	"github.com/pterm/pterm"
)

// Runtime owns everything built from a Config.
type Runtime struct {
	*Engine
	Oracle *LazyOracle
	closer func() error
}

// Close releases the registry database.
func (r *Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}

// FromConfig opens the registry, scans the projects directory and wires the
// engine to the disk file store and the configured provider.
func FromConfig(ctx context.Context, cfg *config.Config, tokens token_contracts.ITokenManagement, logger *pterm.Logger) (*Runtime, error) {
	registry, err := project_store.NewSQLiteRegistry(cfg.RegistryPath, cfg.ProjectsDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open project registry: %w", err)
	}
	if loaded, err := registry.Load(ctx); err != nil {
		logger.Warn("failed to scan projects directory", logger.Args("dir", cfg.ProjectsDir, "error", err.Error()))
	} else {
		logger.Debug("projects loaded", logger.Args("count", loaded))
	}

	files := project_store.NewDiskFileStore(registry, cfg.Analyzer.MaxFileSize, logger)
	oracle := NewLazyOracle(cfg.AIProviderConfig, tokens)

	eng, err := New(registry, files, oracle, Options{
		Analyzer: code_analyzer.AnalyzerOptions{
			CacheDir: cfg.CacheDir,
			Cache: code_analyzer.CacheOptions{
				MaxMemoryEntries: cfg.Cache.MaxMemoryEntries,
				VerifyHash:       cfg.Cache.VerifyHash,
			},
			Workers: cfg.Analyzer.Workers,
		},
		Modifier: code_modifier.Options{
			MaxConcurrentGenerations: cfg.Modifier.MaxConcurrentGenerations,
			OracleTimeout:            cfg.Modifier.OracleTimeout,
			Backup:                   cfg.Modifier.Backup,
		},
		CacheMaxAge: cfg.Cache.MaxAge,
	}, logger)
	if err != nil {
		registry.Close()
		return nil, err
	}
	return &Runtime{Engine: eng, Oracle: oracle, closer: registry.Close}, nil
}

// LazyOracle creates the chat provider on first use, so read-only commands
// never need provider credentials.
type LazyOracle struct {
	config *providers.AIProviderConfig
	tokens token_contracts.ITokenManagement

	once    sync.Once
	oracle  *providers.ChatOracle
	err     error
	onChunk func(string)
}

func NewLazyOracle(config *providers.AIProviderConfig, tokens token_contracts.ITokenManagement) *LazyOracle {
	return &LazyOracle{config: config, tokens: tokens}
}

// OnChunk forwards streamed content; it must be set before the first Generate.
func (l *LazyOracle) OnChunk(fn func(string)) {
	l.onChunk = fn
}

func (l *LazyOracle) Generate(ctx context.Context, originalContent string, scoped analyzer_models.ScopedContext, instruction string) (string, error) {
	l.once.Do(func() {
		chat, err := providers.ChatProviderFactory(ctx, l.config, l.tokens)
		if err != nil {
			l.err = err
			return
		}
		l.oracle = providers.NewChatOracle(chat)
		if l.onChunk != nil {
			l.oracle.OnChunk(l.onChunk)
		}
	})
	if l.err != nil {
		return "", l.err
	}
	return l.oracle.Generate(ctx, originalContent, scoped, instruction)
}
