package engine

import (
	"context"
	"testing"

	"github.com/nanunh/genstack/code_analyzer"
	"github.com/nanunh/genstack/code_analyzer/models"
	"github.com/nanunh/genstack/project_store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mainGo = "package main\n\nfunc main() {\n}\n"

type stubOracle struct {
	response string
}

func (s stubOracle) Generate(ctx context.Context, originalContent string, scoped models.ScopedContext, instruction string) (string, error) {
	return s.response, nil
}

func TestEngine_ReadOnly(t *testing.T) {
	store := project_store.NewMemoryFileStore()
	store.Put("p", "main.go", mainGo)

	eng, err := New(nil, store, nil, Options{Analyzer: code_analyzer.AnalyzerOptions{CacheDir: t.TempDir()}}, nil)
	require.NoError(t, err)
	assert.Nil(t, eng.Modifier())

	fs, err := eng.GetStructure(context.Background(), "p", "main.go")
	require.NoError(t, err)
	require.Len(t, fs.Functions, 1)
	assert.Equal(t, "main", fs.Functions[0].Name)

	summary, err := eng.GetProjectSummary(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalFiles)

	result, err := eng.Modify(context.Background(), "p", "main.go", "add logging")
	assert.ErrorIs(t, err, ErrNoOracle)
	assert.Equal(t, models.OutcomeOracleFailure, result.Outcome)
	assert.False(t, result.Success)

	content, _ := store.Content("p", "main.go")
	assert.Equal(t, mainGo, content)
}

func TestEngine_Modify(t *testing.T) {
	store := project_store.NewMemoryFileStore()
	store.Put("p", "main.go", mainGo)
	oracle := stubOracle{response: "```go\npackage main\n\nfunc main() {\n\tprintln(1)\n}\n```"}

	eng, err := New(nil, store, oracle, Options{Analyzer: code_analyzer.AnalyzerOptions{CacheDir: t.TempDir()}}, nil)
	require.NoError(t, err)
	require.NotNil(t, eng.Modifier())

	result, err := eng.Modify(context.Background(), "p", "main.go", "print a number")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeApplied, result.Outcome)

	content, _ := store.Content("p", "main.go")
	assert.Contains(t, content, "println(1)")

	matches, err := eng.FindElements(context.Background(), "p", "main")
	require.NoError(t, err)
	assert.NotEmpty(t, matches)
}

func TestEngine_ProjectDeletionClearsCache(t *testing.T) {
	registry, err := project_store.NewSQLiteRegistry(":memory:", t.TempDir(), nil)
	require.NoError(t, err)
	defer registry.Close()
	files := project_store.NewDiskFileStore(registry, 0, nil)
	ctx := context.Background()

	eng, err := New(registry, files, nil, Options{Analyzer: code_analyzer.AnalyzerOptions{CacheDir: t.TempDir()}}, nil)
	require.NoError(t, err)
	assert.Equal(t, project_store.Registry(registry), eng.Registry())

	p, err := registry.Create(ctx, "demo", "")
	require.NoError(t, err)
	require.NoError(t, files.WriteFile(ctx, p.ID, "main.go", mainGo))
	_, err = eng.GetStructure(ctx, p.ID, "main.go")
	require.NoError(t, err)

	stats, err := eng.Analyzer().Cache().GetCacheStats(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats["cache_files"])

	require.NoError(t, registry.Delete(ctx, p.ID, true))

	stats, err = eng.Analyzer().Cache().GetCacheStats(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats["cache_files"])
	assert.Equal(t, 0, stats["memory_entries"])
}
