package code_analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/nanunh/genstack/code_analyzer/contracts"
	"github.com/nanunh/genstack/code_analyzer/models"
	"github.com/pterm/pterm"
	"github.com/zeebo/xxh3"
)

// maxVariables caps how many top-level variable names a record keeps.
const maxVariables = 20

// strategyExtractor is the capability every parsing strategy implements.
// A non-nil error means the strategy could not be used for this input and the
// caller must downgrade to the heuristic extractor.
type strategyExtractor interface {
	extract(ctx context.Context, path string, content []byte, spec models.LanguageSpec) (models.FileStructure, error)
}

// StructureExtractor dispatches to the strategy chosen by ResolveLanguage.
type StructureExtractor struct {
	strategies map[models.Strategy]strategyExtractor
	fallback   strategyExtractor
	logger     *pterm.Logger
}

// NewStructureExtractor builds an extractor with all three strategies wired.
func NewStructureExtractor(logger *pterm.Logger) contracts.IStructureExtractor {
	if logger == nil {
		logger = pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled)
	}
	heuristic := &heuristicExtractor{}
	return &StructureExtractor{
		strategies: map[models.Strategy]strategyExtractor{
			models.StrategyNativeGrammar:     &goNativeExtractor{},
			models.StrategyIncrementalParser: &treeSitterExtractor{},
			models.StrategyHeuristic:         heuristic,
		},
		fallback: heuristic,
		logger:   logger,
	}
}

// Extract never fails. Grammar problems downgrade to the heuristic strategy and
// TotalLines is always taken from the raw text.
func (se *StructureExtractor) Extract(ctx context.Context, path string, content []byte, spec models.LanguageSpec) models.FileStructure {
	strategy := spec.Strategy
	impl, ok := se.strategies[strategy]
	if !ok {
		impl, strategy = se.fallback, models.StrategyHeuristic
	}

	structure, err := se.safeExtract(ctx, impl, path, content, spec)
	if err != nil && strategy != models.StrategyHeuristic {
		se.logger.Debug("downgrading to heuristic extraction", se.logger.Args("path", path, "strategy", string(strategy), "error", err.Error()))
		strategy = models.StrategyHeuristic
		structure, _ = se.safeExtract(ctx, se.fallback, path, content, spec)
	}

	structure.Path = path
	structure.Language = spec.Tag
	structure.Strategy = strategy
	finalizeStructure(&structure, content)
	return structure
}

// safeExtract turns a panic inside a parser binding into ErrParseFailure.
func (se *StructureExtractor) safeExtract(ctx context.Context, impl strategyExtractor, path string, content []byte, spec models.LanguageSpec) (fs models.FileStructure, err error) {
	defer func() {
		if r := recover(); r != nil {
			fs = models.FileStructure{}
			err = fmt.Errorf("%w: %v", models.ErrParseFailure, r)
		}
	}()
	return impl.extract(ctx, path, content, spec)
}

func finalizeStructure(fs *models.FileStructure, content []byte) {
	fs.TotalLines = CountLines(content)
	fs.ContentHash = ContentHash(content)
	fs.Variables = uniqueStrings(fs.Variables)
	if len(fs.Variables) > maxVariables {
		fs.Variables = fs.Variables[:maxVariables]
	}
	fs.Normalize()
	fs.ComplexityScore = ComplexityScore(*fs)
}

// CountLines returns the number of lines in text: every newline ends a line and
// a trailing fragment without a newline counts as one more. Empty text has 0 lines.
func CountLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := 0
	for _, b := range content {
		if b == '\n' {
			n++
		}
	}
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}

// ContentHash is the xxh3 digest of a file's text.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(content))
}

// ComplexityScore weighs classes double and adds every parameter.
func ComplexityScore(fs models.FileStructure) int {
	score := len(fs.Functions) + 2*len(fs.Classes)
	for _, fn := range fs.Functions {
		score += len(fn.Params)
	}
	return score
}

func uniqueStrings(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]bool, len(values))
	out := values[:0:0]
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// splitLines splits text on '\n' without producing a trailing empty element
// for a final newline, so len(splitLines(x)) == CountLines(x).
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if strings.HasSuffix(content, "\n") {
		lines = lines[:len(lines)-1]
	}
	return lines
}
