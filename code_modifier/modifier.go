package code_modifier

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/nanunh/genstack/code_analyzer"
	"github.com/nanunh/genstack/code_analyzer/contracts"
	"github.com/nanunh/genstack/code_analyzer/models"
	"github.com/nanunh/genstack/code_analyzer/validator"
	provider_contracts "github.com/nanunh/genstack/providers/contracts"
	"github.com/pterm/pterm"
	"golang.org/x/sync/semaphore"
)

const (
	defaultMaxConcurrentGenerations = 4
	defaultOracleTimeout            = 2 * time.Minute
)

// State is a step of a single modification run.
type State string

const (
	StateLoadingContext       State = "loading_context"
	StateBuildingScope        State = "building_scope"
	StateDelegatingGeneration State = "delegating_generation"
	StateValidating           State = "validating"
	StateDone                 State = "done"
)

// Options configures a Modifier.
type Options struct {
	MaxConcurrentGenerations int64
	OracleTimeout            time.Duration
	// Backup writes the original content next to the file before overwriting it.
	Backup bool
}

// Modifier drives a targeted modification of one file: load, scope, generate,
// validate, then commit or reject. Nothing is written unless every step succeeds.
type Modifier struct {
	files     contracts.IFileStore
	cache     contracts.IStructureCache
	oracle    provider_contracts.IGenerationOracle
	validator *validator.Validator
	extractor contracts.IStructureExtractor
	limiter   *semaphore.Weighted
	timeout   time.Duration
	backup    bool
	logger    *pterm.Logger

	mu       sync.Mutex
	inFlight map[string]bool

	// observe is called on every state transition; tests use it to inspect ordering.
	observe func(projectID, path string, state State)
	now     func() time.Time
}

// NewModifier wires the orchestrator to its collaborators.
func NewModifier(files contracts.IFileStore, cache contracts.IStructureCache, oracle provider_contracts.IGenerationOracle, opts Options, logger *pterm.Logger) *Modifier {
	if opts.MaxConcurrentGenerations <= 0 {
		opts.MaxConcurrentGenerations = defaultMaxConcurrentGenerations
	}
	if opts.OracleTimeout <= 0 {
		opts.OracleTimeout = defaultOracleTimeout
	}
	if logger == nil {
		logger = pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled)
	}
	return &Modifier{
		files:     files,
		cache:     cache,
		oracle:    oracle,
		validator: validator.Default(),
		extractor: code_analyzer.NewStructureExtractor(logger),
		limiter:   semaphore.NewWeighted(opts.MaxConcurrentGenerations),
		timeout:   opts.OracleTimeout,
		backup:    opts.Backup,
		logger:    logger,
		inFlight:  make(map[string]bool),
		now:       time.Now,
	}
}

// SetObserver registers a callback for state transitions.
func (m *Modifier) SetObserver(fn func(projectID, path string, state State)) {
	m.observe = fn
}

func (m *Modifier) enter(projectID, filePath string, state State) {
	m.logger.Trace("modification state", m.logger.Args("project", projectID, "path", filePath, "state", string(state)))
	if m.observe != nil {
		m.observe(projectID, filePath, state)
	}
}

// acquire admits one run per (project, path). A second request is rejected, never queued.
func (m *Modifier) acquire(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight[key] {
		return false
	}
	m.inFlight[key] = true
	return true
}

func (m *Modifier) release(key string) {
	m.mu.Lock()
	delete(m.inFlight, key)
	m.mu.Unlock()
}

// Modify applies instruction to one file. Oracle and validation problems are
// reported through the result; the returned error is only set for a missing
// project or file and for a conflicting in-flight run.
func (m *Modifier) Modify(ctx context.Context, projectID, filePath, instruction string) (models.ModificationResult, error) {
	filePath = strings.TrimPrefix(path.Clean("/"+filePath), "/")
	key := projectID + "\x00" + filePath
	if !m.acquire(key) {
		err := fmt.Errorf("%w: %s", models.ErrConcurrentModification, filePath)
		return failed(models.OutcomeConflict, "", issue("admission", err.Error())), err
	}
	defer m.release(key)

	// LoadingContext
	m.enter(projectID, filePath, StateLoadingContext)
	original, err := m.files.ReadFile(ctx, projectID, filePath)
	if err != nil {
		return m.loadFailure(err)
	}
	before, err := m.cache.Refresh(ctx, projectID, filePath, original)
	if err != nil {
		return m.loadFailure(err)
	}

	// BuildingScope
	m.enter(projectID, filePath, StateBuildingScope)
	scope := BuildScope(before, original, instruction)
	removed := RemovalTargets(instruction)
	strategy := fmt.Sprintf("%s/%s", scope.Mode, before.Strategy)
	if err := ctx.Err(); err != nil {
		return failed(models.OutcomeCancelled, strategy, issue("context", err.Error())), nil
	}

	// DelegatingGeneration
	m.enter(projectID, filePath, StateDelegatingGeneration)
	payload, outcome, diag := m.generate(ctx, original, scope, instruction)
	if outcome != "" {
		return failed(outcome, strategy, diag), nil
	}

	lang := languageOf(filePath, original)
	candidate := payload
	wholeFile := scope.Mode == models.ScopeFile
	if scope.Mode == models.ScopeSymbol {
		removing := removed[strings.ToLower(scope.Target.Name)]
		if payload == "" && !removing {
			return failed(models.OutcomeOracleFailure, strategy, issue("oracle", "empty response")), nil
		}
		if payload != "" && m.coversFile(ctx, filePath, payload, lang, before, scope.Target) {
			m.logger.Debug("symbol response carries the whole file", m.logger.Args("project", projectID, "path", filePath, "target", scope.Target.Name))
			wholeFile = true
		} else {
			candidate = spliceSection(original, scope.Target.Line, scope.Target.EndLine, reindent(payload, scope.Section))
		}
	}
	if wholeFile {
		if payload == "" {
			return failed(models.OutcomeOracleFailure, strategy, issue("oracle", "empty response")), nil
		}
		if strings.HasSuffix(original, "\n") && !strings.HasSuffix(candidate, "\n") {
			candidate += "\n"
		}
	}

	// Validating
	m.enter(projectID, filePath, StateValidating)
	candidate, diagnostics, ok := m.validate(ctx, original, candidate, filePath, lang, before, removed)
	if !ok {
		return failed(models.OutcomeRejected, strategy, diagnostics...), nil
	}

	// Done
	m.enter(projectID, filePath, StateDone)
	if err := ctx.Err(); err != nil {
		return failed(models.OutcomeCancelled, strategy, issue("context", err.Error())), nil
	}
	if strings.TrimSpace(candidate) == strings.TrimSpace(original) {
		return models.ModificationResult{
			Success:      true,
			Outcome:      models.OutcomeUnchanged,
			Changes:      []string{"No changes needed"},
			StrategyUsed: strategy,
			Diagnostics:  diagnostics,
		}, nil
	}

	// From here on the run commits fully even if the caller goes away.
	commitCtx := context.WithoutCancel(ctx)
	result := models.ModificationResult{
		Outcome:      models.OutcomeApplied,
		StrategyUsed: strategy,
		Diagnostics:  diagnostics,
	}
	if m.backup {
		backupPath := BackupName(filePath, m.now())
		if err := m.files.WriteFile(commitCtx, projectID, backupPath, original); err != nil {
			return failed(models.OutcomeRejected, strategy, issue("backup", err.Error())), nil
		}
		result.BackupPath = backupPath
	}
	if err := m.files.WriteFile(commitCtx, projectID, filePath, candidate); err != nil {
		return failed(models.OutcomeRejected, strategy, issue("write", err.Error())), nil
	}
	after, err := m.cache.Refresh(commitCtx, projectID, filePath, candidate)
	if err != nil {
		m.logger.Warn("failed to refresh structure after write", m.logger.Args("project", projectID, "path", filePath, "error", err.Error()))
	}

	result.Success = true
	result.ModifiedContent = candidate
	result.Changes = DescribeChanges(before, after)
	if len(result.Changes) == 0 {
		if scope.Target != nil {
			result.Changes = []string{fmt.Sprintf("Modified %s '%s' at line %d", scope.Target.Kind, scope.Target.Name, scope.Target.Line)}
		} else {
			result.Changes = []string{"Updated file content"}
		}
	}
	m.logger.Info("modification applied", m.logger.Args("project", projectID, "path", filePath, "strategy", strategy))
	return result, nil
}

func (m *Modifier) loadFailure(err error) (models.ModificationResult, error) {
	if errors.Is(err, models.ErrFileNotFound) || errors.Is(err, models.ErrProjectNotFound) {
		return failed(models.OutcomeNotFound, "", issue("load", err.Error())), err
	}
	return failed(models.OutcomeRejected, "", issue("load", err.Error())), err
}

// generate calls the oracle under the concurrency limit and timeout. A
// non-empty outcome means the run must stop.
func (m *Modifier) generate(ctx context.Context, original string, scope models.ScopedContext, instruction string) (string, models.Outcome, models.Issue) {
	if err := m.limiter.Acquire(ctx, 1); err != nil {
		return "", models.OutcomeCancelled, issue("context", err.Error())
	}
	defer m.limiter.Release(1)

	oracleCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	raw, err := m.oracle.Generate(oracleCtx, original, scope, instruction)
	if ctx.Err() != nil {
		return "", models.OutcomeCancelled, issue("context", ctx.Err().Error())
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(oracleCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", m.timeout, err)
		}
		return "", models.OutcomeOracleFailure, issue("oracle", fmt.Errorf("%w: %v", models.ErrOracleFailure, err).Error())
	}
	return ExtractCode(raw), "", models.Issue{}
}

// coversFile reports whether a payload generated for one symbol also declares
// other top-level symbols of the file, meaning the oracle answered with the
// whole file instead of the section.
func (m *Modifier) coversFile(ctx context.Context, filePath, payload string, lang models.LanguageSpec, before models.FileStructure, target *models.SymbolScope) bool {
	got := m.extractor.Extract(ctx, filePath, []byte(payload), lang)
	declared := make(map[string]bool)
	for _, fn := range got.Functions {
		declared[fn.Name] = true
	}
	for _, cls := range got.Classes {
		declared[cls.Name] = true
	}
	if !declared[target.Name] {
		return false
	}
	outside := func(line int) bool { return line < target.Line || line > target.EndLine }
	for _, fn := range before.Functions {
		if fn.Name != target.Name && outside(fn.Line) && declared[fn.Name] {
			return true
		}
	}
	for _, cls := range before.Classes {
		if cls.Name != target.Name && outside(cls.Line) && !encloses(cls, target) && declared[cls.Name] {
			return true
		}
	}
	return false
}

func encloses(cls models.ClassInfo, target *models.SymbolScope) bool {
	return cls.Line <= target.Line && cls.EndLine >= target.EndLine
}

func languageOf(filePath, content string) models.LanguageSpec {
	sniff := content
	if len(sniff) > 512 {
		sniff = sniff[:512]
	}
	return code_analyzer.ResolveLanguage(filePath, []byte(sniff))
}

// validate runs the checks, applies a single correctable fix and validates
// once more. It returns the final candidate, diagnostics and whether it passed.
func (m *Modifier) validate(ctx context.Context, original, candidate, filePath string, lang models.LanguageSpec, before models.FileStructure, removed map[string]bool) (string, []models.Issue, bool) {
	in := validator.Input{
		Original:  original,
		Candidate: candidate,
		Language:  lang,
		Before:    &before,
		Removed:   removed,
	}
	after := m.extractor.Extract(ctx, filePath, []byte(candidate), lang)
	in.After = &after

	report := m.validator.Validate(in)
	if report.Passed {
		return candidate, report.Issues, true
	}
	if report.CorrectedText == nil {
		return candidate, report.Issues, false
	}

	in.Candidate = *report.CorrectedText
	corrected := m.extractor.Extract(ctx, filePath, []byte(in.Candidate), lang)
	in.After = &corrected
	second := m.validator.Validate(in)
	if !second.Passed {
		return candidate, append(report.Issues, second.Issues...), false
	}

	diagnostics := make([]models.Issue, 0, len(report.Issues)+len(second.Issues))
	for _, is := range report.Issues {
		if is.Severity == models.SeverityWarning {
			continue
		}
		is.Severity = models.SeverityWarning
		is.Message = "corrected: " + is.Message
		diagnostics = append(diagnostics, is)
	}
	return in.Candidate, append(diagnostics, second.Issues...), true
}

// BackupName returns <stem>_backup_<yyyymmdd_hhmmss><ext> next to filePath.
func BackupName(filePath string, at time.Time) string {
	ext := path.Ext(filePath)
	stem := strings.TrimSuffix(filePath, ext)
	return fmt.Sprintf("%s_backup_%s%s", stem, at.Format("20060102_150405"), ext)
}

func issue(check, message string) models.Issue {
	return models.Issue{Check: check, Severity: models.SeverityError, Message: message}
}

func failed(outcome models.Outcome, strategy string, diagnostics ...models.Issue) models.ModificationResult {
	return models.ModificationResult{
		Success:      false,
		Outcome:      outcome,
		Changes:      []string{},
		StrategyUsed: strategy,
		Diagnostics:  diagnostics,
	}
}
