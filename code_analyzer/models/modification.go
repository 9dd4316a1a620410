package models

import (
	"fmt"
	"strings"
)

// ModificationKind is the intent detected from an instruction.
type ModificationKind string

const (
	KindAdd      ModificationKind = "add"
	KindFix      ModificationKind = "fix"
	KindUpdate   ModificationKind = "update"
	KindRemove   ModificationKind = "remove"
	KindRefactor ModificationKind = "refactor"
	KindGeneral  ModificationKind = "general"
)

// Outcome tells callers why a modification ended the way it did.
type Outcome string

const (
	OutcomeApplied       Outcome = "applied"
	OutcomeUnchanged     Outcome = "unchanged"
	OutcomeRejected      Outcome = "rejected"
	OutcomeOracleFailure Outcome = "oracle_failure"
	OutcomeConflict      Outcome = "conflict"
	OutcomeNotFound      Outcome = "not_found"
	OutcomeCancelled     Outcome = "cancelled"
)

// ScopeMode says whether the oracle sees one symbol or the whole file.
type ScopeMode string

const (
	ScopeSymbol ScopeMode = "symbol"
	ScopeFile   ScopeMode = "file"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validator or orchestrator diagnostic.
type Issue struct {
	Check       string   `json:"check" yaml:"check"`
	Severity    Severity `json:"severity" yaml:"severity"`
	Line        int      `json:"line,omitempty" yaml:"line,omitempty"`
	Message     string   `json:"message" yaml:"message"`
	Correctable bool     `json:"correctable" yaml:"correctable"`
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s", i.Check, i.Line, i.Message)
	}
	return fmt.Sprintf("[%s] %s", i.Check, i.Message)
}

// SymbolScope is the function or class an instruction targets.
type SymbolScope struct {
	Kind    string   `json:"kind" yaml:"kind"`
	Name    string   `json:"name" yaml:"name"`
	Line    int      `json:"line" yaml:"line"`
	EndLine int      `json:"end_line" yaml:"end_line"`
	Params  []string `json:"params,omitempty" yaml:"params,omitempty"`
	Methods []string `json:"methods,omitempty" yaml:"methods,omitempty"`
}

// ScopedContext is the structural information handed to the generation oracle.
type ScopedContext struct {
	Mode             ScopeMode        `json:"mode" yaml:"mode"`
	Path             string           `json:"path" yaml:"path"`
	Language         string           `json:"language" yaml:"language"`
	ModificationKind ModificationKind `json:"modification_kind" yaml:"modification_kind"`
	Target           *SymbolScope     `json:"target,omitempty" yaml:"target,omitempty"`
	Section          string           `json:"section,omitempty" yaml:"section,omitempty"`
	Callers          []string         `json:"callers,omitempty" yaml:"callers,omitempty"`
	Callees          []string         `json:"callees,omitempty" yaml:"callees,omitempty"`
	Summary          *FileStructure   `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Describe renders the scope as plain text for an oracle prompt.
func (sc ScopedContext) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s (%s)\n", sc.Path, sc.Language)
	fmt.Fprintf(&b, "Modification type: %s\n", sc.ModificationKind)

	if sc.Mode == ScopeSymbol && sc.Target != nil {
		t := sc.Target
		fmt.Fprintf(&b, "Target %s: %s (lines %d-%d)\n", t.Kind, t.Name, t.Line, t.EndLine)
		if len(t.Params) > 0 {
			fmt.Fprintf(&b, "Parameters: %s\n", strings.Join(t.Params, ", "))
		}
		if len(t.Methods) > 0 {
			fmt.Fprintf(&b, "Methods: %s\n", strings.Join(t.Methods, ", "))
		}
		if len(sc.Callers) > 0 {
			fmt.Fprintf(&b, "Called by: %s\n", strings.Join(sc.Callers, ", "))
		}
		if len(sc.Callees) > 0 {
			fmt.Fprintf(&b, "Calls: %s\n", strings.Join(sc.Callees, ", "))
		}
		fmt.Fprintf(&b, "\nCurrent %s:\n%s\n", t.Kind, sc.Section)
		return b.String()
	}

	if s := sc.Summary; s != nil {
		fmt.Fprintf(&b, "Total lines: %d\n", s.TotalLines)
		for _, fn := range s.Functions {
			fmt.Fprintf(&b, "function %s(%s) at line %d\n", fn.Name, strings.Join(fn.Params, ", "), fn.Line)
		}
		for _, cls := range s.Classes {
			fmt.Fprintf(&b, "class %s at line %d, methods: %s\n", cls.Name, cls.Line, strings.Join(cls.Methods, ", "))
		}
		imports := s.Imports
		if len(imports) > 5 {
			imports = imports[:5]
		}
		for _, imp := range imports {
			fmt.Fprintf(&b, "import %s\n", imp)
		}
	}
	return b.String()
}

// ModificationRequest is what the orchestrator sends to the oracle. It is never persisted.
type ModificationRequest struct {
	ProjectID       string
	Path            string
	OriginalContent string
	Scope           ScopedContext
	Instruction     string
}

// ModificationResult is returned to the caller of a modification.
type ModificationResult struct {
	Success         bool     `json:"success" yaml:"success"`
	Outcome         Outcome  `json:"outcome" yaml:"outcome"`
	ModifiedContent string   `json:"modified_content,omitempty" yaml:"modified_content,omitempty"`
	Changes         []string `json:"changes" yaml:"changes"`
	StrategyUsed    string   `json:"strategy_used" yaml:"strategy_used"`
	Diagnostics     []Issue  `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	BackupPath      string   `json:"backup_path,omitempty" yaml:"backup_path,omitempty"`
}
