package models

import "time"

// Strategy names the parser family used to build a FileStructure.
type Strategy string

const (
	StrategyNativeGrammar     Strategy = "native-grammar"
	StrategyIncrementalParser Strategy = "general-incremental-parser"
	StrategyHeuristic         Strategy = "heuristic-fallback"
)

// LanguageSpec is the resolved language of a file and how to parse it.
type LanguageSpec struct {
	Tag      string   `json:"tag" yaml:"tag"`
	Strategy Strategy `json:"strategy" yaml:"strategy"`
	Family   string   `json:"family" yaml:"family"`
	Category string   `json:"category" yaml:"category"`
}

// FunctionInfo describes a function or method found in a file.
type FunctionInfo struct {
	Name    string   `json:"name" yaml:"name"`
	Line    int      `json:"line" yaml:"line"`
	EndLine int      `json:"end_line" yaml:"end_line"`
	Params  []string `json:"params" yaml:"params"`
	Calls   []string `json:"calls" yaml:"calls"`
}

// ClassInfo describes a class-like declaration (class, struct, interface, trait, enum).
type ClassInfo struct {
	Name    string   `json:"name" yaml:"name"`
	Line    int      `json:"line" yaml:"line"`
	EndLine int      `json:"end_line" yaml:"end_line"`
	Methods []string `json:"methods" yaml:"methods"`
}

// FileStructure is the normalized structural summary of one source file.
// It carries no wall-clock data of its own so that identical input always
// produces an identical record.
type FileStructure struct {
	Path            string         `json:"path" yaml:"path"`
	Language        string         `json:"language" yaml:"language"`
	Strategy        Strategy       `json:"strategy" yaml:"strategy"`
	LastModified    time.Time      `json:"last_modified" yaml:"last_modified"`
	Functions       []FunctionInfo `json:"functions" yaml:"functions"`
	Classes         []ClassInfo    `json:"classes" yaml:"classes"`
	Imports         []string       `json:"imports" yaml:"imports"`
	Variables       []string       `json:"variables" yaml:"variables"`
	TotalLines      int            `json:"total_lines" yaml:"total_lines"`
	ContentHash     string         `json:"content_hash" yaml:"content_hash"`
	HasSyntaxErrors bool           `json:"has_syntax_errors" yaml:"has_syntax_errors"`
	ComplexityScore int            `json:"complexity_score" yaml:"complexity_score"`
}

// Normalize replaces nil slices with empty ones. Gob does not distinguish the
// two, so records are normalized after extraction and after decoding.
func (fs *FileStructure) Normalize() {
	if fs.Functions == nil {
		fs.Functions = []FunctionInfo{}
	}
	for i := range fs.Functions {
		if fs.Functions[i].Params == nil {
			fs.Functions[i].Params = []string{}
		}
		if fs.Functions[i].Calls == nil {
			fs.Functions[i].Calls = []string{}
		}
	}
	if fs.Classes == nil {
		fs.Classes = []ClassInfo{}
	}
	for i := range fs.Classes {
		if fs.Classes[i].Methods == nil {
			fs.Classes[i].Methods = []string{}
		}
	}
	if fs.Imports == nil {
		fs.Imports = []string{}
	}
	if fs.Variables == nil {
		fs.Variables = []string{}
	}
}

// Clone returns a deep copy so callers never share slices with a cached record.
func (fs FileStructure) Clone() FileStructure {
	out := fs
	out.Functions = make([]FunctionInfo, len(fs.Functions))
	for i, fn := range fs.Functions {
		fn.Params = append([]string{}, fn.Params...)
		fn.Calls = append([]string{}, fn.Calls...)
		out.Functions[i] = fn
	}
	out.Classes = make([]ClassInfo, len(fs.Classes))
	for i, cls := range fs.Classes {
		cls.Methods = append([]string{}, cls.Methods...)
		out.Classes[i] = cls
	}
	out.Imports = append([]string{}, fs.Imports...)
	out.Variables = append([]string{}, fs.Variables...)
	return out
}

// FindFunction returns the first function with the given name, or nil.
func (fs *FileStructure) FindFunction(name string) *FunctionInfo {
	for i := range fs.Functions {
		if fs.Functions[i].Name == name {
			return &fs.Functions[i]
		}
	}
	return nil
}

// FindClass returns the first class with the given name, or nil.
func (fs *FileStructure) FindClass(name string) *ClassInfo {
	for i := range fs.Classes {
		if fs.Classes[i].Name == name {
			return &fs.Classes[i]
		}
	}
	return nil
}

// ProjectStructureSummary folds every FileStructure of a project.
// It is derived on demand and never persisted.
type ProjectStructureSummary struct {
	ProjectID         string          `json:"project_id" yaml:"project_id"`
	TotalFiles        int             `json:"total_files" yaml:"total_files"`
	TotalFunctions    int             `json:"total_functions" yaml:"total_functions"`
	TotalClasses      int             `json:"total_classes" yaml:"total_classes"`
	TotalLines        int             `json:"total_lines" yaml:"total_lines"`
	LanguageHistogram map[string]int  `json:"language_histogram" yaml:"language_histogram"`
	StrategyHistogram map[string]int  `json:"strategy_histogram" yaml:"strategy_histogram"`
	Files             []FileStructure `json:"files" yaml:"files"`
}

// ElementMatch is a function or class located by name across a project.
type ElementMatch struct {
	Kind    string `json:"kind" yaml:"kind"`
	Name    string `json:"name" yaml:"name"`
	Path    string `json:"path" yaml:"path"`
	Line    int    `json:"line" yaml:"line"`
	EndLine int    `json:"end_line" yaml:"end_line"`
}

// FileEntry represents the state of a single file in a project.
type FileEntry struct {
	Path         string    `json:"path" yaml:"path"`
	LastModified time.Time `json:"last_modified" yaml:"last_modified"`
	Size         int64     `json:"size" yaml:"size"`
}
