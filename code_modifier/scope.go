package code_modifier

import (
	"regexp"
	"sort"
	"strings"

	"github.com/nanunh/genstack/code_analyzer/models"
)

// kindKeywords are checked in order; the first group with a match wins.
var kindKeywords = []struct {
	kind  models.ModificationKind
	words []string
}{
	{models.KindAdd, []string{"add", "create", "new", "implement"}},
	{models.KindFix, []string{"fix", "bug", "error", "correct", "syntax"}},
	{models.KindUpdate, []string{"update", "modify", "change", "improve"}},
	{models.KindRemove, []string{"remove", "delete", "drop"}},
	{models.KindRefactor, []string{"refactor", "restructure", "optimize"}},
}

// stopWords never name a target symbol.
var stopWords = map[string]bool{
	"if": true, "else": true, "elif": true, "for": true, "while": true, "do": true, "switch": true,
	"case": true, "break": true, "continue": true, "return": true, "try": true, "catch": true,
	"finally": true, "throw": true, "new": true, "var": true, "let": true, "const": true,
	"function": true, "method": true, "class": true, "import": true, "export": true, "default": true,
	"the": true, "and": true, "with": true, "that": true, "this": true, "from": true, "into": true,
	"add": true, "fix": true, "update": true, "remove": true, "delete": true, "drop": true,
	"refactor": true, "change": true, "modify": true, "make": true, "should": true, "all": true,
	"use": true, "when": true, "its": true, "has": true, "not": true, "any": true, "please": true,
}

var (
	instructionWord = regexp.MustCompile(`[A-Za-z_$][\w$]*`)
	removalPattern  = regexp.MustCompile(`(?i)\b(?:remove|delete|drop)\s+(?:the\s+)?(?:(?:function|method|class|struct|type)\s+)?` + "`?" + `([A-Za-z_$][\w$]*)`)
)

// DetectKind maps an instruction to a modification kind from its keywords.
func DetectKind(instruction string) models.ModificationKind {
	words := make(map[string]bool)
	for _, w := range instructionWord.FindAllString(strings.ToLower(instruction), -1) {
		words[w] = true
	}
	for _, group := range kindKeywords {
		for _, w := range group.words {
			if words[w] {
				return group.kind
			}
		}
	}
	return models.KindGeneral
}

// RemovalTargets returns the lower-cased names an instruction asks to delete.
func RemovalTargets(instruction string) map[string]bool {
	removed := make(map[string]bool)
	for _, m := range removalPattern.FindAllStringSubmatch(instruction, -1) {
		name := strings.ToLower(m[1])
		if !stopWords[name] {
			removed[name] = true
		}
	}
	return removed
}

// FindTarget picks the symbol an instruction refers to. Candidate words are
// longer than two characters and not stop words; functions win over classes,
// then the longest name, then the earliest declaration.
func FindTarget(structure models.FileStructure, instruction string) *models.SymbolScope {
	candidates := FindTargets(structure, instruction)
	if len(candidates) == 0 {
		return nil
	}
	target := candidates[0]
	return &target
}

// FindTargets returns every symbol the instruction names, in FindTarget's order.
func FindTargets(structure models.FileStructure, instruction string) []models.SymbolScope {
	words := make(map[string]bool)
	for _, w := range instructionWord.FindAllString(instruction, -1) {
		lw := strings.ToLower(w)
		if len(lw) > 2 && !stopWords[lw] {
			words[lw] = true
		}
	}
	if len(words) == 0 {
		return nil
	}

	var candidates []models.SymbolScope
	for _, fn := range structure.Functions {
		if words[strings.ToLower(fn.Name)] {
			candidates = append(candidates, models.SymbolScope{
				Kind: "function", Name: fn.Name, Line: fn.Line, EndLine: fn.EndLine, Params: fn.Params,
			})
		}
	}
	if len(candidates) == 0 {
		for _, cls := range structure.Classes {
			if words[strings.ToLower(cls.Name)] {
				candidates = append(candidates, models.SymbolScope{
					Kind: "class", Name: cls.Name, Line: cls.Line, EndLine: cls.EndLine, Methods: cls.Methods,
				})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if len(candidates[i].Name) != len(candidates[j].Name) {
			return len(candidates[i].Name) > len(candidates[j].Name)
		}
		return candidates[i].Line < candidates[j].Line
	})
	return candidates
}

func distinctNames(symbols []models.SymbolScope) int {
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		seen[s.Name] = true
	}
	return len(seen)
}

// BuildScope narrows the oracle's view to the targeted symbol when the
// instruction names exactly one, otherwise hands over the whole file summary
// so every named symbol can change.
func BuildScope(structure models.FileStructure, content, instruction string) models.ScopedContext {
	scope := models.ScopedContext{
		Mode:             models.ScopeFile,
		Path:             structure.Path,
		Language:         structure.Language,
		ModificationKind: DetectKind(instruction),
	}

	targets := FindTargets(structure, instruction)
	if len(targets) == 0 || distinctNames(targets) > 1 || targets[0].Line < 1 {
		summary := structure.Clone()
		scope.Summary = &summary
		return scope
	}
	target := &targets[0]
	if target.EndLine < target.Line {
		target.EndLine = target.Line
	}

	scope.Mode = models.ScopeSymbol
	scope.Target = target
	scope.Section = sectionText(content, target.Line, target.EndLine)

	for _, fn := range structure.Functions {
		if fn.Name == target.Name {
			if target.Kind == "function" {
				scope.Callees = appendUnique(scope.Callees, fn.Calls...)
			}
			continue
		}
		for _, call := range fn.Calls {
			if call == target.Name {
				scope.Callers = appendUnique(scope.Callers, fn.Name)
				break
			}
		}
	}
	return scope
}

// sectionText returns lines start..end (1-based, inclusive).
func sectionText(content string, start, end int) string {
	lines := strings.Split(content, "\n")
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

// spliceSection replaces lines start..end (1-based, inclusive) with replacement.
// An empty replacement deletes the lines.
func spliceSection(content string, start, end int, replacement string) string {
	lines := strings.Split(content, "\n")
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if end < start {
		end = start - 1
	}

	var repl []string
	if replacement != "" {
		repl = strings.Split(strings.TrimRight(replacement, "\n"), "\n")
	}
	out := make([]string, 0, len(lines)-(end-start+1)+len(repl))
	out = append(out, lines[:start-1]...)
	out = append(out, repl...)
	out = append(out, lines[end:]...)
	return strings.Join(out, "\n")
}

// reindent shifts payload so its first non-blank line sits at the section's
// base indentation. Deeper lines keep their offset relative to that line.
func reindent(payload, section string) string {
	base := leadingWhitespace(firstNonBlank(section))
	head := leadingWhitespace(firstNonBlank(payload))
	if base == "" || len(head) >= len(base) {
		return payload
	}
	lines := strings.Split(payload, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines[i] = base + strings.TrimPrefix(line, head)
	}
	return strings.Join(lines, "\n")
}

func firstNonBlank(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

func leadingWhitespace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

func appendUnique(values []string, more ...string) []string {
	for _, v := range more {
		found := false
		for _, existing := range values {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			values = append(values, v)
		}
	}
	return values
}
