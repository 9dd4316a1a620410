package code_analyzer

import (
	"context"
	"regexp"
	"strings"

	"github.com/nanunh/genstack/code_analyzer/models"
)

type blockStyle int

const (
	blockNone blockStyle = iota
	blockBraces
	blockIndent
	blockEndKeyword
)

// heuristicRules approximate the structural fields with line-oriented patterns.
// Function and class patterns capture the name in group 1 and, optionally, the
// raw parameter list in group 2. Variable patterns only apply at column 0.
type heuristicRules struct {
	functions []*regexp.Regexp
	classes   []*regexp.Regexp
	imports   []*regexp.Regexp
	variables []*regexp.Regexp
	block     blockStyle
	paramSep  string // "" means comma separated
	nameFirst bool   // parameters are written "name Type"
}

var controlWords = newSet("if", "for", "while", "switch", "catch", "return", "else", "new", "throw",
	"await", "yield", "case", "goto", "sizeof", "typeof", "elif", "foreach", "using", "lock", "do", "try",
	"with", "until", "unless", "match", "select", "when", "defer", "go", "not", "and", "or", "in")

var (
	cLikeFunctions = []*regexp.Regexp{
		regexp.MustCompile(`^\s*(?:[\w]+\s+)*fun\s+(?:<[^>]*>\s*)?(?:[\w.]+\.)?(\w+)\s*\(([^)]*)\)?`),
		regexp.MustCompile(`^\s*(?:[\w]+\s+)*func\s+(\w+)\s*(?:<[^>]*>)?\s*\(([^)]*)\)?`),
		regexp.MustCompile(`^\s*(?:[\w]+\s+)*def\s+(\w+)\s*(?:\[[^\]]*\])?\s*\(([^)]*)\)?`),
		regexp.MustCompile(`^\s*(?:[\w]+\s+)*function\s+&?(\w+)\s*\(([^)]*)\)?`),
		regexp.MustCompile(`^\s*(?:[\w<>\[\],.*&?:@]+\s+)+\**&?(\w+)\s*\(([^)]*)\)[^;=]*\{?\s*$`),
		regexp.MustCompile(`^\s*(\w+)\s*\(([^)]*)\)\s*\{\s*$`),
	}
	cLikeClasses = []*regexp.Regexp{
		regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|abstract|final|sealed|static|open|data|partial|export|default|inline|value|case)\s+)*(?:class|interface|struct|enum|trait|object|record|protocol|union|mixin|extension)\s+(\w+)`),
	}
	cLikeImports = []*regexp.Regexp{
		regexp.MustCompile(`^\s*(?:import\s|using\s+[\w.]+\s*;|#\s*include\s|use\s+[\w\\]+|(?:require|include)(?:_once)?\s*\(?\s*["'])`),
	}
	cLikeVariables = []*regexp.Regexp{
		regexp.MustCompile(`^(?:(?:export|public|static|final|const|var|let|val|private|internal)\s+)+(?:[\w<>\[\]]+\s+)?(\w+)\s*(?::[^=]+)?=`),
	}

	cLikeRules = heuristicRules{
		functions: cLikeFunctions,
		classes:   cLikeClasses,
		imports:   cLikeImports,
		variables: cLikeVariables,
		block:     blockBraces,
	}
)

var heuristicRulesByFamily = map[string]heuristicRules{
	"javascript": {
		functions: []*regexp.Regexp{
			regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(\w+)\s*\(([^)]*)\)?`),
			regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?(?:function\b[^(]*)?\(([^)]*)\)\s*(?:=>|\{)`),
			regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?(\w+)\s*=>`),
			regexp.MustCompile(`^\s+(?:async\s+)?(?:static\s+)?(?:get\s+|set\s+)?(\w+)\s*\(([^)]*)\)\s*\{\s*$`),
		},
		classes: []*regexp.Regexp{
			regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?(?:class|interface|enum)\s+(\w+)`),
		},
		imports: []*regexp.Regexp{
			regexp.MustCompile(`^\s*import\s.+`),
			regexp.MustCompile(`^\s*(?:const|let|var)\s+.+=\s*require\(.+\)`),
		},
		variables: []*regexp.Regexp{
			regexp.MustCompile(`^(?:export\s+)?(?:const|let|var)\s+(\w+)`),
		},
		block: blockBraces,
	},
	"python": {
		functions: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)\s*\(([^)]*)\)?`)},
		classes:   []*regexp.Regexp{regexp.MustCompile(`^\s*class\s+(\w+)`)},
		imports:   []*regexp.Regexp{regexp.MustCompile(`^\s*(?:import|from)\s+\S+`)},
		variables: []*regexp.Regexp{regexp.MustCompile(`^([A-Za-z_]\w*)\s*(?::[^=]+)?=[^=]`)},
		block:     blockIndent,
	},
	"ruby": {
		functions: []*regexp.Regexp{regexp.MustCompile(`^\s*def\s+(?:self\.)?(\w+[?!=]?)\s*(?:\(([^)]*)\))?`)},
		classes:   []*regexp.Regexp{regexp.MustCompile(`^\s*(?:class|module)\s+([A-Z]\w*)`)},
		imports:   []*regexp.Regexp{regexp.MustCompile(`^\s*(?:require|require_relative|load)\b.*`)},
		variables: []*regexp.Regexp{regexp.MustCompile(`^([A-Za-z_]\w*)\s*=[^=]`)},
		block:     blockEndKeyword,
	},
	"rust": {
		functions: []*regexp.Regexp{
			regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:const\s+)?(?:async\s+)?(?:unsafe\s+)?(?:extern\s+"[^"]*"\s+)?fn\s+(\w+)\s*(?:<[^>]*>)?\s*\(([^)]*)\)?`),
		},
		classes: []*regexp.Regexp{
			regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|trait|union)\s+(\w+)`),
			regexp.MustCompile(`^\s*impl(?:\s*<[^>]*>)?\s+(?:[\w:]+(?:<[^>]*>)?\s+for\s+)?(\w+)`),
		},
		imports: []*regexp.Regexp{
			regexp.MustCompile(`^\s*(?:pub\s+)?use\s+.+`),
			regexp.MustCompile(`^\s*extern\s+crate\s+.+`),
		},
		variables: []*regexp.Regexp{regexp.MustCompile(`^(?:pub\s+)?(?:const|static)\s+(?:mut\s+)?(\w+)`)},
		block:     blockBraces,
	},
	"zig": {
		functions: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:pub\s+)?(?:export\s+)?(?:inline\s+)?fn\s+(\w+)\s*\(([^)]*)\)?`)},
		classes: []*regexp.Regexp{
			regexp.MustCompile(`^\s*(?:pub\s+)?const\s+(\w+)\s*=\s*(?:extern\s+|packed\s+)?(?:struct|enum|union)`),
		},
		imports:   []*regexp.Regexp{regexp.MustCompile(`^\s*(?:pub\s+)?const\s+\w+\s*=\s*@import\(.+`)},
		variables: []*regexp.Regexp{regexp.MustCompile(`^(?:pub\s+)?(?:const|var)\s+(\w+)`)},
		block:     blockBraces,
	},
	"go": {
		functions: []*regexp.Regexp{regexp.MustCompile(`^func\s+(?:\([^)]*\)\s*)?(\w+)\s*(?:\[[^\]]*\])?\(([^)]*)\)?`)},
		classes:   []*regexp.Regexp{regexp.MustCompile(`^type\s+(\w+)\s+(?:struct|interface)`)},
		imports:   []*regexp.Regexp{regexp.MustCompile(`^import\s+.+`), regexp.MustCompile(`^\s+(?:\w+\s+)?"[\w./-]+"\s*$`)},
		variables: []*regexp.Regexp{regexp.MustCompile(`^(?:var|const)\s+(\w+)`)},
		block:     blockBraces,
		nameFirst: true,
	},
	"shell": {
		functions: []*regexp.Regexp{
			regexp.MustCompile(`^\s*function\s+([\w.-]+)`),
			regexp.MustCompile(`^\s*([\w.-]+)\s*\(\)\s*\{?`),
		},
		imports:   []*regexp.Regexp{regexp.MustCompile(`^\s*(?:source|\.)\s+\S+`)},
		variables: []*regexp.Regexp{regexp.MustCompile(`^(?:export\s+)?([A-Za-z_]\w*)=`)},
		block:     blockBraces,
	},
	"powershell": {
		functions: []*regexp.Regexp{regexp.MustCompile(`(?i)^\s*function\s+([\w-]+)\s*(?:\(([^)]*)\))?`)},
		imports:   []*regexp.Regexp{regexp.MustCompile(`(?i)^\s*(?:Import-Module\s|\.\s+\S).*`)},
		variables: []*regexp.Regexp{regexp.MustCompile(`^\$(\w+)\s*=`)},
		block:     blockBraces,
	},
	"sql": {
		functions: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^\s*create\s+(?:or\s+replace\s+)?(?:function|procedure|trigger)\s+([\w.]+)\s*(?:\(([^)]*)\))?`),
		},
		classes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^\s*create\s+(?:or\s+replace\s+)?(?:temporary\s+)?(?:table|view|type)\s+(?:if\s+not\s+exists\s+)?([\w.]+)`),
		},
		block: blockNone,
	},
	"lua": {
		functions: []*regexp.Regexp{
			regexp.MustCompile(`^\s*(?:local\s+)?function\s+([\w.:]+)\s*\(([^)]*)\)?`),
			regexp.MustCompile(`^\s*(?:local\s+)?([\w.]+)\s*=\s*function\s*\(([^)]*)\)?`),
		},
		imports:   []*regexp.Regexp{regexp.MustCompile(`^.*\brequire\s*\(?\s*["'].+`)},
		variables: []*regexp.Regexp{regexp.MustCompile(`^(?:local\s+)?([A-Za-z_]\w*)\s*=[^=]`)},
		block:     blockEndKeyword,
	},
	"perl": {
		functions: []*regexp.Regexp{regexp.MustCompile(`^\s*sub\s+(\w+)`)},
		classes:   []*regexp.Regexp{regexp.MustCompile(`^\s*package\s+([\w:]+)`)},
		imports:   []*regexp.Regexp{regexp.MustCompile(`^\s*(?:use|require)\s+[\w:]+.*`)},
		variables: []*regexp.Regexp{regexp.MustCompile(`^(?:my|our)\s+[\$@%](\w+)`)},
		block:     blockBraces,
	},
	"elixir": {
		functions: []*regexp.Regexp{
			regexp.MustCompile(`^\s*defp?\s+(\w+[?!]?)\s*(?:\(([^)]*)\))?`),
			regexp.MustCompile(`^\s*defmacrop?\s+(\w+[?!]?)\s*(?:\(([^)]*)\))?`),
		},
		classes: []*regexp.Regexp{regexp.MustCompile(`^\s*defmodule\s+([\w.]+)`)},
		imports: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:import|alias|use|require)\s+[\w.]+.*`)},
		block:   blockEndKeyword,
	},
	"erlang": {
		functions: []*regexp.Regexp{regexp.MustCompile(`^([a-z]\w*)\s*\(([^)]*)\)\s*(?:when\s+.+)?->`)},
		classes:   []*regexp.Regexp{regexp.MustCompile(`^-module\((\w+)\)`)},
		imports:   []*regexp.Regexp{regexp.MustCompile(`^-(?:import|include|include_lib)\(.+`)},
		block:     blockNone,
	},
	"haskell": {
		functions: []*regexp.Regexp{regexp.MustCompile(`^([a-z_]\w*)\s*::`)},
		classes:   []*regexp.Regexp{regexp.MustCompile(`^(?:data|newtype|class|type)\s+([A-Z]\w*)`)},
		imports:   []*regexp.Regexp{regexp.MustCompile(`^import\s+.+`)},
		block:     blockIndent,
	},
	"ocaml": {
		functions: []*regexp.Regexp{regexp.MustCompile(`^\s*let\s+(?:rec\s+|inline\s+)?(\w+)((?:\s+[\w()':]+)+)\s*=`)},
		classes:   []*regexp.Regexp{regexp.MustCompile(`^\s*(?:type|module)\s+(\w+)`)},
		imports:   []*regexp.Regexp{regexp.MustCompile(`^\s*(?:open|#include)\s+.+`)},
		block:     blockIndent,
		paramSep:  " ",
	},
	"elm": {
		functions: []*regexp.Regexp{regexp.MustCompile(`^([a-z]\w*)((?:\s+\w+)*)\s*=(?:\s|$)`)},
		classes:   []*regexp.Regexp{regexp.MustCompile(`^type\s+(?:alias\s+)?([A-Z]\w*)`)},
		imports:   []*regexp.Regexp{regexp.MustCompile(`^import\s+.+`)},
		block:     blockIndent,
		paramSep:  " ",
	},
	"lisp": {
		functions: []*regexp.Regexp{regexp.MustCompile(`^\s*\((?:defn-?|defun|defmacro|define)\s+\(?([\w\-?!*<>=/]+)\s*(?:\[([^\]]*)\])?`)},
		classes:   []*regexp.Regexp{regexp.MustCompile(`^\s*\((?:defrecord|defstruct|defclass|defprotocol)\s+([\w-]+)`)},
		imports:   []*regexp.Regexp{regexp.MustCompile(`^\s*\((?:ns|require|import|use)\s+.+`)},
		block:     blockNone,
		paramSep:  " ",
	},
	"r": {
		functions: []*regexp.Regexp{regexp.MustCompile(`^\s*([\w.]+)\s*(?:<-|=)\s*function\s*\(([^)]*)\)?`)},
		imports:   []*regexp.Regexp{regexp.MustCompile(`^\s*(?:library|require|source)\(.+`)},
		variables: []*regexp.Regexp{regexp.MustCompile(`^([\w.]+)\s*<-`)},
		block:     blockBraces,
	},
	"julia": {
		functions: []*regexp.Regexp{
			regexp.MustCompile(`^\s*function\s+([\w.!]+)\s*\(([^)]*)\)?`),
			regexp.MustCompile(`^([\w.!]+)\(([^)]*)\)\s*=[^=]`),
		},
		classes: []*regexp.Regexp{
			regexp.MustCompile(`^\s*(?:mutable\s+)?struct\s+(\w+)`),
			regexp.MustCompile(`^\s*(?:abstract\s+type|module)\s+(\w+)`),
		},
		imports: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:using|import)\s+.+`)},
		block:   blockEndKeyword,
	},
	"css": {
		imports:   []*regexp.Regexp{regexp.MustCompile(`^\s*@(?:import|use|forward)\s+.+`)},
		variables: []*regexp.Regexp{regexp.MustCompile(`^\s*(--[\w-]+|\$[\w-]+|@[\w-]+)\s*:`)},
		block:     blockBraces,
	},
	"markup": {
		imports: []*regexp.Regexp{
			regexp.MustCompile(`<script[^>]+src=["'][^"']+["']`),
			regexp.MustCompile(`<link[^>]+href=["'][^"']+["']`),
		},
	},
	"data": {
		classes:   []*regexp.Regexp{regexp.MustCompile(`^\s*(?:model|enum|type|datasource|generator)\s+(\w+)\s*\{`)},
		variables: []*regexp.Regexp{regexp.MustCompile(`^\s{0,4}"([^"]+)"\s*:`)},
		block:     blockBraces,
	},
	"yaml": {
		variables: []*regexp.Regexp{regexp.MustCompile(`^([\w.-]+)\s*:`)},
	},
	"toml": {
		classes:   []*regexp.Regexp{regexp.MustCompile(`^\[+([^\]]+)\]+`)},
		variables: []*regexp.Regexp{regexp.MustCompile(`^([\w.-]+)\s*=`)},
	},
	"ini": {
		classes:   []*regexp.Regexp{regexp.MustCompile(`^\[([^\]]+)\]`)},
		variables: []*regexp.Regexp{regexp.MustCompile(`^([\w.-]+)\s*[=:]`)},
	},
	"hcl": {
		classes:   []*regexp.Regexp{regexp.MustCompile(`^(\w+(?:\s+"[^"]*")*)\s*\{`)},
		imports:   []*regexp.Regexp{regexp.MustCompile(`^\s*source\s*=.+`)},
		variables: []*regexp.Regexp{regexp.MustCompile(`^(\w+)\s*=`)},
		block:     blockBraces,
	},
	"protobuf": {
		functions: []*regexp.Regexp{regexp.MustCompile(`^\s*rpc\s+(\w+)\s*\(([^)]*)\)`)},
		classes:   []*regexp.Regexp{regexp.MustCompile(`^\s*(?:message|service|enum)\s+(\w+)`)},
		imports:   []*regexp.Regexp{regexp.MustCompile(`^\s*import\s+.+`)},
		block:     blockBraces,
	},
	"dockerfile": {
		imports:   []*regexp.Regexp{regexp.MustCompile(`(?i)^\s*FROM\s+.+`)},
		variables: []*regexp.Regexp{regexp.MustCompile(`(?i)^(?:ENV|ARG)\s+(\w+)`)},
	},
	"markdown":  {},
	"plaintext": {},
}

func rulesFor(family string) heuristicRules {
	if rules, ok := heuristicRulesByFamily[family]; ok {
		return rules
	}
	return cLikeRules
}

// heuristicExtractor never fails; unknown content simply yields empty fields.
type heuristicExtractor struct{}

func (he *heuristicExtractor) extract(ctx context.Context, path string, content []byte, spec models.LanguageSpec) (models.FileStructure, error) {
	rules := rulesFor(spec.Family)
	lines := splitLines(string(content))

	var result models.FileStructure
	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isCommentLine(trimmed) {
			continue
		}

		if m := firstMatch(rules.classes, line); m != nil {
			result.Classes = append(result.Classes, models.ClassInfo{
				Name:    strings.TrimSpace(m[1]),
				Line:    i + 1,
				EndLine: blockEnd(lines, i, rules.block),
			})
			continue
		}
		if m := firstMatch(rules.functions, line); m != nil && !controlWords[m[1]] && !startsWithControlWord(trimmed) {
			var params []string
			if len(m) > 2 {
				params = splitParams(m[2], rules)
			}
			result.Functions = append(result.Functions, models.FunctionInfo{
				Name:    m[1],
				Line:    i + 1,
				EndLine: blockEnd(lines, i, rules.block),
				Params:  params,
			})
			continue
		}
		if firstMatch(rules.imports, line) != nil {
			result.Imports = append(result.Imports, trimmed)
			continue
		}
		if m := firstMatch(rules.variables, line); m != nil {
			result.Variables = append(result.Variables, m[1])
		}
	}

	attachMethods(&result, lines)
	attachCalls(&result, lines)
	return result, nil
}

func firstMatch(patterns []*regexp.Regexp, line string) []string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(line); m != nil {
			return m
		}
	}
	return nil
}

func isCommentLine(trimmed string) bool {
	for _, prefix := range []string{"//", "#!", "/*", "*", "--", ";;", "%"} {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	// '#' starts a comment in most script languages but also C preprocessor lines.
	return strings.HasPrefix(trimmed, "#") && !strings.HasPrefix(trimmed, "#include") && !strings.HasPrefix(trimmed, "#import")
}

func startsWithControlWord(trimmed string) bool {
	word := trimmed
	if i := strings.IndexAny(word, " \t("); i >= 0 {
		word = word[:i]
	}
	return controlWords[word]
}

// splitParams splits a raw parameter list on top-level separators and reduces
// each parameter to its name.
func splitParams(raw string, rules heuristicRules) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var parts []string
	if rules.paramSep == " " {
		parts = strings.Fields(strings.NewReplacer("(", " ", ")", " ").Replace(raw))
	} else {
		depth, start := 0, 0
		for i, r := range raw {
			switch r {
			case '(', '[', '{', '<':
				depth++
			case ')', ']', '}', '>':
				if depth > 0 {
					depth--
				}
			case ',':
				if depth == 0 {
					parts = append(parts, raw[start:i])
					start = i + 1
				}
			}
		}
		parts = append(parts, raw[start:])
	}

	var names []string
	for _, part := range parts {
		if name := paramNameFromText(part, rules.nameFirst); name != "" && name != "void" {
			names = append(names, name)
		}
	}
	return names
}

var paramWord = regexp.MustCompile(`[\$@]?[A-Za-z_][\w]*`)

func paramNameFromText(part string, nameFirst bool) string {
	part = strings.TrimSpace(part)
	if i := strings.Index(part, "="); i >= 0 {
		part = strings.TrimSpace(part[:i])
	}
	part = strings.TrimLeft(part, "*&.")
	if part == "" {
		return ""
	}
	if i := strings.Index(part, ":"); i > 0 && !strings.Contains(part[:i], "::") {
		fields := strings.Fields(part[:i])
		if len(fields) > 0 {
			return strings.Trim(fields[len(fields)-1], "*&?")
		}
	}
	words := paramWord.FindAllString(part, -1)
	if len(words) == 0 {
		return ""
	}
	if nameFirst {
		return words[0]
	}
	return words[len(words)-1]
}

// blockEnd approximates the last line of a block starting at index start.
func blockEnd(lines []string, start int, style blockStyle) int {
	switch style {
	case blockBraces:
		depth, opened := 0, false
		for i := start; i < len(lines); i++ {
			for _, r := range stripLineNoise(lines[i]) {
				switch r {
				case '{':
					depth++
					opened = true
				case '}':
					depth--
				}
			}
			if opened && depth <= 0 {
				return i + 1
			}
			if !opened && i-start >= 2 {
				return start + 1
			}
		}
		return len(lines)

	case blockIndent, blockEndKeyword:
		base := indentation(lines[start])
		last := start
		for i := start + 1; i < len(lines); i++ {
			trimmed := strings.TrimSpace(lines[i])
			if trimmed == "" {
				continue
			}
			if indentation(lines[i]) <= base {
				if style == blockEndKeyword && strings.HasPrefix(trimmed, "end") {
					return i + 1
				}
				break
			}
			last = i
		}
		return last + 1
	}
	return start + 1
}

// stripLineNoise blanks string literals and trailing line comments so braces
// inside them are not counted.
func stripLineNoise(line string) string {
	var b strings.Builder
	var quote rune
	prev := rune(0)
	for _, r := range line {
		if quote != 0 {
			if r == quote && prev != '\\' {
				quote = 0
			}
			prev = r
			continue
		}
		if r == '"' || r == '\'' || r == '`' {
			quote = r
			prev = r
			continue
		}
		if r == '/' && prev == '/' {
			break
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

func indentation(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

// attachMethods records functions that sit inside a class range as its methods.
func attachMethods(fs *models.FileStructure, lines []string) {
	for ci := range fs.Classes {
		cls := &fs.Classes[ci]
		classIndent := indentation(lines[cls.Line-1])
		for _, fn := range fs.Functions {
			if fn.Line <= cls.Line || fn.Line > cls.EndLine {
				continue
			}
			if indentation(lines[fn.Line-1]) > classIndent {
				cls.Methods = append(cls.Methods, fn.Name)
			}
		}
	}
}

// attachCalls finds references to other known functions inside each function body.
func attachCalls(fs *models.FileStructure, lines []string) {
	if len(fs.Functions) == 0 || len(fs.Functions) > 200 {
		return
	}
	patterns := make(map[string]*regexp.Regexp, len(fs.Functions))
	for _, fn := range fs.Functions {
		if _, ok := patterns[fn.Name]; !ok {
			patterns[fn.Name] = regexp.MustCompile(`\b` + regexp.QuoteMeta(fn.Name) + `\s*\(`)
		}
	}
	for fi := range fs.Functions {
		fn := &fs.Functions[fi]
		if fn.EndLine <= fn.Line {
			continue
		}
		body := strings.Join(lines[fn.Line:fn.EndLine], "\n")
		for _, other := range fs.Functions {
			if other.Name == fn.Name || containsString(fn.Calls, other.Name) {
				continue
			}
			if patterns[other.Name].MatchString(body) {
				fn.Calls = append(fn.Calls, other.Name)
			}
		}
	}
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
