package code_analyzer

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/nanunh/genstack/code_analyzer/models"
)

const plaintextTag = "plaintext"

type languageEntry struct {
	tag      string
	family   string
	category string
}

// extensionTable maps lower-case extensions to languages.
var extensionTable = map[string]languageEntry{
	// web
	".js":     {"javascript", "javascript", "web"},
	".mjs":    {"javascript", "javascript", "web"},
	".cjs":    {"javascript", "javascript", "web"},
	".jsx":    {"javascript", "javascript", "web"},
	".ts":     {"typescript", "typescript", "web"},
	".mts":    {"typescript", "typescript", "web"},
	".tsx":    {"tsx", "typescript", "web"},
	".html":   {"html", "markup", "web"},
	".htm":    {"html", "markup", "web"},
	".css":    {"css", "css", "web"},
	".scss":   {"scss", "css", "web"},
	".sass":   {"sass", "css", "web"},
	".less":   {"less", "css", "web"},
	".vue":    {"vue", "javascript", "web"},
	".svelte": {"svelte", "javascript", "web"},
	".php":    {"php", "php", "web"},

	// backend
	".go":     {"go", "go", "backend"},
	".py":     {"python", "python", "backend"},
	".pyw":    {"python", "python", "backend"},
	".java":   {"java", "java", "backend"},
	".kt":     {"kotlin", "kotlin", "backend"},
	".kts":    {"kotlin", "kotlin", "backend"},
	".scala":  {"scala", "scala", "backend"},
	".cs":     {"csharp", "csharp", "backend"},
	".rb":     {"ruby", "ruby", "backend"},
	".rs":     {"rust", "rust", "backend"},
	".c":      {"c", "c", "backend"},
	".h":      {"c", "c", "backend"},
	".cpp":    {"cpp", "cpp", "backend"},
	".cc":     {"cpp", "cpp", "backend"},
	".cxx":    {"cpp", "cpp", "backend"},
	".hpp":    {"cpp", "cpp", "backend"},
	".hh":     {"cpp", "cpp", "backend"},
	".swift":  {"swift", "swift", "backend"},
	".m":      {"objective-c", "c", "backend"},
	".dart":   {"dart", "dart", "backend"},
	".lua":    {"lua", "lua", "backend"},
	".pl":     {"perl", "perl", "backend"},
	".pm":     {"perl", "perl", "backend"},
	".zig":    {"zig", "zig", "backend"},
	".nim":    {"nim", "python", "backend"},
	".cr":     {"crystal", "ruby", "backend"},
	".groovy": {"groovy", "java", "backend"},
	".r":      {"r", "r", "backend"},
	".jl":     {"julia", "julia", "backend"},

	// functional
	".hs":   {"haskell", "haskell", "functional"},
	".ml":   {"ocaml", "ocaml", "functional"},
	".mli":  {"ocaml", "ocaml", "functional"},
	".fs":   {"fsharp", "ocaml", "functional"},
	".fsx":  {"fsharp", "ocaml", "functional"},
	".elm":  {"elm", "elm", "functional"},
	".ex":   {"elixir", "elixir", "functional"},
	".exs":  {"elixir", "elixir", "functional"},
	".erl":  {"erlang", "erlang", "functional"},
	".hrl":  {"erlang", "erlang", "functional"},
	".clj":  {"clojure", "lisp", "functional"},
	".cljs": {"clojure", "lisp", "functional"},
	".lisp": {"lisp", "lisp", "functional"},
	".scm":  {"scheme", "lisp", "functional"},

	// data / config / markup
	".json":  {"json", "data", "config"},
	".yaml":  {"yaml", "yaml", "config"},
	".yml":   {"yaml", "yaml", "config"},
	".toml":  {"toml", "toml", "config"},
	".xml":   {"xml", "markup", "config"},
	".ini":   {"ini", "ini", "config"},
	".cfg":   {"ini", "ini", "config"},
	".tf":    {"hcl", "hcl", "config"},
	".hcl":   {"hcl", "hcl", "config"},
	".proto": {"protobuf", "protobuf", "config"},
	".md":    {"markdown", "markdown", "markup"},
	".rst":   {"rst", "markdown", "markup"},

	// shell
	".sh":   {"bash", "shell", "shell"},
	".bash": {"bash", "shell", "shell"},
	".zsh":  {"zsh", "shell", "shell"},
	".fish": {"fish", "shell", "shell"},
	".ps1":  {"powershell", "powershell", "shell"},
	".bat":  {"batch", "shell", "shell"},

	// database
	".sql":    {"sql", "sql", "database"},
	".prisma": {"prisma", "data", "database"},
}

// filenameTable maps well-known extension-less file names.
var filenameTable = map[string]languageEntry{
	"dockerfile":     {"dockerfile", "dockerfile", "config"},
	"makefile":       {"makefile", "shell", "config"},
	"gnumakefile":    {"makefile", "shell", "config"},
	"gemfile":        {"ruby", "ruby", "backend"},
	"rakefile":       {"ruby", "ruby", "backend"},
	"vagrantfile":    {"ruby", "ruby", "backend"},
	"jenkinsfile":    {"groovy", "java", "backend"},
	"cmakelists.txt": {"cmake", "shell", "config"},
	".bashrc":        {"bash", "shell", "shell"},
	".zshrc":         {"zsh", "shell", "shell"},
}

// shebangTable maps interpreter names found after "#!" to extensions.
var shebangTable = map[string]string{
	"python":  ".py",
	"python3": ".py",
	"node":    ".js",
	"bash":    ".sh",
	"sh":      ".sh",
	"zsh":     ".zsh",
	"ruby":    ".rb",
	"perl":    ".pl",
}

// nativeLanguages have a parser shipped with the Go toolchain.
var nativeLanguages = map[string]bool{
	"go": true,
}

// ResolveLanguage maps a path (and optionally the first bytes of its content)
// to a language tag and a parsing strategy. It never fails: anything unknown
// becomes plaintext handled by the heuristic extractor.
func ResolveLanguage(path string, sniff []byte) models.LanguageSpec {
	base := strings.ToLower(filepath.Base(path))

	entry, ok := filenameTable[base]
	if !ok && strings.HasPrefix(base, "dockerfile") {
		entry, ok = filenameTable["dockerfile"]
	}
	if !ok {
		entry, ok = extensionTable[strings.ToLower(filepath.Ext(base))]
	}
	if !ok {
		if ext := sniffShebang(sniff); ext != "" {
			entry, ok = extensionTable[ext]
		}
	}
	if !ok {
		return models.LanguageSpec{
			Tag:      plaintextTag,
			Strategy: models.StrategyHeuristic,
			Family:   plaintextTag,
			Category: "other",
		}
	}

	strategy := models.StrategyHeuristic
	switch {
	case nativeLanguages[entry.tag]:
		strategy = models.StrategyNativeGrammar
	case hasGrammar(entry.tag):
		strategy = models.StrategyIncrementalParser
	}

	return models.LanguageSpec{
		Tag:      entry.tag,
		Strategy: strategy,
		Family:   entry.family,
		Category: entry.category,
	}
}

// SupportedLanguages lists every distinct language tag the resolver knows.
func SupportedLanguages() []string {
	seen := make(map[string]bool)
	var tags []string
	for _, tables := range []map[string]languageEntry{extensionTable, filenameTable} {
		for _, e := range tables {
			if !seen[e.tag] {
				seen[e.tag] = true
				tags = append(tags, e.tag)
			}
		}
	}
	return tags
}

func sniffShebang(sniff []byte) string {
	if !bytes.HasPrefix(sniff, []byte("#!")) {
		return ""
	}
	line := sniff
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(strings.TrimPrefix(string(line), "#!"))
	if len(fields) == 0 {
		return ""
	}
	interpreter := filepath.Base(fields[0])
	if interpreter == "env" && len(fields) > 1 {
		interpreter = fields[1]
	}
	return shebangTable[interpreter]
}
