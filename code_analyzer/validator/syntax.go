package validator

import "strings"

// syntax describes how comments and string literals look in a language family.
type syntax struct {
	lineComments  []string
	blockOpen     string
	blockClose    string
	quotes        string
	tripleQuotes  bool
	braces        bool // blocks are delimited by braces
	indented      bool // blocks are delimited by indentation
	regexLiterals bool // /.../ literals may start where an operand is expected
}

var (
	cSyntax      = syntax{lineComments: []string{"//"}, blockOpen: "/*", blockClose: "*/", quotes: "\"'`", braces: true}
	jsSyntax     = syntax{lineComments: []string{"//"}, blockOpen: "/*", blockClose: "*/", quotes: "\"'`", braces: true, regexLiterals: true}
	hashSyntax   = syntax{lineComments: []string{"#"}, quotes: "\"'"}
	dashSyntax   = syntax{lineComments: []string{"--"}, quotes: "\"'"}
	pythonSyntax = syntax{lineComments: []string{"#"}, quotes: "\"'", tripleQuotes: true, indented: true}
)

var syntaxByFamily = map[string]syntax{
	"javascript": jsSyntax,
	"typescript": jsSyntax,
	"go":         cSyntax,
	"java":       cSyntax,
	"kotlin":     cSyntax,
	"scala":      cSyntax,
	"csharp":     cSyntax,
	"c":          cSyntax,
	"cpp":        cSyntax,
	"swift":      cSyntax,
	"dart":       cSyntax,
	"zig":        {lineComments: []string{"//"}, quotes: "\"'", braces: true},
	"rust":       {lineComments: []string{"//"}, blockOpen: "/*", blockClose: "*/", quotes: "\"", braces: true},
	"php":        {lineComments: []string{"//", "#"}, blockOpen: "/*", blockClose: "*/", quotes: "\"'", braces: true},
	"css":        {blockOpen: "/*", blockClose: "*/", quotes: "\"'"},
	"protobuf":   {lineComments: []string{"//"}, blockOpen: "/*", blockClose: "*/", quotes: "\"'"},
	"data":       {lineComments: []string{"//"}, quotes: "\""},
	"python":     pythonSyntax,
	"ruby":       hashSyntax,
	"perl":       {lineComments: []string{"#"}, quotes: "\"'", braces: true},
	"shell":      hashSyntax,
	"powershell": hashSyntax,
	"r":          hashSyntax,
	"julia":      hashSyntax,
	"elixir":     hashSyntax,
	"yaml":       hashSyntax,
	"toml":       hashSyntax,
	"hcl":        {lineComments: []string{"#", "//"}, blockOpen: "/*", blockClose: "*/", quotes: "\""},
	"ini":        {lineComments: []string{";", "#"}, quotes: "\""},
	"dockerfile": hashSyntax,
	"sql":        {lineComments: []string{"--"}, blockOpen: "/*", blockClose: "*/", quotes: "'\""},
	"lua":        dashSyntax,
	"haskell":    {lineComments: []string{"--"}, blockOpen: "{-", blockClose: "-}", quotes: "\""},
	"elm":        {lineComments: []string{"--"}, blockOpen: "{-", blockClose: "-}", quotes: "\""},
	"ocaml":      {lineComments: []string{"//"}, blockOpen: "(*", blockClose: "*)", quotes: "\""},
	"erlang":     {lineComments: []string{"%"}, quotes: "\"'"},
	"lisp":       {lineComments: []string{";"}, quotes: "\""},
	"markup":     {blockOpen: "<!--", blockClose: "-->", quotes: "\""},
}

// unbalancedFamilies hold prose where brackets carry no structure.
var unbalancedFamilies = map[string]bool{
	"markdown":  true,
	"plaintext": true,
}

func syntaxFor(family string) syntax {
	if s, ok := syntaxByFamily[family]; ok {
		return s
	}
	return cSyntax
}

// stripNoise blanks comments and string literals with spaces, keeping newlines
// so offsets and line numbers still match the input.
func stripNoise(text string, s syntax) string {
	out := []byte(text)
	blank := func(from, to int) {
		for k := from; k < to && k < len(out); k++ {
			if out[k] != '\n' {
				out[k] = ' '
			}
		}
	}

	i := 0
	for i < len(text) {
		if s.blockOpen != "" && strings.HasPrefix(text[i:], s.blockOpen) {
			end := strings.Index(text[i+len(s.blockOpen):], s.blockClose)
			stop := len(text)
			if end >= 0 {
				stop = i + len(s.blockOpen) + end + len(s.blockClose)
			}
			blank(i, stop)
			i = stop
			continue
		}

		if prefix := lineCommentAt(text[i:], s.lineComments); prefix != "" {
			end := strings.IndexByte(text[i:], '\n')
			stop := len(text)
			if end >= 0 {
				stop = i + end
			}
			blank(i, stop)
			i = stop
			continue
		}

		c := text[i]
		if c == '/' && s.regexLiterals && operandExpected(text, i) {
			if stop := closingSlash(text, i); stop > 0 {
				blank(i, stop)
				i = stop
				continue
			}
		}
		if strings.IndexByte(s.quotes, c) >= 0 {
			if s.tripleQuotes && strings.HasPrefix(text[i:], strings.Repeat(string(c), 3)) {
				delim := strings.Repeat(string(c), 3)
				end := strings.Index(text[i+3:], delim)
				stop := len(text)
				if end >= 0 {
					stop = i + 3 + end + 3
				}
				blank(i, stop)
				i = stop
				continue
			}
			stop := closingQuote(text, i, c)
			blank(i, stop)
			i = stop
			continue
		}
		i++
	}
	return string(out)
}

func lineCommentAt(text string, prefixes []string) string {
	for _, p := range prefixes {
		if strings.HasPrefix(text, p) {
			return p
		}
	}
	return ""
}

var regexKeywords = []string{"return", "typeof", "case", "in", "of", "delete", "void", "throw", "yield", "await", "new"}

// operandExpected reports whether a slash at offset i starts a regex literal
// rather than a division, judged by the token before it.
func operandExpected(text string, i int) bool {
	j := i - 1
	for j >= 0 && (text[j] == ' ' || text[j] == '\t' || text[j] == '\n' || text[j] == '\r') {
		j--
	}
	if j < 0 {
		return true
	}
	if strings.IndexByte("(,=:[!&|?{};+-*%<>~^", text[j]) >= 0 {
		return true
	}
	end := j + 1
	for j >= 0 && isWordByte(text[j]) {
		j--
	}
	word := text[j+1 : end]
	for _, kw := range regexKeywords {
		if word == kw {
			return true
		}
	}
	return false
}

// closingSlash returns the offset just past a regex literal and its flags, or
// -1 when the line ends before the literal closes.
func closingSlash(text string, start int) int {
	inClass := false
	for j := start + 1; j < len(text); j++ {
		switch text[j] {
		case '\\':
			j++
		case '\n':
			return -1
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '/':
			if inClass {
				continue
			}
			j++
			for j < len(text) && isWordByte(text[j]) {
				j++
			}
			return j
		}
	}
	return -1
}

// closingQuote returns the offset just past the literal opened at start.
// Only backtick literals may span lines; an unterminated literal ends at the newline.
func closingQuote(text string, start int, quote byte) int {
	for j := start + 1; j < len(text); j++ {
		switch text[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		case '\n':
			if quote != '`' {
				return j
			}
		}
	}
	return len(text)
}

func lineAt(text string, offset int) int {
	if offset > len(text) {
		offset = len(text)
	}
	return strings.Count(text[:offset], "\n") + 1
}
