package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nanunh/genstack/code_analyzer/models"
)

const keywordCheckName = "keyword-context"

type blockKind int

const (
	blockOther blockKind = iota
	blockFunction
	blockLoop
	blockSwitch
)

var (
	controlHeader  = regexp.MustCompile(`^(?:\}\s*)?(?:if|else|catch|with|using|lock|synchronized|elif|unless|until|try|finally|case|guard|unsafe|match|when|default)\b`)
	loopHeader     = regexp.MustCompile(`^(?:\}\s*)?(?:\w+:\s*)?(?:for|foreach|while|do|loop|repeat)\b`)
	switchHeader   = regexp.MustCompile(`^(?:\}\s*)?(?:\w+:\s*)?(?:switch|select)\b`)
	functionHeader = regexp.MustCompile(`\b(?:func|function|fn|fun|def|sub|get|set|init|constructor|lambda)\b|=>|->|\|\s*$|\)\s*(?:(?:const|noexcept|override|final|async|throws|mutating)\b[^{]*|:\s*[^{]*|->\s*[^{]*|\s+[\w.<>\[\], ]+)?$`)
	pythonDef      = regexp.MustCompile(`^(?:async\s+)?(?:def|lambda|proc|func|method|iterator|template|macro)\b`)
	pythonLoop     = regexp.MustCompile(`^(?:async\s+)?(?:for|while)\b`)
	pythonKeyword  = regexp.MustCompile(`^(return|break|continue)\b`)
)

// KeywordContextCheck flags return outside any function, continue outside any
// loop and break outside any loop or switch, using block nesting only.
type KeywordContextCheck struct{}

func (KeywordContextCheck) Name() string { return keywordCheckName }

func (c KeywordContextCheck) Run(in Input) []models.Issue {
	if strings.TrimSpace(in.Candidate) == "" {
		return nil
	}
	s := syntaxFor(in.Language.Family)
	switch {
	case s.indented:
		return indentedKeywordIssues(stripNoise(in.Candidate, s))
	case s.braces:
		return bracedKeywordIssues(stripNoise(in.Candidate, s))
	}
	return nil
}

func keywordIssue(word string, line int) models.Issue {
	where := "a loop"
	switch word {
	case "return":
		where = "a function"
	case "break":
		where = "a loop or switch"
	}
	return models.Issue{
		Check:    keywordCheckName,
		Severity: models.SeverityError,
		Line:     line,
		Message:  fmt.Sprintf("%q outside %s", word, where),
	}
}

func classifyHeader(header string) blockKind {
	header = strings.TrimSpace(header)
	switch {
	case loopHeader.MatchString(header):
		return blockLoop
	case switchHeader.MatchString(header):
		return blockSwitch
	case controlHeader.MatchString(header):
		return blockOther
	case functionHeader.MatchString(header):
		return blockFunction
	}
	return blockOther
}

func bracedKeywordIssues(clean string) []models.Issue {
	var issues []models.Issue
	var stack []blockKind
	// header is the text of the current line before a brace; lastHeader keeps
	// the previous non-blank line for braces placed on their own line.
	var header strings.Builder
	lastHeader := ""
	line := 1

	enclosed := func(want blockKind) bool {
		for _, k := range stack {
			if k == want {
				return true
			}
		}
		return false
	}

	for i := 0; i < len(clean); i++ {
		ch := clean[i]
		switch {
		case ch == '\n':
			line++
			if strings.TrimSpace(header.String()) != "" {
				lastHeader = header.String()
			}
			header.Reset()
		case ch == '{':
			h := header.String()
			if strings.TrimSpace(h) == "" {
				h = lastHeader
			}
			stack = append(stack, classifyHeader(h))
			header.Reset()
			lastHeader = ""
		case ch == '}':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			header.Reset()
			header.WriteString("} ")
			lastHeader = ""
		case ch == ';':
			// C-style for clauses keep their header across semicolons.
			if loopHeader.MatchString(strings.TrimSpace(header.String())) {
				header.WriteByte(ch)
				continue
			}
			header.Reset()
			lastHeader = ""
		case isWordByte(ch) && (i == 0 || !isWordByte(clean[i-1])):
			j := i
			for j < len(clean) && isWordByte(clean[j]) {
				j++
			}
			word := clean[i:j]
			switch word {
			case "return":
				if !enclosed(blockFunction) {
					issues = append(issues, keywordIssue(word, line))
				}
			case "break":
				if !enclosed(blockLoop) && !enclosed(blockSwitch) {
					issues = append(issues, keywordIssue(word, line))
				}
			case "continue":
				if !enclosed(blockLoop) {
					issues = append(issues, keywordIssue(word, line))
				}
			}
			header.WriteString(word)
			i = j - 1
		default:
			header.WriteByte(ch)
		}
	}
	return issues
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

type indentFrame struct {
	indent int
	kind   blockKind
}

// indentedKeywordIssues tracks indentation frames per logical line. Lines
// inside open brackets or after a trailing backslash continue the statement
// above and neither close frames nor open them.
func indentedKeywordIssues(clean string) []models.Issue {
	var issues []models.Issue
	var stack []indentFrame
	depth := 0
	joined := false
	statement, statementIndent := "", 0

	for n, raw := range strings.Split(clean, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if depth == 0 && !joined {
			indent := len(raw) - len(strings.TrimLeft(raw, " \t"))
			for len(stack) > 0 && indent <= stack[len(stack)-1].indent {
				stack = stack[:len(stack)-1]
			}
			if m := pythonKeyword.FindStringSubmatch(trimmed); m != nil {
				want := blockLoop
				if m[1] == "return" {
					want = blockFunction
				}
				found := false
				for _, f := range stack {
					if f.kind == want {
						found = true
						break
					}
				}
				if !found {
					issues = append(issues, keywordIssue(m[1], n+1))
				}
			}
			statement, statementIndent = trimmed, indent
		}

		depth += bracketDelta(trimmed)
		if depth < 0 {
			depth = 0
		}
		joined = strings.HasSuffix(trimmed, "\\")

		if depth == 0 && !joined && strings.HasSuffix(trimmed, ":") {
			kind := blockOther
			switch {
			case pythonDef.MatchString(statement):
				kind = blockFunction
			case pythonLoop.MatchString(statement):
				kind = blockLoop
			}
			stack = append(stack, indentFrame{indent: statementIndent, kind: kind})
		}
	}
	return issues
}

func bracketDelta(line string) int {
	delta := 0
	for i := 0; i < len(line); i++ {
		if _, ok := closerFor[line[i]]; ok {
			delta++
		} else if _, ok := openerFor[line[i]]; ok {
			delta--
		}
	}
	return delta
}
