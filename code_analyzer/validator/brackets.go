package validator

import (
	"fmt"
	"strings"

	"github.com/nanunh/genstack/code_analyzer/models"
)

const bracketCheckName = "bracket-balance"

var closerFor = map[byte]byte{'(': ')', '[': ']', '{': '}'}
var openerFor = map[byte]byte{')': '(', ']': '[', '}': '{'}

// BracketBalanceCheck counts (), [] and {} outside strings and comments.
type BracketBalanceCheck struct{}

func (BracketBalanceCheck) Name() string { return bracketCheckName }

type bracketScan struct {
	unclosed   []int // offsets of openers never closed
	surplus    []int // offsets of closers with nothing open
	mismatched []int // offsets of closers that close the wrong opener
}

func scanBrackets(text string, s syntax) bracketScan {
	clean := stripNoise(text, s)
	var scan bracketScan
	var stack []int
	for i := 0; i < len(clean); i++ {
		c := clean[i]
		if _, ok := closerFor[c]; ok {
			stack = append(stack, i)
			continue
		}
		opener, ok := openerFor[c]
		if !ok {
			continue
		}
		if len(stack) == 0 {
			scan.surplus = append(scan.surplus, i)
			continue
		}
		top := stack[len(stack)-1]
		if clean[top] != opener {
			scan.mismatched = append(scan.mismatched, i)
		}
		stack = stack[:len(stack)-1]
	}
	scan.unclosed = stack
	return scan
}

func (c BracketBalanceCheck) Run(in Input) []models.Issue {
	if unbalancedFamilies[in.Language.Family] || strings.TrimSpace(in.Candidate) == "" {
		return nil
	}
	scan := scanBrackets(in.Candidate, syntaxFor(in.Language.Family))

	var issues []models.Issue
	for _, off := range scan.mismatched {
		issues = append(issues, models.Issue{
			Check:    bracketCheckName,
			Severity: models.SeverityError,
			Line:     lineAt(in.Candidate, off),
			Message:  fmt.Sprintf("mismatched closing %q", in.Candidate[off]),
		})
	}
	if len(issues) > 0 {
		return issues
	}

	// A single missing closer or a single extra closer has an obvious repair.
	correctable := len(scan.unclosed)+len(scan.surplus) == 1
	for _, off := range scan.unclosed {
		issues = append(issues, models.Issue{
			Check:       bracketCheckName,
			Severity:    models.SeverityError,
			Line:        lineAt(in.Candidate, off),
			Message:     fmt.Sprintf("unclosed %q", in.Candidate[off]),
			Correctable: correctable,
		})
	}
	for _, off := range scan.surplus {
		issues = append(issues, models.Issue{
			Check:       bracketCheckName,
			Severity:    models.SeverityError,
			Line:        lineAt(in.Candidate, off),
			Message:     fmt.Sprintf("unexpected closing %q", in.Candidate[off]),
			Correctable: correctable,
		})
	}
	return issues
}

// Fix appends the one missing closer at the end of the text or removes the one
// surplus closer.
func (c BracketBalanceCheck) Fix(in Input, issue models.Issue) (string, bool) {
	scan := scanBrackets(in.Candidate, syntaxFor(in.Language.Family))
	if len(scan.mismatched) > 0 || len(scan.unclosed)+len(scan.surplus) != 1 {
		return "", false
	}

	if len(scan.unclosed) == 1 {
		closer := string(closerFor[in.Candidate[scan.unclosed[0]]])
		text := in.Candidate
		if strings.HasSuffix(text, "\n") {
			return text + closer + "\n", true
		}
		return text + "\n" + closer, true
	}

	off := scan.surplus[0]
	return in.Candidate[:off] + in.Candidate[off+1:], true
}
