// Package validator holds the post-generation sanity checks run against a
// candidate file before it is written. The checks are shallow and
// deterministic: they catch the structural damage a generation oracle tends to
// cause without parsing the language.
package validator

import (
	"strings"

	"github.com/nanunh/genstack/code_analyzer/models"
)

// Input is everything a check may look at.
type Input struct {
	Original  string
	Candidate string
	Language  models.LanguageSpec
	// Before is the structure of Original. It may be nil.
	Before *models.FileStructure
	// After is the structure of Candidate. It may be nil.
	After *models.FileStructure
	// Removed holds lower-cased symbol names the instruction asked to delete.
	Removed map[string]bool
}

// Check is a single independent rule.
type Check interface {
	Name() string
	Run(in Input) []models.Issue
}

// Fixer is implemented by checks that can repair their own issue.
type Fixer interface {
	Fix(in Input, issue models.Issue) (string, bool)
}

// Report is the outcome of running every check once.
type Report struct {
	Passed bool           `json:"passed" yaml:"passed"`
	Issues []models.Issue `json:"issues" yaml:"issues"`
	// CorrectedText is set when the only error is correctable and its fix applied.
	CorrectedText *string `json:"corrected_text,omitempty" yaml:"corrected_text,omitempty"`
}

// Validator runs its checks in order.
type Validator struct {
	checks []Check
}

// New builds a validator from an ordered list of checks.
func New(checks ...Check) *Validator {
	return &Validator{checks: checks}
}

// Default returns the standard check order.
func Default() *Validator {
	return New(
		FenceArtifactCheck{},
		EmptyCandidateCheck{},
		BracketBalanceCheck{},
		KeywordContextCheck{},
		SignaturePresenceCheck{},
		DuplicateDefinitionCheck{},
	)
}

// Checks lists the configured check names in order.
func (v *Validator) Checks() []string {
	names := make([]string, len(v.checks))
	for i, c := range v.checks {
		names[i] = c.Name()
	}
	return names
}

// Validate runs every check. Errors the original text already had are kept
// as warnings so a candidate is only judged on what it introduced. It never
// modifies in; a correction is only offered through Report.CorrectedText and
// must be validated again by the caller.
func (v *Validator) Validate(in Input) Report {
	baseline := v.baseline(in)
	report := Report{Issues: []models.Issue{}}
	var errorsFound []models.Issue
	for _, check := range v.checks {
		for _, issue := range check.Run(in) {
			if issue.Check == "" {
				issue.Check = check.Name()
			}
			if issue.Severity != models.SeverityWarning {
				key := issueKey(issue)
				if baseline[key] > 0 {
					baseline[key]--
					issue.Severity = models.SeverityWarning
					issue.Correctable = false
					issue.Message = "pre-existing: " + issue.Message
				} else {
					errorsFound = append(errorsFound, issue)
				}
			}
			report.Issues = append(report.Issues, issue)
		}
	}
	report.Passed = len(errorsFound) == 0

	if len(errorsFound) == 1 && errorsFound[0].Correctable {
		if fixer, ok := v.checkByName(errorsFound[0].Check).(Fixer); ok {
			if fixed, ok := fixer.Fix(in, errorsFound[0]); ok {
				report.CorrectedText = &fixed
			}
		}
	}
	return report
}

// baseline counts the errors each check reports against the original text.
func (v *Validator) baseline(in Input) map[string]int {
	if strings.TrimSpace(in.Original) == "" {
		return nil
	}
	base := Input{Original: in.Original, Candidate: in.Original, Language: in.Language, Before: in.Before, After: in.Before}
	counts := make(map[string]int)
	for _, check := range v.checks {
		for _, issue := range check.Run(base) {
			if issue.Check == "" {
				issue.Check = check.Name()
			}
			if issue.Severity != models.SeverityWarning {
				counts[issueKey(issue)]++
			}
		}
	}
	return counts
}

func issueKey(issue models.Issue) string {
	return issue.Check + "\x00" + issue.Message
}

func (v *Validator) checkByName(name string) Check {
	for _, c := range v.checks {
		if c.Name() == name {
			return c
		}
	}
	return nil
}
