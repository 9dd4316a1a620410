package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nanunh/genstack/code_analyzer/models"
)

const (
	fenceCheckName     = "fence-artifact"
	emptyCheckName     = "empty-candidate"
	signatureCheckName = "signature-presence"
)

// FenceArtifactCheck reports markdown fence lines left in the candidate.
type FenceArtifactCheck struct{}

func (FenceArtifactCheck) Name() string { return fenceCheckName }

func fenceLines(text string) []int {
	var lines []int
	for i, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			lines = append(lines, i+1)
		}
	}
	return lines
}

func (FenceArtifactCheck) Run(in Input) []models.Issue {
	lines := fenceLines(in.Candidate)
	if len(lines) == 0 {
		return nil
	}
	// Markdown legitimately contains fences.
	if in.Language.Family == "markdown" && len(fenceLines(in.Original)) > 0 {
		return nil
	}
	return []models.Issue{{
		Check:       fenceCheckName,
		Severity:    models.SeverityError,
		Line:        lines[0],
		Message:     fmt.Sprintf("%d markdown fence line(s) in generated code", len(lines)),
		Correctable: true,
	}}
}

// Fix drops every fence line.
func (FenceArtifactCheck) Fix(in Input, issue models.Issue) (string, bool) {
	lines := strings.Split(in.Candidate, "\n")
	kept := lines[:0:0]
	for _, line := range lines {
		if !strings.HasPrefix(strings.TrimSpace(line), "```") {
			kept = append(kept, line)
		}
	}
	if len(kept) == len(lines) {
		return "", false
	}
	return strings.Join(kept, "\n"), true
}

// EmptyCandidateCheck rejects a blank result for a non-blank original.
type EmptyCandidateCheck struct{}

func (EmptyCandidateCheck) Name() string { return emptyCheckName }

func (EmptyCandidateCheck) Run(in Input) []models.Issue {
	if strings.TrimSpace(in.Candidate) != "" || strings.TrimSpace(in.Original) == "" {
		return nil
	}
	return []models.Issue{{
		Check:    emptyCheckName,
		Severity: models.SeverityError,
		Message:  "generated content is empty",
	}}
}

// SignaturePresenceCheck requires every function and class of the original
// structure to still be named in the candidate, unless its removal was requested.
type SignaturePresenceCheck struct{}

func (SignaturePresenceCheck) Name() string { return signatureCheckName }

func (SignaturePresenceCheck) Run(in Input) []models.Issue {
	if in.Before == nil || strings.TrimSpace(in.Candidate) == "" {
		return nil
	}
	var issues []models.Issue
	seen := make(map[string]bool)
	missing := func(kind, name string, line int) {
		if name == "" || seen[name] || in.Removed[strings.ToLower(name)] {
			return
		}
		seen[name] = true
		if !containsWord(in.Candidate, name) {
			issues = append(issues, models.Issue{
				Check:    signatureCheckName,
				Severity: models.SeverityError,
				Line:     line,
				Message:  fmt.Sprintf("%s %q is missing from the generated code", kind, name),
			})
		}
	}
	for _, fn := range in.Before.Functions {
		missing("function", fn.Name, fn.Line)
	}
	for _, cls := range in.Before.Classes {
		missing("class", cls.Name, cls.Line)
	}
	return issues
}

func containsWord(text, word string) bool {
	re := regexp.MustCompile(`(?:^|[^\w$])` + regexp.QuoteMeta(word) + `(?:$|[^\w$])`)
	return re.MatchString(text)
}
