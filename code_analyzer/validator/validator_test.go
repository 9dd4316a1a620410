package validator

import (
	"strings"
	"testing"

	"github.com/nanunh/genstack/code_analyzer/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	goLang     = models.LanguageSpec{Tag: "go", Family: "go", Strategy: models.StrategyNativeGrammar}
	jsLang     = models.LanguageSpec{Tag: "javascript", Family: "javascript", Strategy: models.StrategyIncrementalParser}
	pythonLang = models.LanguageSpec{Tag: "python", Family: "python", Strategy: models.StrategyIncrementalParser}
	mdLang     = models.LanguageSpec{Tag: "markdown", Family: "markdown", Strategy: models.StrategyHeuristic}
)

func issueChecks(issues []models.Issue) []string {
	names := make([]string, 0, len(issues))
	for _, issue := range issues {
		names = append(names, issue.Check)
	}
	return names
}

func TestDefaultOrder(t *testing.T) {
	assert.Equal(t, []string{
		"fence-artifact",
		"empty-candidate",
		"bracket-balance",
		"keyword-context",
		"signature-presence",
		"duplicate-definition",
	}, Default().Checks())
}

func TestValidate_CleanCandidatePasses(t *testing.T) {
	candidate := "package auth\n\nfunc Login(user, pw string) error {\n\tif user == \"\" {\n\t\treturn errEmpty\n\t}\n\treturn nil\n}\n"
	report := Default().Validate(Input{Original: candidate, Candidate: candidate, Language: goLang})

	assert.True(t, report.Passed)
	assert.Empty(t, report.Issues)
	assert.Nil(t, report.CorrectedText)
}

func TestBracketBalance(t *testing.T) {
	tests := []struct {
		name        string
		candidate   string
		issues      int
		correctable bool
	}{
		{"balanced", "func a() {\n\tx := []int{1, 2}\n}\n", 0, false},
		{"missing closer", "func a() {\n\tx := 1\n", 1, true},
		{"surplus closer", "func a() {\n}\n}\n", 1, true},
		{"mismatched", "func a() {\n\tx := (1]\n}\n", 1, false},
		{"two missing", "func a() {\n\tif x {\n", 2, false},
		{"brackets in strings and comments", "func a() {\n\ts := \"{(\" // }\n\t/* ] */\n}\n", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := BracketBalanceCheck{}.Run(Input{Candidate: tt.candidate, Language: goLang})
			require.Len(t, issues, tt.issues)
			for _, issue := range issues {
				assert.Equal(t, models.SeverityError, issue.Severity)
				assert.Equal(t, tt.correctable, issue.Correctable)
			}
		})
	}
}

func TestBracketBalance_SkipsProse(t *testing.T) {
	issues := BracketBalanceCheck{}.Run(Input{Candidate: "a (b\n", Language: mdLang})
	assert.Empty(t, issues)
}

func TestBracketBalance_ReportsLine(t *testing.T) {
	issues := BracketBalanceCheck{}.Run(Input{Candidate: "func a() {\n\tx := 1\n}\n}\n", Language: goLang})
	require.Len(t, issues, 1)
	assert.Equal(t, 4, issues[0].Line)
}

func TestValidate_CorrectsSingleMissingBrace(t *testing.T) {
	candidate := "func a() int {\n\treturn 1\n"
	report := Default().Validate(Input{Candidate: candidate, Language: goLang})

	assert.False(t, report.Passed)
	require.NotNil(t, report.CorrectedText)
	assert.Equal(t, "func a() int {\n\treturn 1\n}\n", *report.CorrectedText)

	again := Default().Validate(Input{Candidate: *report.CorrectedText, Language: goLang})
	assert.True(t, again.Passed)
}

func TestValidate_CorrectsSurplusBrace(t *testing.T) {
	candidate := "func a() {\n}\n}\n"
	report := Default().Validate(Input{Candidate: candidate, Language: goLang})

	require.NotNil(t, report.CorrectedText)
	assert.True(t, Default().Validate(Input{Candidate: *report.CorrectedText, Language: goLang}).Passed)
}

func TestValidate_NoCorrectionWithSeveralErrors(t *testing.T) {
	candidate := "return 1\nfunc a() {\n"
	report := Default().Validate(Input{Candidate: candidate, Language: goLang})

	assert.False(t, report.Passed)
	assert.Nil(t, report.CorrectedText)
	assert.ElementsMatch(t, []string{"bracket-balance", "keyword-context"}, issueChecks(report.Issues))
}

func TestFenceArtifact(t *testing.T) {
	candidate := "```go\nfunc a() {}\n```"
	report := Default().Validate(Input{Candidate: candidate, Language: goLang})

	require.Len(t, report.Issues, 1)
	assert.Equal(t, "fence-artifact", report.Issues[0].Check)
	assert.Equal(t, 1, report.Issues[0].Line)
	require.NotNil(t, report.CorrectedText)
	assert.Equal(t, "func a() {}", *report.CorrectedText)
}

func TestFenceArtifact_AllowedInMarkdownWithFences(t *testing.T) {
	original := "# Usage\n\n```sh\nmake\n```\n"
	candidate := "# Usage\n\n```sh\nmake build\n```\n"
	assert.Empty(t, FenceArtifactCheck{}.Run(Input{Original: original, Candidate: candidate, Language: mdLang}))

	assert.NotEmpty(t, FenceArtifactCheck{}.Run(Input{Original: "# Usage\n", Candidate: candidate, Language: mdLang}))
}

func TestEmptyCandidate(t *testing.T) {
	report := Default().Validate(Input{Original: "x = 1\n", Candidate: "  \n", Language: pythonLang})
	assert.False(t, report.Passed)
	assert.Equal(t, []string{"empty-candidate"}, issueChecks(report.Issues))
	assert.Nil(t, report.CorrectedText)

	assert.Empty(t, EmptyCandidateCheck{}.Run(Input{Original: "", Candidate: ""}))
}

func TestKeywordContext_Braced(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		want      []string
	}{
		{"return in function", "function a() {\n  return 1;\n}\n", nil},
		{"return in arrow", "const a = () => {\n  return 1;\n};\n", nil},
		{"return at top level", "const x = 1;\nreturn x;\n", []string{"return"}},
		{"break in for", "function a() {\n  for (let i = 0; i < 3; i++) {\n    if (i) { break; }\n  }\n}\n", nil},
		{"break outside loop", "function a() {\n  if (x) {\n    break;\n  }\n}\n", []string{"break"}},
		{"continue in while", "while (x) {\n  continue;\n}\n", nil},
		{"break in switch", "function a(x) {\n  switch (x) {\n    case 1:\n      break;\n  }\n}\n", nil},
		{"continue in switch without loop", "function a(x) {\n  switch (x) {\n    case 1:\n      continue;\n  }\n}\n", []string{"continue"}},
		{"continue in switch inside loop", "for (const x of xs) {\n  switch (x) {\n    case 1:\n      continue;\n  }\n}\n", nil},
		{"keyword in string", "const s = \"return\";\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := KeywordContextCheck{}.Run(Input{Candidate: tt.candidate, Language: jsLang})
			require.Len(t, issues, len(tt.want))
			for _, issue := range issues {
				assert.Equal(t, "keyword-context", issue.Check)
			}
		})
	}
}

func TestKeywordContext_Indented(t *testing.T) {
	ok := "def run(items):\n    for item in items:\n        if item:\n            continue\n    return items\n"
	assert.Empty(t, KeywordContextCheck{}.Run(Input{Candidate: ok, Language: pythonLang}))

	bad := "def run():\n    pass\n\nbreak\nreturn 1\n"
	issues := KeywordContextCheck{}.Run(Input{Candidate: bad, Language: pythonLang})
	require.Len(t, issues, 2)
	assert.Equal(t, 4, issues[0].Line)
	assert.Equal(t, 5, issues[1].Line)
}

func TestKeywordContext_GoSelectAllowsOnlyBreak(t *testing.T) {
	ok := "package a\n\nfunc run(ch chan int) {\n\tselect {\n\tcase <-ch:\n\t\tbreak\n\t}\n}\n"
	assert.Empty(t, KeywordContextCheck{}.Run(Input{Candidate: ok, Language: goLang}))

	bad := "package a\n\nfunc run(ch chan int) {\n\tselect {\n\tcase <-ch:\n\t\tcontinue\n\t}\n}\n"
	issues := KeywordContextCheck{}.Run(Input{Candidate: bad, Language: goLang})
	require.Len(t, issues, 1)
	assert.Equal(t, 6, issues[0].Line)
	assert.Contains(t, issues[0].Message, "continue")
}

func TestKeywordContext_IndentedMultiLineHeaders(t *testing.T) {
	wrapped := "def login(\n    user,\n    pw,\n):\n    return user == pw\n"
	assert.Empty(t, KeywordContextCheck{}.Run(Input{Candidate: wrapped, Language: pythonLang}))

	loop := "def run(items):\n    for item in sorted(\n        items,\n    ):\n        if item:\n            continue\n    return items\n"
	assert.Empty(t, KeywordContextCheck{}.Run(Input{Candidate: loop, Language: pythonLang}))

	joined := "def total(a, b):\n    return a + \\\n        b\n"
	assert.Empty(t, KeywordContextCheck{}.Run(Input{Candidate: joined, Language: pythonLang}))

	// A dict entry ending in a colon does not open a block.
	table := "LIMITS = {\n    'max':\n        3,\n}\nreturn LIMITS\n"
	issues := KeywordContextCheck{}.Run(Input{Candidate: table, Language: pythonLang})
	require.Len(t, issues, 1)
	assert.Equal(t, 5, issues[0].Line)
}

func TestBracketBalance_RegexLiterals(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
	}{
		{"class with paren", "function clean(s) {\n  return s.replace(/[(]/g, '');\n}\n"},
		{"escaped brace", "const re = /\\{+/;\n"},
		{"slash inside class", "if (/[/{]/.test(s)) {\n  go();\n}\n"},
		{"after return", "function m() {\n  return /[[]/i;\n}\n"},
		{"division stays code", "const half = (a + b) / 2;\nconst q = total / count;\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, BracketBalanceCheck{}.Run(Input{Candidate: tt.candidate, Language: jsLang}))
		})
	}

	// Division is not a literal, so a real imbalance after it is still found.
	issues := BracketBalanceCheck{}.Run(Input{Candidate: "const x = (a / b;\n", Language: jsLang})
	assert.Len(t, issues, 1)
}

func TestValidate_PreExistingErrorsAreWarnings(t *testing.T) {
	original := "def run():\n    pass\n\nbreak\n"
	candidate := "def run():\n    return 1\n\nbreak\n"

	report := Default().Validate(Input{Original: original, Candidate: candidate, Language: pythonLang})
	assert.True(t, report.Passed)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "keyword-context", report.Issues[0].Check)
	assert.Equal(t, models.SeverityWarning, report.Issues[0].Severity)
	assert.True(t, strings.HasPrefix(report.Issues[0].Message, "pre-existing: "))

	// A second occurrence of the same problem is new.
	worse := candidate + "break\n"
	report = Default().Validate(Input{Original: original, Candidate: worse, Language: pythonLang})
	assert.False(t, report.Passed)
	assert.Len(t, report.Issues, 2)
}

func TestValidate_PreExistingImbalanceDoesNotBlockEdits(t *testing.T) {
	original := "package a\n\nfunc a() {\n\tx := 1\n"
	candidate := "package a\n\nfunc a() {\n\tx := 2\n"

	report := Default().Validate(Input{Original: original, Candidate: candidate, Language: goLang})
	assert.True(t, report.Passed)
	assert.Nil(t, report.CorrectedText)
}

func TestDuplicateDefinition(t *testing.T) {
	before := &models.FileStructure{
		Functions: []models.FunctionInfo{
			{Name: "login", Line: 1, EndLine: 2},
			{Name: "__init__", Line: 5, EndLine: 6},
		},
		Classes: []models.ClassInfo{{Name: "Session", Line: 4, EndLine: 6, Methods: []string{"__init__"}}},
	}
	after := &models.FileStructure{
		Functions: []models.FunctionInfo{
			{Name: "login", Line: 1, EndLine: 2},
			{Name: "__init__", Line: 5, EndLine: 6},
			{Name: "login", Line: 8, EndLine: 9},
			{Name: "__init__", Line: 12, EndLine: 13},
		},
		Classes: []models.ClassInfo{
			{Name: "Session", Line: 4, EndLine: 6, Methods: []string{"__init__"}},
			{Name: "Token", Line: 11, EndLine: 13, Methods: []string{"__init__"}},
		},
	}

	issues := DuplicateDefinitionCheck{}.Run(Input{Before: before, After: after})
	require.Len(t, issues, 1)
	assert.Equal(t, 8, issues[0].Line)
	assert.Contains(t, issues[0].Message, "login")

	assert.Empty(t, DuplicateDefinitionCheck{}.Run(Input{Before: before, After: before}))
	assert.Empty(t, DuplicateDefinitionCheck{}.Run(Input{Before: before}))
}

func TestSignaturePresence(t *testing.T) {
	before := &models.FileStructure{
		Functions: []models.FunctionInfo{{Name: "login", Line: 1}, {Name: "logout", Line: 5}},
		Classes:   []models.ClassInfo{{Name: "Session", Line: 9}},
	}
	candidate := "def login(user, pw):\n    pass\n\nclass Session:\n    pass\n"

	issues := SignaturePresenceCheck{}.Run(Input{Candidate: candidate, Language: pythonLang, Before: before})
	require.Len(t, issues, 1)
	assert.Equal(t, 5, issues[0].Line)
	assert.Contains(t, issues[0].Message, "logout")

	removed := SignaturePresenceCheck{}.Run(Input{Candidate: candidate, Language: pythonLang, Before: before, Removed: map[string]bool{"logout": true}})
	assert.Empty(t, removed)
}

func TestSignaturePresence_MatchesWholeWords(t *testing.T) {
	before := &models.FileStructure{Functions: []models.FunctionInfo{{Name: "run", Line: 1}}}
	issues := SignaturePresenceCheck{}.Run(Input{Candidate: "def runner():\n    pass\n", Before: before})
	assert.Len(t, issues, 1)
}

func TestSignaturePresence_NeedsStructure(t *testing.T) {
	assert.Empty(t, SignaturePresenceCheck{}.Run(Input{Candidate: "x = 1\n"}))
}
