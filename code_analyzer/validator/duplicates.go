package validator

import (
	"fmt"

	"github.com/nanunh/genstack/code_analyzer/models"
)

const duplicateCheckName = "duplicate-definition"

// repeatable names may be declared several times in one file.
var repeatable = map[string]bool{"init": true, "_": true}

// DuplicateDefinitionCheck flags a class or top-level function that the
// candidate declares more often than the original did. Methods are left out:
// the same method name legitimately appears on several types.
type DuplicateDefinitionCheck struct{}

func (DuplicateDefinitionCheck) Name() string { return duplicateCheckName }

type definition struct {
	kind string
	name string
	line int
}

func definitions(fs *models.FileStructure) []definition {
	methods := make(map[string]bool)
	var defs []definition
	for _, cls := range fs.Classes {
		for _, m := range cls.Methods {
			methods[m] = true
		}
		defs = append(defs, definition{kind: "class", name: cls.Name, line: cls.Line})
	}
	for _, fn := range fs.Functions {
		if methods[fn.Name] || repeatable[fn.Name] || insideClass(fs, fn.Line) {
			continue
		}
		defs = append(defs, definition{kind: "function", name: fn.Name, line: fn.Line})
	}
	return defs
}

func insideClass(fs *models.FileStructure, line int) bool {
	for _, cls := range fs.Classes {
		if line > cls.Line && line <= cls.EndLine {
			return true
		}
	}
	return false
}

func (DuplicateDefinitionCheck) Run(in Input) []models.Issue {
	if in.Before == nil || in.After == nil {
		return nil
	}
	allowed := make(map[string]int)
	for _, d := range definitions(in.Before) {
		allowed[d.kind+":"+d.name]++
	}

	var issues []models.Issue
	seen := make(map[string]int)
	for _, d := range definitions(in.After) {
		key := d.kind + ":" + d.name
		seen[key]++
		if allowed[key] == 0 || seen[key] != allowed[key]+1 {
			continue
		}
		issues = append(issues, models.Issue{
			Check:    duplicateCheckName,
			Severity: models.SeverityError,
			Line:     d.line,
			Message:  fmt.Sprintf("%s %q is declared more than once", d.kind, d.name),
		})
	}
	return issues
}
