package code_modifier

import (
	"fmt"
	"strings"

	"github.com/nanunh/genstack/code_analyzer/models"
)

// DescribeChanges summarizes a modification as a diff of two structures.
func DescribeChanges(before, after models.FileStructure) []string {
	var changes []string

	beforeFns := make(map[string]models.FunctionInfo, len(before.Functions))
	for _, fn := range before.Functions {
		beforeFns[fn.Name] = fn
	}
	afterFns := make(map[string]bool, len(after.Functions))
	for _, fn := range after.Functions {
		afterFns[fn.Name] = true
		old, ok := beforeFns[fn.Name]
		switch {
		case !ok:
			changes = append(changes, fmt.Sprintf("Added function '%s' at line %d", fn.Name, fn.Line))
		case strings.Join(old.Params, ",") != strings.Join(fn.Params, ","):
			changes = append(changes, fmt.Sprintf("Modified function '%s' parameters: (%s) -> (%s)", fn.Name, strings.Join(old.Params, ", "), strings.Join(fn.Params, ", ")))
		case old.EndLine-old.Line != fn.EndLine-fn.Line:
			changes = append(changes, fmt.Sprintf("Modified function '%s' at line %d", fn.Name, fn.Line))
		}
	}
	for _, fn := range before.Functions {
		if !afterFns[fn.Name] {
			changes = append(changes, fmt.Sprintf("Removed function '%s'", fn.Name))
			afterFns[fn.Name] = true
		}
	}

	beforeClasses := make(map[string]models.ClassInfo, len(before.Classes))
	for _, cls := range before.Classes {
		beforeClasses[cls.Name] = cls
	}
	afterClasses := make(map[string]bool, len(after.Classes))
	for _, cls := range after.Classes {
		afterClasses[cls.Name] = true
		old, ok := beforeClasses[cls.Name]
		switch {
		case !ok:
			changes = append(changes, fmt.Sprintf("Added class '%s' at line %d", cls.Name, cls.Line))
		case strings.Join(old.Methods, ",") != strings.Join(cls.Methods, ","):
			changes = append(changes, fmt.Sprintf("Modified class '%s' methods", cls.Name))
		}
	}
	for _, cls := range before.Classes {
		if !afterClasses[cls.Name] {
			changes = append(changes, fmt.Sprintf("Removed class '%s'", cls.Name))
			afterClasses[cls.Name] = true
		}
	}

	if len(after.Imports) != len(before.Imports) {
		changes = append(changes, fmt.Sprintf("Imports: %d -> %d", len(before.Imports), len(after.Imports)))
	}
	if after.TotalLines != before.TotalLines {
		changes = append(changes, fmt.Sprintf("Lines: %d -> %d", before.TotalLines, after.TotalLines))
	}
	return changes
}
