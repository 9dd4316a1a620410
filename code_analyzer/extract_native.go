package code_analyzer

import (
	"context"
	"fmt"
	goast "go/ast"
	"go/parser"
	"go/token"
	"go/types"

	"github.com/nanunh/genstack/code_analyzer/models"
)

// goNativeExtractor walks the real Go syntax tree produced by go/parser.
type goNativeExtractor struct{}

func (ge *goNativeExtractor) extract(ctx context.Context, path string, content []byte, spec models.LanguageSpec) (models.FileStructure, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.ParseComments|parser.AllErrors)
	if file == nil {
		return models.FileStructure{}, fmt.Errorf("%w: %v", models.ErrParseFailure, err)
	}

	var result models.FileStructure
	result.HasSyntaxErrors = err != nil

	classIndex := make(map[string]int)
	var pendingMethods []struct{ recv, name string }

	for _, imp := range file.Imports {
		result.Imports = append(result.Imports, sourceText(fset, content, imp.Pos(), imp.End()))
	}

	for _, decl := range file.Decls {
		switch typed := decl.(type) {
		case *goast.FuncDecl:
			fn := models.FunctionInfo{
				Name:    typed.Name.Name,
				Line:    fset.Position(typed.Pos()).Line,
				EndLine: fset.Position(typed.End()).Line,
				Params:  fieldNames(typed.Type.Params),
				Calls:   collectGoCalls(typed.Body),
			}
			result.Functions = append(result.Functions, fn)
			if recv := receiverType(typed); recv != "" {
				pendingMethods = append(pendingMethods, struct{ recv, name string }{recv, fn.Name})
			}

		case *goast.GenDecl:
			switch typed.Tok {
			case token.TYPE:
				for _, spec := range typed.Specs {
					ts, ok := spec.(*goast.TypeSpec)
					if !ok {
						continue
					}
					cls := models.ClassInfo{
						Name:    ts.Name.Name,
						Line:    fset.Position(ts.Pos()).Line,
						EndLine: fset.Position(ts.End()).Line,
					}
					if iface, ok := ts.Type.(*goast.InterfaceType); ok && iface.Methods != nil {
						for _, m := range iface.Methods.List {
							for _, name := range m.Names {
								cls.Methods = append(cls.Methods, name.Name)
							}
						}
					}
					classIndex[cls.Name] = len(result.Classes)
					result.Classes = append(result.Classes, cls)
				}
			case token.VAR, token.CONST:
				for _, spec := range typed.Specs {
					vs, ok := spec.(*goast.ValueSpec)
					if !ok {
						continue
					}
					for _, name := range vs.Names {
						if name.Name != "_" {
							result.Variables = append(result.Variables, name.Name)
						}
					}
				}
			}
		}
	}

	// Methods may be declared before their receiver type.
	for _, m := range pendingMethods {
		if i, ok := classIndex[m.recv]; ok {
			result.Classes[i].Methods = append(result.Classes[i].Methods, m.name)
		}
	}

	return result, nil
}

func sourceText(fset *token.FileSet, content []byte, from, to token.Pos) string {
	start, end := fset.Position(from).Offset, fset.Position(to).Offset
	if start < 0 || end > len(content) || start > end {
		return ""
	}
	return string(content[start:end])
}

func fieldNames(list *goast.FieldList) []string {
	if list == nil {
		return nil
	}
	var names []string
	for _, field := range list.List {
		if len(field.Names) == 0 {
			names = append(names, types.ExprString(field.Type))
			continue
		}
		for _, name := range field.Names {
			names = append(names, name.Name)
		}
	}
	return names
}

func receiverType(fn *goast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	expr := fn.Recv.List[0].Type
	for {
		switch typed := expr.(type) {
		case *goast.StarExpr:
			expr = typed.X
		case *goast.IndexExpr:
			expr = typed.X
		case *goast.IndexListExpr:
			expr = typed.X
		case *goast.Ident:
			return typed.Name
		default:
			return ""
		}
	}
}

func collectGoCalls(body *goast.BlockStmt) []string {
	if body == nil {
		return nil
	}
	var calls []string
	seen := make(map[string]bool)
	goast.Inspect(body, func(n goast.Node) bool {
		call, ok := n.(*goast.CallExpr)
		if !ok {
			return true
		}
		var name string
		switch fn := call.Fun.(type) {
		case *goast.Ident:
			name = fn.Name
		case *goast.SelectorExpr:
			name = fn.Sel.Name
		}
		if name != "" && !seen[name] {
			seen[name] = true
			calls = append(calls, name)
		}
		return true
	})
	return calls
}
