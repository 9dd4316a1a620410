package code_analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/nanunh/genstack/code_analyzer/models"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/dockerfile"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/lua"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/protobuf"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/scala"
	"github.com/smacker/go-tree-sitter/swift"
	"github.com/smacker/go-tree-sitter/toml"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"
)

// grammars maps a language tag to its tree-sitter grammar.
var grammars = map[string]func() *sitter.Language{
	"bash":       bash.GetLanguage,
	"c":          c.GetLanguage,
	"cpp":        cpp.GetLanguage,
	"csharp":     csharp.GetLanguage,
	"css":        css.GetLanguage,
	"dockerfile": dockerfile.GetLanguage,
	"html":       html.GetLanguage,
	"java":       java.GetLanguage,
	"javascript": javascript.GetLanguage,
	"kotlin":     kotlin.GetLanguage,
	"lua":        lua.GetLanguage,
	"php":        php.GetLanguage,
	"protobuf":   protobuf.GetLanguage,
	"python":     python.GetLanguage,
	"ruby":       ruby.GetLanguage,
	"rust":       rust.GetLanguage,
	"scala":      scala.GetLanguage,
	"swift":      swift.GetLanguage,
	"toml":       toml.GetLanguage,
	"tsx":        tsx.GetLanguage,
	"typescript": typescript.GetLanguage,
	"yaml":       yaml.GetLanguage,
}

func hasGrammar(tag string) bool {
	_, ok := grammars[tag]
	return ok
}

// nodeShapes lists the node types that count as each structural element for
// one grammar. Variables are only collected at the top level of a file.
type nodeShapes struct {
	functions   set
	classes     set
	imports     set
	variables   set
	calls       map[string]string // call node type -> field holding the callee ("" = first named child)
	importCalls set               // callee names that act as imports (require, source, ...)
	requireBody bool              // class-like nodes only count when they have a body
}

type set map[string]bool

func newSet(items ...string) set {
	s := make(set, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}

var (
	jsShapes = nodeShapes{
		functions: newSet("function_declaration", "generator_function_declaration", "method_definition"),
		classes:   newSet("class_declaration"),
		imports:   newSet("import_statement"),
		variables: newSet("lexical_declaration", "variable_declaration"),
		calls:     map[string]string{"call_expression": "function", "new_expression": "constructor"},
	}
	tsShapes = nodeShapes{
		functions: newSet("function_declaration", "generator_function_declaration", "method_definition",
			"method_signature", "abstract_method_signature", "function_signature"),
		classes:   newSet("class_declaration", "abstract_class_declaration", "interface_declaration", "enum_declaration"),
		imports:   newSet("import_statement"),
		variables: newSet("lexical_declaration", "variable_declaration"),
		calls:     map[string]string{"call_expression": "function", "new_expression": "constructor"},
	}
	cShapes = nodeShapes{
		functions:   newSet("function_definition"),
		classes:     newSet("struct_specifier", "union_specifier", "enum_specifier"),
		imports:     newSet("preproc_include"),
		variables:   newSet("declaration"),
		calls:       map[string]string{"call_expression": "function"},
		requireBody: true,
	}
	cppShapes = nodeShapes{
		functions:   newSet("function_definition"),
		classes:     newSet("class_specifier", "struct_specifier", "union_specifier", "enum_specifier"),
		imports:     newSet("preproc_include", "using_declaration"),
		variables:   newSet("declaration"),
		calls:       map[string]string{"call_expression": "function"},
		requireBody: true,
	}
)

var shapesByTag = map[string]nodeShapes{
	"python": {
		functions: newSet("function_definition"),
		classes:   newSet("class_definition"),
		imports:   newSet("import_statement", "import_from_statement", "future_import_statement"),
		variables: newSet("assignment"),
		calls:     map[string]string{"call": "function"},
	},
	"javascript": jsShapes,
	"typescript": tsShapes,
	"tsx":        tsShapes,
	"java": {
		functions: newSet("method_declaration", "constructor_declaration"),
		classes: newSet("class_declaration", "interface_declaration", "enum_declaration",
			"record_declaration", "annotation_type_declaration"),
		imports: newSet("import_declaration"),
		calls:   map[string]string{"method_invocation": "name", "object_creation_expression": "type"},
	},
	"csharp": {
		functions: newSet("method_declaration", "constructor_declaration", "local_function_statement"),
		classes: newSet("class_declaration", "interface_declaration", "struct_declaration",
			"enum_declaration", "record_declaration"),
		imports: newSet("using_directive"),
		calls:   map[string]string{"invocation_expression": "function", "object_creation_expression": "type"},
	},
	"c":   cShapes,
	"cpp": cppShapes,
	"rust": {
		functions: newSet("function_item", "function_signature_item"),
		classes:   newSet("struct_item", "enum_item", "trait_item", "impl_item", "union_item"),
		imports:   newSet("use_declaration", "extern_crate_declaration"),
		variables: newSet("const_item", "static_item"),
		calls:     map[string]string{"call_expression": "function", "macro_invocation": "macro"},
	},
	"ruby": {
		functions:   newSet("method", "singleton_method"),
		classes:     newSet("class", "module"),
		variables:   newSet("assignment"),
		calls:       map[string]string{"call": "method"},
		importCalls: newSet("require", "require_relative", "load"),
	},
	"php": {
		functions: newSet("function_definition", "method_declaration"),
		classes:   newSet("class_declaration", "interface_declaration", "trait_declaration", "enum_declaration"),
		imports: newSet("namespace_use_declaration", "require_expression", "require_once_expression",
			"include_expression", "include_once_expression"),
		calls: map[string]string{"function_call_expression": "function", "member_call_expression": "name",
			"scoped_call_expression": "name"},
	},
	"kotlin": {
		functions: newSet("function_declaration"),
		classes:   newSet("class_declaration", "object_declaration"),
		imports:   newSet("import_header"),
		variables: newSet("property_declaration"),
		calls:     map[string]string{"call_expression": ""},
	},
	"scala": {
		functions: newSet("function_definition", "function_declaration"),
		classes:   newSet("class_definition", "object_definition", "trait_definition"),
		imports:   newSet("import_declaration"),
		variables: newSet("val_definition", "var_definition"),
		calls:     map[string]string{"call_expression": "function"},
	},
	"swift": {
		functions: newSet("function_declaration", "protocol_function_declaration"),
		classes:   newSet("class_declaration", "protocol_declaration"),
		imports:   newSet("import_declaration"),
		variables: newSet("property_declaration"),
		calls:     map[string]string{"call_expression": ""},
	},
	"lua": {
		functions: newSet("function_declaration", "function_statement", "local_function_statement",
			"function_definition_statement", "local_function"),
		variables:   newSet("variable_declaration", "local_variable_declaration", "assignment_statement"),
		calls:       map[string]string{"function_call": ""},
		importCalls: newSet("require"),
	},
	"bash": {
		functions:   newSet("function_definition"),
		variables:   newSet("variable_assignment"),
		calls:       map[string]string{"command": "name"},
		importCalls: newSet("source", "."),
	},
	"protobuf": {
		functions: newSet("rpc"),
		classes:   newSet("message", "service", "enum"),
		imports:   newSet("import"),
	},
	"dockerfile": {
		imports:   newSet("from_instruction"),
		variables: newSet("env_instruction", "arg_instruction"),
	},
	"yaml": {
		variables: newSet("block_mapping_pair"),
	},
	"toml": {
		classes:   newSet("table", "table_array_element"),
		variables: newSet("pair"),
	},
	"css": {
		imports: newSet("import_statement"),
	},
	"html": {},
}

// transparentNodes do not end the top level of a file.
var transparentNodes = newSet("export_statement", "decorated_definition", "expression_statement",
	"stream", "document", "block_node", "block_mapping", "template_declaration")

var identifierTypes = newSet("identifier", "property_identifier", "type_identifier", "field_identifier",
	"simple_identifier", "constant", "name", "variable_name", "word", "bare_key", "dotted_key",
	"qualified_identifier", "scoped_identifier", "message_name", "service_name", "enum_name", "rpc_name")

var functionValueTypes = newSet("arrow_function", "function_expression", "function", "generator_function")

var trailingIdentifier = regexp.MustCompile(`[A-Za-z_$][A-Za-z0-9_$]*[!?]?$`)

// treeSitterExtractor runs the shape tables against an error-tolerant parse tree.
type treeSitterExtractor struct{}

func (te *treeSitterExtractor) extract(ctx context.Context, path string, content []byte, spec models.LanguageSpec) (models.FileStructure, error) {
	grammar, ok := grammars[spec.Tag]
	if !ok {
		return models.FileStructure{}, fmt.Errorf("%w: no grammar for %s", models.ErrParseFailure, spec.Tag)
	}
	lang := grammar()
	if lang == nil {
		return models.FileStructure{}, fmt.Errorf("%w: grammar %s failed to load", models.ErrParseFailure, spec.Tag)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return models.FileStructure{}, fmt.Errorf("%w: %v", models.ErrParseFailure, err)
	}
	if tree == nil {
		return models.FileStructure{}, fmt.Errorf("%w: parser returned no tree", models.ErrParseFailure)
	}
	defer tree.Close()

	root := tree.RootNode()
	w := &shapeWalker{src: content, shapes: shapesByTag[spec.Tag]}
	w.result.HasSyntaxErrors = root.HasError()
	w.walk(root, true, -1, -1)
	return w.result, nil
}

type shapeWalker struct {
	src    []byte
	shapes nodeShapes
	result models.FileStructure
}

func (w *shapeWalker) walk(node *sitter.Node, topLevel bool, classIdx, fnIdx int) {
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		w.visit(child, topLevel, classIdx, fnIdx)
	}
}

func (w *shapeWalker) visit(node *sitter.Node, topLevel bool, classIdx, fnIdx int) {
	typ := node.Type()

	switch {
	case w.shapes.functions[typ]:
		name := w.nodeName(node)
		if name == "" {
			break
		}
		idx := w.addFunction(node, name, w.params(node), classIdx)
		w.walk(node, false, -1, idx)
		return

	case w.shapes.classes[typ]:
		if w.shapes.requireBody && node.ChildByFieldName("body") == nil {
			break
		}
		name := w.nodeName(node)
		if name == "" {
			break
		}
		w.result.Classes = append(w.result.Classes, models.ClassInfo{
			Name:    name,
			Line:    int(node.StartPoint().Row) + 1,
			EndLine: endLine(node),
		})
		w.walk(node, false, len(w.result.Classes)-1, fnIdx)
		return

	case w.shapes.imports[typ]:
		w.result.Imports = append(w.result.Imports, strings.TrimSpace(node.Content(w.src)))
		return

	case typ == "variable_declarator":
		if value := node.ChildByFieldName("value"); value != nil && functionValueTypes[value.Type()] {
			if name := w.nodeName(node); name != "" {
				idx := w.addFunction(node, name, w.params(value), classIdx)
				w.walk(value, false, -1, idx)
				return
			}
		}
	}

	if field, ok := w.shapes.calls[typ]; ok {
		callee := w.calleeName(node, field)
		if callee != "" && w.shapes.importCalls[callee] {
			w.result.Imports = append(w.result.Imports, strings.TrimSpace(node.Content(w.src)))
			return
		}
		if callee != "" && fnIdx >= 0 {
			w.addCall(fnIdx, callee)
		}
	}

	if topLevel && w.shapes.variables[typ] {
		w.result.Variables = append(w.result.Variables, w.variableNames(node)...)
	}

	w.walk(node, topLevel && transparentNodes[typ], classIdx, fnIdx)
}

func (w *shapeWalker) addFunction(node *sitter.Node, name string, params []string, classIdx int) int {
	w.result.Functions = append(w.result.Functions, models.FunctionInfo{
		Name:    name,
		Line:    int(node.StartPoint().Row) + 1,
		EndLine: endLine(node),
		Params:  params,
	})
	if classIdx >= 0 {
		w.result.Classes[classIdx].Methods = append(w.result.Classes[classIdx].Methods, name)
	}
	return len(w.result.Functions) - 1
}

func (w *shapeWalker) addCall(fnIdx int, callee string) {
	fn := &w.result.Functions[fnIdx]
	for _, existing := range fn.Calls {
		if existing == callee {
			return
		}
	}
	fn.Calls = append(fn.Calls, callee)
}

// endLine is the 1-based last line of a node. A node ending at column 0 of a
// later row ends on the previous line.
func endLine(node *sitter.Node) int {
	end := node.EndPoint()
	if end.Column == 0 && end.Row > node.StartPoint().Row {
		return int(end.Row)
	}
	return int(end.Row) + 1
}

func (w *shapeWalker) nodeName(node *sitter.Node) string {
	for _, field := range []string{"name", "key", "pattern"} {
		if c := node.ChildByFieldName(field); c != nil {
			return lastSegment(c.Content(w.src))
		}
	}
	if d := node.ChildByFieldName("declarator"); d != nil {
		return w.declaratorName(d)
	}
	if node.Type() == "impl_item" {
		if t := node.ChildByFieldName("type"); t != nil {
			return lastSegment(t.Content(w.src))
		}
	}
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		c := node.NamedChild(i)
		if c != nil && identifierTypes[c.Type()] {
			return lastSegment(c.Content(w.src))
		}
	}
	return ""
}

// declaratorName follows C-style declarator chains down to the identifier.
func (w *shapeWalker) declaratorName(node *sitter.Node) string {
	for depth := 0; node != nil && depth < 8; depth++ {
		switch node.Type() {
		case "identifier", "field_identifier", "qualified_identifier", "destructor_name", "operator_name", "type_identifier":
			return lastSegment(node.Content(w.src))
		}
		next := node.ChildByFieldName("declarator")
		if next == nil {
			return w.firstIdentifier(node, 2)
		}
		node = next
	}
	return ""
}

func (w *shapeWalker) firstIdentifier(node *sitter.Node, maxDepth int) string {
	if node == nil || maxDepth < 0 {
		return ""
	}
	if identifierTypes[node.Type()] {
		return lastSegment(node.Content(w.src))
	}
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		if name := w.firstIdentifier(node.NamedChild(i), maxDepth-1); name != "" {
			return name
		}
	}
	return ""
}

func (w *shapeWalker) params(node *sitter.Node) []string {
	list := node.ChildByFieldName("parameters")
	if list == nil {
		if single := node.ChildByFieldName("parameter"); single != nil {
			return []string{w.paramName(single)}
		}
	}
	if list == nil {
		if d := node.ChildByFieldName("declarator"); d != nil {
			list = findParameterList(d)
		}
	}
	if list == nil {
		count := int(node.NamedChildCount())
		for i := 0; i < count && list == nil; i++ {
			c := node.NamedChild(i)
			if c != nil && strings.Contains(c.Type(), "parameters") {
				list = c
			}
		}
	}

	var params []string
	if list == nil {
		// Some grammars (swift) hang parameters directly off the declaration.
		count := int(node.NamedChildCount())
		for i := 0; i < count; i++ {
			c := node.NamedChild(i)
			if c != nil && c.Type() == "parameter" {
				params = append(params, w.paramName(c))
			}
		}
		return params
	}

	count := int(list.NamedChildCount())
	for i := 0; i < count; i++ {
		c := list.NamedChild(i)
		if c == nil || strings.Contains(c.Type(), "comment") {
			continue
		}
		if name := w.paramName(c); name != "" && name != "void" {
			params = append(params, name)
		}
	}
	return params
}

func findParameterList(node *sitter.Node) *sitter.Node {
	for depth := 0; node != nil && depth < 8; depth++ {
		if p := node.ChildByFieldName("parameters"); p != nil {
			return p
		}
		node = node.ChildByFieldName("declarator")
	}
	return nil
}

func (w *shapeWalker) paramName(node *sitter.Node) string {
	if identifierTypes[node.Type()] {
		return node.Content(w.src)
	}
	for _, field := range []string{"name", "pattern"} {
		if c := node.ChildByFieldName(field); c != nil {
			if name := w.firstIdentifier(c, 3); name != "" {
				return name
			}
			return c.Content(w.src)
		}
	}
	if d := node.ChildByFieldName("declarator"); d != nil {
		if name := w.declaratorName(d); name != "" {
			return name
		}
	}
	if name := w.firstIdentifier(node, 3); name != "" {
		return name
	}
	text := strings.TrimLeft(strings.TrimSpace(node.Content(w.src)), "&*")
	return strings.TrimSpace(strings.TrimPrefix(text, "mut "))
}

func (w *shapeWalker) variableNames(node *sitter.Node) []string {
	switch node.Type() {
	case "lexical_declaration", "variable_declaration":
		var names []string
		count := int(node.NamedChildCount())
		for i := 0; i < count; i++ {
			c := node.NamedChild(i)
			if c == nil || c.Type() != "variable_declarator" {
				continue
			}
			if value := c.ChildByFieldName("value"); value != nil && functionValueTypes[value.Type()] {
				continue
			}
			if name := w.nodeName(c); name != "" {
				names = append(names, name)
			}
		}
		return names
	case "assignment", "assignment_statement":
		if left := node.ChildByFieldName("left"); left != nil {
			if identifierTypes[left.Type()] {
				return []string{left.Content(w.src)}
			}
			return nil
		}
	case "declaration":
		d := node.ChildByFieldName("declarator")
		if d == nil || d.Type() == "function_declarator" {
			return nil
		}
		if name := w.declaratorName(d); name != "" {
			return []string{name}
		}
		return nil
	}
	if name := w.nodeName(node); name != "" {
		return []string{name}
	}
	if name := w.firstIdentifier(node, 3); name != "" {
		return []string{name}
	}
	return nil
}

func (w *shapeWalker) calleeName(node *sitter.Node, field string) string {
	var target *sitter.Node
	if field != "" {
		target = node.ChildByFieldName(field)
	} else if node.NamedChildCount() > 0 {
		target = node.NamedChild(0)
	}
	if target == nil {
		return ""
	}
	text := target.Content(w.src)
	if i := strings.IndexByte(text, '('); i >= 0 {
		text = text[:i]
	}
	return lastSegment(text)
}

// lastSegment strips qualifiers: "a.b.c" -> "c", "Foo::bar" -> "bar".
func lastSegment(text string) string {
	text = strings.TrimSpace(text)
	if text == "." {
		return text
	}
	if m := trailingIdentifier.FindString(text); m != "" {
		return strings.TrimRight(m, "!")
	}
	return text
}
