package code_analyzer

import (
	"context"
	"strings"
	"testing"

	"github.com/nanunh/genstack/code_analyzer/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goSample = `package auth

import (
	"errors"
	"strings"
)

var ErrDenied = errors.New("denied")

type Service struct {
	users map[string]string
}

func (s *Service) Login(user, pw string) error {
	if !s.check(user, pw) {
		return ErrDenied
	}
	return nil
}

func (s *Service) check(user, pw string) bool {
	return s.users[strings.ToLower(user)] == pw
}
`

const pythonSample = `import os
from typing import List

LIMIT = 10

class Account:
    def __init__(self, owner):
        self.owner = owner

    def deposit(self, amount):
        return validate(amount)

def validate(amount):
    return amount > 0
`

const jsSample = `import { readFile } from "fs";

const handler = async (req, res) => {
  const body = parse(req);
  res.send(body);
};

function parse(req) {
  return JSON.parse(req.body);
}

class Router {
  route(path) {
    return handler;
  }
}
`

const zigSample = `const std = @import("std");

pub const Point = struct {
    x: i32,
    y: i32,
};

pub fn add(a: i32, b: i32) i32 {
    return a + b;
}

pub fn main() void {
    const r = add(1, 2);
    std.debug.print("{}\n", .{r});
}
`

func extract(t *testing.T, path, content string) models.FileStructure {
	t.Helper()
	extractor := NewStructureExtractor(nil)
	return extractor.Extract(context.Background(), path, []byte(content), ResolveLanguage(path, []byte(content)))
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"a", 1},
		{"a\n", 1},
		{"a\nb", 2},
		{"a\nb\n", 2},
		{"\n\n", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CountLines([]byte(tt.content)), "content %q", tt.content)
		assert.Len(t, splitLines(tt.content), tt.want, "content %q", tt.content)
	}
}

func TestExtract_GoNative(t *testing.T) {
	fs := extract(t, "auth/service.go", goSample)

	assert.Equal(t, "go", fs.Language)
	assert.Equal(t, models.StrategyNativeGrammar, fs.Strategy)
	assert.False(t, fs.HasSyntaxErrors)
	assert.Equal(t, CountLines([]byte(goSample)), fs.TotalLines)
	assert.Equal(t, []string{`"errors"`, `"strings"`}, fs.Imports)
	assert.Equal(t, []string{"ErrDenied"}, fs.Variables)

	login := fs.FindFunction("Login")
	require.NotNil(t, login)
	assert.Equal(t, 14, login.Line)
	assert.Equal(t, 19, login.EndLine)
	assert.Equal(t, []string{"user", "pw"}, login.Params)
	assert.Contains(t, login.Calls, "check")

	check := fs.FindFunction("check")
	require.NotNil(t, check)
	assert.Contains(t, check.Calls, "ToLower")

	service := fs.FindClass("Service")
	require.NotNil(t, service)
	assert.Equal(t, 10, service.Line)
	assert.Equal(t, []string{"Login", "check"}, service.Methods)
}

func TestExtract_GoSyntaxErrorStillProducesRecord(t *testing.T) {
	broken := "package main\n\nfunc main() {\n\tfmt.Println(\"x\"\n}\n"
	fs := extract(t, "main.go", broken)

	assert.True(t, fs.HasSyntaxErrors)
	assert.Equal(t, 5, fs.TotalLines)
	assert.NotNil(t, fs.Functions)
	assert.NotNil(t, fs.Classes)
}

func TestExtract_TreeSitterPython(t *testing.T) {
	fs := extract(t, "bank/account.py", pythonSample)

	assert.Equal(t, "python", fs.Language)
	assert.Equal(t, models.StrategyIncrementalParser, fs.Strategy)
	assert.Equal(t, []string{"import os", "from typing import List"}, fs.Imports)
	assert.Contains(t, fs.Variables, "LIMIT")

	account := fs.FindClass("Account")
	require.NotNil(t, account)
	assert.Equal(t, 6, account.Line)
	assert.Equal(t, []string{"__init__", "deposit"}, account.Methods)

	deposit := fs.FindFunction("deposit")
	require.NotNil(t, deposit)
	assert.Equal(t, []string{"self", "amount"}, deposit.Params)
	assert.Equal(t, []string{"validate"}, deposit.Calls)

	validate := fs.FindFunction("validate")
	require.NotNil(t, validate)
	assert.Equal(t, 13, validate.Line)
	assert.Equal(t, 14, validate.EndLine)
}

func TestExtract_TreeSitterJavaScript(t *testing.T) {
	fs := extract(t, "src/server.js", jsSample)

	assert.Equal(t, "javascript", fs.Language)
	assert.Equal(t, models.StrategyIncrementalParser, fs.Strategy)
	require.Len(t, fs.Imports, 1)
	assert.True(t, strings.HasPrefix(fs.Imports[0], "import { readFile }"))

	handler := fs.FindFunction("handler")
	require.NotNil(t, handler)
	assert.Equal(t, []string{"req", "res"}, handler.Params)
	assert.Contains(t, handler.Calls, "parse")
	assert.Contains(t, handler.Calls, "send")

	parse := fs.FindFunction("parse")
	require.NotNil(t, parse)
	assert.Equal(t, 8, parse.Line)

	router := fs.FindClass("Router")
	require.NotNil(t, router)
	assert.Equal(t, []string{"route"}, router.Methods)
	assert.NotContains(t, fs.Variables, "handler")
}

func TestExtract_HeuristicZig(t *testing.T) {
	fs := extract(t, "src/main.zig", zigSample)

	assert.Equal(t, "zig", fs.Language)
	assert.Equal(t, models.StrategyHeuristic, fs.Strategy)
	assert.Equal(t, []string{`const std = @import("std");`}, fs.Imports)

	point := fs.FindClass("Point")
	require.NotNil(t, point)
	assert.Equal(t, 3, point.Line)
	assert.Equal(t, 6, point.EndLine)

	add := fs.FindFunction("add")
	require.NotNil(t, add)
	assert.Equal(t, 8, add.Line)
	assert.Equal(t, 10, add.EndLine)
	assert.Equal(t, []string{"a", "b"}, add.Params)

	main := fs.FindFunction("main")
	require.NotNil(t, main)
	assert.Equal(t, []string{}, main.Params)
	assert.Equal(t, []string{"add"}, main.Calls)
}

func TestExtract_PlaintextHasOnlyLineCount(t *testing.T) {
	content := "first line\nsecond line\nthird"
	fs := extract(t, "notes.xyz", content)

	assert.Equal(t, "plaintext", fs.Language)
	assert.Equal(t, models.StrategyHeuristic, fs.Strategy)
	assert.Equal(t, 3, fs.TotalLines)
	assert.Empty(t, fs.Functions)
	assert.Empty(t, fs.Classes)
	assert.Empty(t, fs.Imports)
	assert.Equal(t, 0, fs.ComplexityScore)
}

func TestExtract_EmptyFile(t *testing.T) {
	fs := extract(t, "empty.py", "")
	assert.Equal(t, 0, fs.TotalLines)
	assert.NotNil(t, fs.Functions)
	assert.NotNil(t, fs.Variables)
}

func TestExtract_Deterministic(t *testing.T) {
	first := extract(t, "src/server.js", jsSample)
	second := extract(t, "src/server.js", jsSample)
	assert.Equal(t, first, second)
	assert.Equal(t, ContentHash([]byte(jsSample)), first.ContentHash)
}

func TestExtract_UnknownStrategyFallsBackToHeuristic(t *testing.T) {
	extractor := NewStructureExtractor(nil)
	spec := models.LanguageSpec{Tag: "python", Family: "python", Strategy: models.Strategy("bogus")}
	fs := extractor.Extract(context.Background(), "x.py", []byte("def run(a):\n    pass\n"), spec)

	assert.Equal(t, models.StrategyHeuristic, fs.Strategy)
	require.NotNil(t, fs.FindFunction("run"))
}

func TestExtract_MissingGrammarDowngrades(t *testing.T) {
	extractor := NewStructureExtractor(nil)
	spec := models.LanguageSpec{Tag: "dart", Family: "dart", Strategy: models.StrategyIncrementalParser}
	fs := extractor.Extract(context.Background(), "lib/app.dart", []byte("void main() {\n}\n"), spec)

	assert.Equal(t, models.StrategyHeuristic, fs.Strategy)
	assert.Equal(t, 2, fs.TotalLines)
}

func TestComplexityScore(t *testing.T) {
	fs := models.FileStructure{
		Functions: []models.FunctionInfo{{Name: "a", Params: []string{"x", "y"}}, {Name: "b"}},
		Classes:   []models.ClassInfo{{Name: "C"}},
	}
	assert.Equal(t, 2+2+2, ComplexityScore(fs))
}
