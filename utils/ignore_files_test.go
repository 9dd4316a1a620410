package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsIgnored(t *testing.T) {
	tests := []struct {
		path     string
		patterns []string
		want     bool
	}{
		{"build/out.go", []string{"build/"}, true},
		{"src/build/out.go", []string{"build/"}, true},
		{"builder/out.go", []string{"build/"}, false},
		{"a.gen.go", []string{"*.gen.go"}, true},
		{"pkg/a.gen.go", []string{"*.gen.go"}, true},
		{"docs/readme.md", []string{"docs/*.md"}, true},
		{"other/docs/readme.md", []string{"docs/*.md"}, false},
		{"main.go", []string{"/main.go"}, true},
		{"main.go", []string{"*.py"}, false},
		{"main.go", nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsIgnored(tt.path, tt.patterns), "%s against %v", tt.path, tt.patterns)
	}
}

func TestIsDefaultIgnored(t *testing.T) {
	assert.True(t, IsDefaultIgnored("node_modules/left-pad/index.js"))
	assert.True(t, IsDefaultIgnored("assets/Logo.PNG"))
	assert.True(t, IsDefaultIgnored("bin/tool"))
	assert.True(t, IsDefaultIgnored("go.sum"))
	assert.True(t, IsDefaultIgnored(".git/config"))
	assert.False(t, IsDefaultIgnored("cabinet/drawer.go"))
	assert.False(t, IsDefaultIgnored("src/main.go"))
}

func TestGetIgnorePatterns(t *testing.T) {
	ClearIgnoreCache()
	root := t.TempDir()
	gitignore := filepath.Join(root, ".gitignore")
	require.NoError(t, os.WriteFile(gitignore, []byte("# generated\nbuild/\n\n!keep.log\n*.log\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".genstack-ignore"), []byte("secret/\n"), 0644))

	patterns, err := GetIgnorePatterns(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"build/", "*.log", "secret/"}, patterns)

	// A newer ignore file replaces the cached patterns.
	require.NoError(t, os.WriteFile(gitignore, []byte("out/\n"), 0644))
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(gitignore, later, later))

	patterns, err = GetIgnorePatterns(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"out/", "secret/"}, patterns)
}

func TestGetIgnorePatterns_NoFiles(t *testing.T) {
	patterns, err := GetIgnorePatterns(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, patterns)
}
