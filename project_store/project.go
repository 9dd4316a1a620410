package project_store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	MetadataFileName     = "project_metadata.json"
	InstructionsFileName = "README_INSTRUCTIONS.md"
)

// Project is one registered project root.
type Project struct {
	ID           string    `json:"project_id" yaml:"project_id"`
	Name         string    `json:"project_name" yaml:"project_name"`
	Root         string    `json:"root" yaml:"root"`
	Instructions string    `json:"instructions" yaml:"instructions"`
	FileCount    int       `json:"file_count" yaml:"file_count"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// Registry maps project ids to root directories.
type Registry interface {
	Create(ctx context.Context, name, instructions string) (Project, error)
	Register(ctx context.Context, root, name string) (Project, error)
	Get(ctx context.Context, projectID string) (Project, error)
	List(ctx context.Context) ([]Project, error)
	Delete(ctx context.Context, projectID string, removeFiles bool) error
	Load(ctx context.Context) (int, error)
	OnDelete(fn func(projectID string))
}

// projectMetadata is the on-disk project_metadata.json document.
type projectMetadata struct {
	ProjectID    string `json:"project_id"`
	ProjectName  string `json:"project_name"`
	CreatedAt    string `json:"created_at"`
	Instructions string `json:"instructions"`
	FileCount    int    `json:"file_count"`
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DirName returns the directory a project lives in: <name>_<first 8 of id>.
func DirName(name, projectID string) string {
	short := projectID
	if len(short) > 8 {
		short = short[:8]
	}
	safe := strings.Trim(unsafeNameChars.ReplaceAllString(name, "_"), "._")
	if safe == "" {
		safe = "project"
	}
	return safe + "_" + short
}

func readMetadata(root string) (projectMetadata, error) {
	var meta projectMetadata
	data, err := os.ReadFile(filepath.Join(root, MetadataFileName))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("invalid %s: %w", MetadataFileName, err)
	}
	return meta, nil
}

func writeMetadata(root string, p Project) error {
	meta := projectMetadata{
		ProjectID:    p.ID,
		ProjectName:  p.Name,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
		Instructions: p.Instructions,
		FileCount:    p.FileCount,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(root, MetadataFileName), data, 0644)
}

func writeInstructions(root string, p Project) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s - Instructions\n\n", p.Name)
	fmt.Fprintf(&b, "**Project ID:** %s\n", p.ID)
	fmt.Fprintf(&b, "**Created:** %s\n\n", p.CreatedAt.Format(time.RFC3339))
	b.WriteString("## Setup and Run Instructions\n\n")
	b.WriteString(p.Instructions)
	return os.WriteFile(filepath.Join(root, InstructionsFileName), []byte(b.String()), 0644)
}

// isReserved reports whether a project-relative path is registry bookkeeping.
func isReserved(relPath string) bool {
	return relPath == MetadataFileName || relPath == InstructionsFileName
}
