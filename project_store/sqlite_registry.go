package project_store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/nanunh/genstack/code_analyzer/models"
	"github.com/pterm/pterm"
)

// SQLiteRegistry persists the project registry in a SQLite database.
type SQLiteRegistry struct {
	db          *sql.DB
	projectsDir string
	logger      *pterm.Logger

	mu       sync.RWMutex
	onDelete []func(projectID string)
	now      func() time.Time
}

var _ Registry = (*SQLiteRegistry)(nil)

// NewSQLiteRegistry opens/creates the registry database at dbPath. New
// projects are created under projectsDir.
func NewSQLiteRegistry(dbPath, projectsDir string, logger *pterm.Logger) (*SQLiteRegistry, error) {
	if logger == nil {
		logger = pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled)
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create registry directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}
	registry := &SQLiteRegistry{db: db, projectsDir: projectsDir, logger: logger, now: time.Now}
	if err := registry.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return registry, nil
}

func (r *SQLiteRegistry) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		root TEXT NOT NULL UNIQUE,
		instructions TEXT,
		file_count INTEGER,
		created_at TEXT,
		updated_at TEXT
	);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (r *SQLiteRegistry) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// OnDelete registers a hook run after a project leaves the registry.
func (r *SQLiteRegistry) OnDelete(fn func(projectID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDelete = append(r.onDelete, fn)
}

// Create makes a new project directory with its metadata and registers it.
func (r *SQLiteRegistry) Create(ctx context.Context, name, instructions string) (Project, error) {
	if name == "" {
		return Project{}, errors.New("project name required")
	}
	if r.projectsDir == "" {
		return Project{}, errors.New("projects directory not configured")
	}
	p := Project{
		ID:           uuid.NewString(),
		Name:         name,
		Instructions: instructions,
		CreatedAt:    r.now().UTC().Truncate(time.Second),
	}
	p.Root = filepath.Join(r.projectsDir, DirName(name, p.ID))

	if err := os.MkdirAll(p.Root, 0755); err != nil {
		return Project{}, fmt.Errorf("failed to create project directory: %w", err)
	}
	if err := writeMetadata(p.Root, p); err != nil {
		return Project{}, fmt.Errorf("failed to write project metadata: %w", err)
	}
	if err := writeInstructions(p.Root, p); err != nil {
		return Project{}, fmt.Errorf("failed to write project instructions: %w", err)
	}
	if err := r.save(ctx, p); err != nil {
		return Project{}, err
	}
	r.logger.Info("project created", r.logger.Args("project", p.ID, "root", p.Root))
	return p, nil
}

// Register adds an existing directory. Its project_metadata.json is reused
// when present and written otherwise.
func (r *SQLiteRegistry) Register(ctx context.Context, root, name string) (Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Project{}, err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return Project{}, fmt.Errorf("project root %s is not a directory", root)
	}

	p := Project{Root: abs, Name: name}
	if meta, err := readMetadata(abs); err == nil && meta.ProjectID != "" {
		p.ID = meta.ProjectID
		p.Instructions = meta.Instructions
		p.FileCount = meta.FileCount
		p.CreatedAt = parseTime(meta.CreatedAt, r.now())
		if p.Name == "" {
			p.Name = meta.ProjectName
		}
	} else {
		p.ID = uuid.NewString()
		p.CreatedAt = r.now().UTC().Truncate(time.Second)
		if p.Name == "" {
			p.Name = filepath.Base(abs)
		}
		if err := writeMetadata(abs, p); err != nil {
			return Project{}, fmt.Errorf("failed to write project metadata: %w", err)
		}
	}
	if err := r.save(ctx, p); err != nil {
		return Project{}, err
	}
	return p, nil
}

func (r *SQLiteRegistry) save(ctx context.Context, p Project) error {
	query := `
	INSERT INTO projects (id, name, root, instructions, file_count, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name=excluded.name,
		root=excluded.root,
		instructions=excluded.instructions,
		file_count=excluded.file_count,
		updated_at=excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Root, p.Instructions, p.FileCount,
		p.CreatedAt.Format(time.RFC3339Nano), r.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save project %s: %w", p.ID, err)
	}
	return nil
}

// Get returns a registered project or ErrProjectNotFound.
func (r *SQLiteRegistry) Get(ctx context.Context, projectID string) (Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, root, instructions, file_count, created_at FROM projects WHERE id = ?`, projectID)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, fmt.Errorf("%w: %s", models.ErrProjectNotFound, projectID)
	}
	return p, err
}

// List returns every registered project, oldest first.
func (r *SQLiteRegistry) List(ctx context.Context) ([]Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, root, instructions, file_count, created_at FROM projects ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Delete unregisters a project, optionally removing its directory, and runs
// the OnDelete hooks.
func (r *SQLiteRegistry) Delete(ctx context.Context, projectID string, removeFiles bool) error {
	p, err := r.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, projectID); err != nil {
		return fmt.Errorf("failed to delete project %s: %w", projectID, err)
	}
	if removeFiles {
		if err := os.RemoveAll(p.Root); err != nil {
			return fmt.Errorf("failed to remove project directory: %w", err)
		}
	}
	r.notifyDelete(projectID)
	r.logger.Info("project deleted", r.logger.Args("project", projectID, "files_removed", removeFiles))
	return nil
}

// Load scans the projects directory for project_metadata.json files and
// registers what it finds. Registered projects whose root disappeared are
// dropped. It returns the number of projects found on disk.
func (r *SQLiteRegistry) Load(ctx context.Context) (int, error) {
	existing, err := r.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range existing {
		if _, err := os.Stat(p.Root); os.IsNotExist(err) {
			if _, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, p.ID); err != nil {
				return 0, err
			}
			r.notifyDelete(p.ID)
			r.logger.Debug("dropped project with missing root", r.logger.Args("project", p.ID, "root", p.Root))
		}
	}

	if r.projectsDir == "" {
		return 0, nil
	}
	dirEntries, err := os.ReadDir(r.projectsDir)
	if os.IsNotExist(err) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("failed to scan projects directory: %w", err)
	}

	loaded := 0
	for _, entry := range dirEntries {
		if !entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return loaded, err
		}
		root := filepath.Join(r.projectsDir, entry.Name())
		meta, err := readMetadata(root)
		if err != nil {
			if !os.IsNotExist(err) {
				r.logger.Warn("skipping project directory", r.logger.Args("dir", entry.Name(), "error", err.Error()))
			}
			continue
		}
		if meta.ProjectID == "" {
			continue
		}
		name := meta.ProjectName
		if name == "" {
			name = entry.Name()
		}
		p := Project{
			ID:           meta.ProjectID,
			Name:         name,
			Root:         root,
			Instructions: meta.Instructions,
			FileCount:    countFiles(root),
			CreatedAt:    parseTime(meta.CreatedAt, r.now()),
		}
		if err := r.save(ctx, p); err != nil {
			r.logger.Warn("failed to register project", r.logger.Args("dir", entry.Name(), "error", err.Error()))
			continue
		}
		loaded++
	}
	return loaded, nil
}

func (r *SQLiteRegistry) notifyDelete(projectID string) {
	r.mu.RLock()
	hooks := append([]func(string){}, r.onDelete...)
	r.mu.RUnlock()
	for _, fn := range hooks {
		fn(projectID)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (Project, error) {
	var (
		p            Project
		instructions sql.NullString
		fileCount    sql.NullInt64
		createdAt    sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Root, &instructions, &fileCount, &createdAt); err != nil {
		return Project{}, err
	}
	p.Instructions = instructions.String
	p.FileCount = int(fileCount.Int64)
	p.CreatedAt = parseTime(createdAt.String, time.Time{})
	return p, nil
}

// parseTime accepts RFC 3339 and the ISO layout without a zone.
func parseTime(value string, fallback time.Time) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return fallback
}

// countFiles counts regular project files, excluding registry bookkeeping.
func countFiles(root string) int {
	count := 0
	_ = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr == nil && !isReserved(filepath.ToSlash(rel)) {
			count++
		}
		return nil
	})
	return count
}
