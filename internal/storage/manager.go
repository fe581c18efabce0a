package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jacobmentalconstruct/neocortex/internal/apperr"
)

// Manager resolves knowledge base names to database files under a single
// data directory and hands out open handles.
type Manager struct {
	dataDir string
}

// NewManager creates a knowledge base manager rooted at dataDir, creating
// the directory if needed.
func NewManager(dataDir string) (*Manager, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Manager{dataDir: dataDir}, nil
}

// Dir returns the data directory holding the knowledge base files.
func (m *Manager) Dir() string { return m.dataDir }

// Path sanitizes a knowledge base name and resolves it to a file path.
// Directory components are stripped so a name can never escape the data
// directory.
func (m *Manager) Path(name string) string {
	clean := filepath.Base(name)
	if !strings.HasSuffix(clean, ".db") {
		clean += ".db"
	}
	return filepath.Join(m.dataDir, clean)
}

// Exists reports whether a knowledge base file is present.
func (m *Manager) Exists(name string) bool {
	_, err := os.Stat(m.Path(name))
	return err == nil
}

// Create initializes a new knowledge base, applying the full schema.
// Creating an existing knowledge base is a no-op beyond re-running
// idempotent migrations.
func (m *Manager) Create(ctx context.Context, name string) (*DB, error) {
	return m.open(ctx, name)
}

// Open opens an existing knowledge base. It fails with apperr.ErrNotFound
// when no such knowledge base has been created.
func (m *Manager) Open(ctx context.Context, name string) (*DB, error) {
	if !m.Exists(name) {
		return nil, fmt.Errorf("knowledge base %q: %w", name, apperr.ErrNotFound)
	}
	return m.open(ctx, name)
}

func (m *Manager) open(ctx context.Context, name string) (*DB, error) {
	path := m.Path(name)
	db, err := openDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge base %q: %w", name, err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate knowledge base %q: %w", name, err)
	}

	return &DB{
		session: session{q: db},
		db:      db,
		name:    filepath.Base(path),
		path:    path,
	}, nil
}

// Delete removes a knowledge base file along with its WAL sidecars. It
// fails with apperr.ErrNotFound when no such knowledge base exists.
func (m *Manager) Delete(name string) error {
	if !m.Exists(name) {
		return fmt.Errorf("knowledge base %q: %w", name, apperr.ErrNotFound)
	}
	path := m.Path(name)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete knowledge base %q: %w", name, err)
	}
	for _, sidecar := range []string{path + "-wal", path + "-shm"} {
		if err := os.Remove(sidecar); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete knowledge base %q: %w", name, err)
		}
	}
	return nil
}

// List returns the names of all knowledge base files in the data
// directory, sorted.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read data directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
