package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Workspace owns the scratch directory holding split parts and exported part outputs.
type Workspace struct {
	dir string
}

func NewWorkspace(dir string) (*Workspace, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch dir %s: %w", dir, err)
	}
	return &Workspace{dir: dir}, nil
}

func (w *Workspace) Dir() string { return w.dir }

// PartPath allocates a location for a split part file.
func (w *Workspace) PartPath(name string) string {
	return filepath.Join(w.dir, filepath.Base(name))
}

// ExportPath allocates a location for an exported part, kept apart from the
// split parts so that a PDF export never overwrites its own source.
func (w *Workspace) ExportPath(name string) (string, error) {
	dir := filepath.Join(w.dir, "exports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create exports dir: %w", err)
	}
	return filepath.Join(dir, filepath.Base(name)), nil
}

// SubDir allocates a fresh directory inside the workspace.
func (w *Workspace) SubDir(name string) (string, error) {
	dir := filepath.Join(w.dir, filepath.Base(name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return dir, nil
}

// Cleanup removes everything inside the scratch directory, leaving the directory itself.
func (w *Workspace) Cleanup() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to list scratch dir: %w", err)
	}
	var errs []error
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(w.dir, entry.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
