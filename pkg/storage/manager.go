package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"wgharvest/pkg/classify"
)

// Artifact is one fetched file in the working directory
type Artifact struct {
	Name     string
	Path     string
	Category string
	DedupKey string
}

// Manager owns the working directory that fetched artifacts land in
type Manager struct {
	dir       string
	extension string
	mu        sync.Mutex
}

// NewManager creates the working directory if needed. Only files ending in
// extension are treated as artifacts; an empty extension matches every file.
func NewManager(dir, extension string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}

	return &Manager{dir: dir, extension: extension}, nil
}

// Dir returns the working directory path
func (m *Manager) Dir() string {
	return m.dir
}

// List returns every artifact currently in the working directory, sorted by name
func (m *Manager) List() ([]Artifact, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read working directory: %w", err)
	}

	var artifacts []Artifact
	for _, entry := range entries {
		if entry.IsDir() || !m.matches(entry.Name()) {
			continue
		}
		artifacts = append(artifacts, Artifact{
			Name:     entry.Name(),
			Path:     filepath.Join(m.dir, entry.Name()),
			Category: classify.Category(entry.Name()),
			DedupKey: classify.DedupKey(entry.Name()),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Name < artifacts[j].Name
	})
	return artifacts, nil
}

// Count returns the number of artifacts in the working directory
func (m *Manager) Count() (int, error) {
	artifacts, err := m.List()
	return len(artifacts), err
}

func (m *Manager) matches(name string) bool {
	if strings.HasSuffix(name, ".tmp") {
		return false
	}
	return m.extension == "" || strings.EqualFold(filepath.Ext(name), m.extension)
}

// Save writes r to the working directory under name, or under a
// " (N)"-suffixed variant when name is taken. It returns the final name.
func (m *Manager) Save(r io.Reader, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	final := m.freeName(name)
	target := filepath.Join(m.dir, final)
	if err := writeAtomic(target, r); err != nil {
		return "", err
	}
	return final, nil
}

// Place moves the file at src into the working directory under name,
// applying the same collision rule as Save.
func (m *Manager) Place(src, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	final := m.freeName(name)
	target := filepath.Join(m.dir, final)

	if err := os.Rename(src, target); err == nil {
		return final, nil
	}

	// src may live on another filesystem
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open downloaded file: %w", err)
	}
	defer in.Close()

	if err := writeAtomic(target, in); err != nil {
		return "", err
	}
	os.Remove(src)
	return final, nil
}

// freeName picks name, or "base (N).ext" for the smallest free N >= 1
func (m *Manager) freeName(name string) string {
	name = filepath.Base(name)
	if !exists(filepath.Join(m.dir, name)) {
		return name
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if !exists(filepath.Join(m.dir, candidate)) {
			return candidate
		}
	}
}

// Purge removes every regular file in the working directory, including
// leftover temporary files and files that are not artifacts. Paths in keep
// are left alone; subdirectories are never touched.
func (m *Manager) Purge(keep ...string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read working directory: %w", err)
	}

	kept := make(map[string]bool, len(keep))
	for _, k := range keep {
		if abs, err := filepath.Abs(k); err == nil {
			kept[abs] = true
		}
	}

	removed := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(m.dir, entry.Name())
		if abs, err := filepath.Abs(path); err == nil && kept[abs] {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", entry.Name(), err))
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeAtomic(target string, r io.Reader) error {
	tempFile := target + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write artifact data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, target); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
