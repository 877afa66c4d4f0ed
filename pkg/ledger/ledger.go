package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	apperrors "wgharvest/pkg/errors"
	"wgharvest/pkg/logger"
)

// ID is the portal-assigned identifier of one artifact
type ID = string

// Set is an unordered collection of already fetched identifiers
type Set map[ID]struct{}

// NewSet builds a set from ids
func NewSet(ids ...ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is recorded
func (s Set) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// Add records id
func (s Set) Add(id ID) {
	s[id] = struct{}{}
}

func (s Set) Len() int {
	return len(s)
}

// Sorted returns the identifiers in lexical order
func (s Set) Sorted() []ID {
	ids := make([]ID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s Set) Clone() Set {
	c := make(Set, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Store persists a Set as a JSON array of strings
type Store struct {
	path   string
	logger logger.Logger
}

// NewStore creates a store backed by the file at path
func NewStore(path string, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{path: path, logger: log}
}

// Path returns the backing file location
func (s *Store) Path() string {
	return s.path
}

// Exists checks if the ledger file exists
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the ledger. A missing, unreadable or malformed file yields an
// empty set; the condition is logged and never returned.
func (s *Store) Load() Set {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).WithField("path", s.path).Warn("Ledger unreadable, starting empty")
		}
		return NewSet()
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		s.logger.WithError(err).WithField("path", s.path).Warn("Ledger corrupt, starting empty")
		return NewSet()
	}

	set := NewSet(ids...)
	s.logger.DebugWithFields("Ledger loaded", map[string]interface{}{
		"path":    s.path,
		"entries": set.Len(),
	})
	return set
}

// Save replaces the ledger file atomically with a sorted JSON array
func (s *Store) Save(set Set) error {
	if err := s.write(set); err != nil {
		return apperrors.Persistence("ledger.save", err)
	}

	s.logger.DebugWithFields("Ledger saved", map[string]interface{}{
		"path":    s.path,
		"entries": set.Len(),
	})
	return nil
}

// Reset persists the empty set
func (s *Store) Reset() error {
	if err := s.Save(NewSet()); err != nil {
		return err
	}
	s.logger.WithField("path", s.path).Info("Ledger reset")
	return nil
}

func (s *Store) write(set Set) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary ledger file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(set.Sorted()); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync ledger file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close ledger file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}
	return nil
}
