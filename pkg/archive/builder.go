package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	apperrors "wgharvest/pkg/errors"
	"wgharvest/pkg/ledger"
	"wgharvest/pkg/logger"
	"wgharvest/pkg/storage"
)

// entryTime is stamped on every zip entry so equal inputs give equal bytes
var entryTime = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Result describes a written archive
type Result struct {
	Path       string
	Categories map[string]int
	Artifacts  []storage.Artifact
}

// FileCount returns the number of archived files
func (r *Result) FileCount() int {
	return len(r.Artifacts)
}

// CategoryCount returns the number of distinct categories
func (r *Result) CategoryCount() int {
	return len(r.Categories)
}

// CategoryNames returns the categories in lexical order
func (r *Result) CategoryNames() []string {
	names := make([]string, 0, len(r.Categories))
	for c := range r.Categories {
		names = append(names, c)
	}
	sort.Strings(names)
	return names
}

// Builder packs the working directory into one zip grouped by category
type Builder struct {
	workdir *storage.Manager
	ledger  *ledger.Store
	path    string
	logger  logger.Logger
}

// NewBuilder creates a builder writing to archivePath
func NewBuilder(workdir *storage.Manager, store *ledger.Store, archivePath string, log logger.Logger) *Builder {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Builder{
		workdir: workdir,
		ledger:  store,
		path:    archivePath,
		logger:  log.WithField("component", "archive"),
	}
}

// Path returns the archive destination
func (b *Builder) Path() string {
	return b.path
}

// Build writes every artifact in the working directory to the archive.
// With no artifacts it writes nothing and returns a nil Result.
func (b *Builder) Build() (*Result, error) {
	artifacts, err := b.workdir.List()
	if err != nil {
		return nil, apperrors.Persistence("archive.list", err)
	}
	if len(artifacts) == 0 {
		b.logger.Info("No artifacts to archive")
		return nil, nil
	}

	sort.SliceStable(artifacts, func(i, j int) bool {
		if artifacts[i].Category != artifacts[j].Category {
			return artifacts[i].Category < artifacts[j].Category
		}
		return artifacts[i].Name < artifacts[j].Name
	})

	if err := b.write(artifacts); err != nil {
		return nil, apperrors.Persistence("archive.write", err)
	}

	res := &Result{
		Path:       b.path,
		Categories: make(map[string]int),
		Artifacts:  artifacts,
	}
	for _, a := range artifacts {
		res.Categories[a.Category]++
	}

	b.logger.InfoWithFields("Archive written", map[string]interface{}{
		"path":       b.path,
		"files":      res.FileCount(),
		"categories": res.CategoryCount(),
	})
	return res, nil
}

func (b *Builder) write(artifacts []storage.Artifact) error {
	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	tempPath := b.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary archive: %w", err)
	}

	zw := zip.NewWriter(file)
	for _, a := range artifacts {
		if err := addEntry(zw, a); err != nil {
			zw.Close()
			file.Close()
			os.Remove(tempPath)
			return err
		}
	}

	if err := zw.Close(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to finish archive: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync archive: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close archive: %w", err)
	}

	if err := os.Rename(tempPath, b.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace archive: %w", err)
	}
	return nil
}

func addEntry(zw *zip.Writer, a storage.Artifact) error {
	src, err := os.Open(a.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", a.Name, err)
	}
	defer src.Close()

	header := &zip.FileHeader{
		Name:     path.Join(a.Category, a.Name),
		Method:   zip.Deflate,
		Modified: entryTime,
	}
	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", header.Name, err)
	}

	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("failed to write %s: %w", header.Name, err)
	}
	return nil
}

// Cleanup empties the working directory and resets the ledger, ending the
// campaign. Leftovers that were never archived go too; the archive is kept
// even when it lives inside the working directory.
func (b *Builder) Cleanup(res *Result) error {
	if res == nil {
		return nil
	}

	removed, err := b.workdir.Purge(b.path)
	if err != nil {
		return apperrors.Persistence("archive.cleanup", err)
	}

	if err := b.ledger.Reset(); err != nil {
		return err
	}

	b.logger.WithFields(map[string]interface{}{
		"archived": res.FileCount(),
		"removed":  removed,
	}).Info("Working directory cleaned")
	return nil
}
