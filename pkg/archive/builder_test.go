package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wgharvest/pkg/ledger"
	"wgharvest/pkg/logger"
	"wgharvest/pkg/storage"
)

type fixture struct {
	workdir *storage.Manager
	ledger  *ledger.Store
	builder *Builder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	workdir, err := storage.NewManager(filepath.Join(root, "downloaded_configs"), ".conf")
	require.NoError(t, err)
	store := ledger.NewStore(filepath.Join(root, "ids.json"), logger.NewNopLogger())
	builder := NewBuilder(workdir, store, filepath.Join(root, "out", "configs.zip"), logger.NewNopLogger())

	return &fixture{workdir: workdir, ledger: store, builder: builder}
}

func (f *fixture) put(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.workdir.Dir(), name), []byte(content), 0644))
}

func zipNames(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

func TestBuildGroupsByCategory(t *testing.T) {
	f := newFixture(t)
	f.put(t, "wg-us-1.conf", "a")
	f.put(t, "wg-us-1 (2).conf", "b")
	f.put(t, "special.conf", "c")
	f.put(t, "wg-ch-3.conf", "d")

	res, err := f.builder.Build()
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, []string{
		"CH/wg-ch-3.conf",
		"OTHER/special.conf",
		"US/wg-us-1 (2).conf",
		"US/wg-us-1.conf",
	}, zipNames(t, res.Path))

	assert.Equal(t, 4, res.FileCount())
	assert.Equal(t, 3, res.CategoryCount())
	assert.Equal(t, 2, res.Categories["US"])
	assert.Equal(t, []string{"CH", "OTHER", "US"}, res.CategoryNames())

	_, err = os.Stat(res.Path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestBuildPreservesContent(t *testing.T) {
	f := newFixture(t)
	f.put(t, "wg-se-1.conf", "[Interface]\nPrivateKey = abc\n")

	res, err := f.builder.Build()
	require.NoError(t, err)

	r, err := zip.OpenReader(res.Path)
	require.NoError(t, err)
	defer r.Close()

	require.Len(t, r.File, 1)
	rc, err := r.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "[Interface]\nPrivateKey = abc\n", string(data))
}

func TestBuildNoArtifacts(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ledger.Save(ledger.NewSet("kept")))
	f.put(t, "readme.txt", "ignored")

	res, err := f.builder.Build()
	require.NoError(t, err)
	assert.Nil(t, res)

	_, err = os.Stat(f.builder.Path())
	assert.True(t, os.IsNotExist(err), "no archive should be written")

	require.NoError(t, f.builder.Cleanup(res))
	assert.True(t, f.ledger.Load().Has("kept"), "ledger must be left untouched")
}

func TestBuildDeterministic(t *testing.T) {
	f := newFixture(t)
	f.put(t, "wg-nl-2.conf", "two")
	f.put(t, "wg-nl-1.conf", "one")
	f.put(t, "wg-at-9.conf", "nine")

	res, err := f.builder.Build()
	require.NoError(t, err)
	first, err := os.ReadFile(res.Path)
	require.NoError(t, err)

	res, err = f.builder.Build()
	require.NoError(t, err)
	second, err := os.ReadFile(res.Path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCleanup(t *testing.T) {
	f := newFixture(t)
	f.put(t, "wg-us-1.conf", "a")
	f.put(t, "wg-de-1.conf", "b")
	require.NoError(t, f.ledger.Save(ledger.NewSet("us-1", "de-1")))

	res, err := f.builder.Build()
	require.NoError(t, err)
	require.NoError(t, f.builder.Cleanup(res))

	n, err := f.workdir.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, f.ledger.Load().Len())

	_, err = os.Stat(res.Path)
	assert.NoError(t, err, "archive is kept after cleanup")
}

func TestCleanupEmptiesWorkingDirectory(t *testing.T) {
	f := newFixture(t)
	f.put(t, "wg-us-1.conf", "a")
	f.put(t, "wg-us-2.conf.tmp", "partial")
	f.put(t, "wg-de-1.txt", "stray")
	require.NoError(t, os.Mkdir(filepath.Join(f.workdir.Dir(), "nested"), 0755))

	res, err := f.builder.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"US/wg-us-1.conf"}, zipNames(t, res.Path))
	require.NoError(t, f.builder.Cleanup(res))

	entries, err := os.ReadDir(f.workdir.Dir())
	require.NoError(t, err)
	var left []string
	for _, e := range entries {
		left = append(left, e.Name())
	}
	assert.Equal(t, []string{"nested"}, left)
}

func TestCleanupKeepsArchiveInsideWorkingDirectory(t *testing.T) {
	f := newFixture(t)
	f.builder = NewBuilder(f.workdir, f.ledger, filepath.Join(f.workdir.Dir(), "configs.zip"), logger.NewNopLogger())
	f.put(t, "wg-fr-1.conf", "a")

	res, err := f.builder.Build()
	require.NoError(t, err)
	require.NoError(t, f.builder.Cleanup(res))

	_, err = os.Stat(res.Path)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(f.workdir.Dir(), "wg-fr-1.conf"))
	assert.True(t, os.IsNotExist(err))
}
