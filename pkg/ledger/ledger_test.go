package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "wgharvest/pkg/errors"
	"wgharvest/pkg/logger"
)

func newTestStore(t *testing.T) (*Store, *logger.TestLogger) {
	t.Helper()
	tl := logger.NewTestLogger()
	return NewStore(filepath.Join(t.TempDir(), "downloaded_wg_ids.json"), tl), tl
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	set := NewSet("us-3", "ch-1", "de-2")
	require.NoError(t, store.Save(set))

	loaded := store.Load()
	assert.Equal(t, set, loaded)
	assert.True(t, store.Exists())
}

func TestSaveWritesSortedArray(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Save(NewSet("b", "c", "a")))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b","c"]`, string(data))

	_, err = os.Stat(store.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file should not survive a save")
}

func TestEmptySetRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Save(NewSet()))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
	assert.Equal(t, 0, store.Load().Len())
}

func TestLoadMissingFile(t *testing.T) {
	store, tl := newTestStore(t)

	set := store.Load()
	assert.NotNil(t, set)
	assert.Equal(t, 0, set.Len())
	assert.Empty(t, tl.GetMessagesByLevel("WARN"), "missing ledger is the normal first run")
}

func TestLoadCorruptFile(t *testing.T) {
	store, tl := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0644))

	set := store.Load()
	assert.Equal(t, 0, set.Len())
	assert.True(t, tl.HasMessage("WARN", "Ledger corrupt"))
}

func TestLoadWrongShape(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte(`{"ids":["a"]}`), 0644))

	assert.Equal(t, 0, store.Load().Len())
}

func TestReset(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Save(NewSet("x", "y")))

	require.NoError(t, store.Reset())
	assert.Equal(t, 0, store.Load().Len())
}

func TestSaveFailureIsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	// a directory where the file should be makes the final rename fail
	path := filepath.Join(dir, "ledger.json")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "child"), 0755))

	store := NewStore(path, logger.NewNopLogger())
	err := store.Save(NewSet("a"))
	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
}

func TestSetHelpers(t *testing.T) {
	s := NewSet("a")
	s.Add("b")
	s.Add("a")

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has("b"))
	assert.False(t, s.Has("c"))
	assert.Equal(t, []ID{"a", "b"}, s.Sorted())

	c := s.Clone()
	c.Add("c")
	assert.False(t, s.Has("c"), "clone must not alias the original")
}
