package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Save("abc12345", "blob-one", 1000))

	got, err := s.Load("abc12345")
	require.NoError(t, err)
	assert.Equal(t, "blob-one", got)

	// Save replaces in place.
	require.NoError(t, s.Save("abc12345", "blob-two", 2000))
	got, err = s.Load("abc12345")
	require.NoError(t, err)
	assert.Equal(t, "blob-two", got)
}

func TestLoadMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Load("nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAllAndDelete(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Save("one", "blob-1", 1))
	require.NoError(t, s.Save("two", "blob-2", 2))

	all, err := s.All()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"one": "blob-1", "two": "blob-2"}, all)

	require.NoError(t, s.Delete("one"))
	require.NoError(t, s.Delete("one")) // deleting twice is fine

	all, err = s.All()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"two": "blob-2"}, all)
}

func TestOpenCreatesParentDir(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "nested", "dir", "snapshots.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save("x", "blob", 1))
}
