package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndBySession(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Record(1, "command", "set grid"))
	require.NoError(t, s.Record(2, "exec", "print 1"))
	require.NoError(t, s.Record(1, "plot", "plot sin(x)"))

	got, err := s.BySession(1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "command", got[0].Kind)
	assert.Equal(t, "set grid", got[0].Text)
	assert.Equal(t, "plot sin(x)", got[1].Text)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestRecentReturnsNewestOldestFirst(t *testing.T) {
	s := openTestStore(t)

	for _, text := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Record(1, "command", text))
	}

	got, err := s.Recent(2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].Text)
	assert.Equal(t, "d", got[1].Text)
}

func TestRecentLargerThanTable(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Record(1, "command", "only"))

	got, err := s.Recent(100)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPurge(t *testing.T) {
	s := openTestStore(t)

	// Backdated row, inserted directly so the cutoff can catch it.
	_, err := s.db.Exec(
		"INSERT INTO entries (session_id, kind, text, created_at) VALUES (1, 'command', 'old', ?)",
		time.Now().Add(-48*time.Hour).Unix(),
	)
	require.NoError(t, err)
	require.NoError(t, s.Record(1, "command", "new"))

	n, err := s.Purge(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.BySession(1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Text)
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(3, "dump", "reset session"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.BySession(3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "reset session", got[0].Text)
}
