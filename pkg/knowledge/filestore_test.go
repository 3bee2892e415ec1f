package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	fs := NewFileStore(filepath.Join(t.TempDir(), "data", "knowledge.json"))
	require.NoError(t, fs.Ensure())
	return fs
}

func TestFileStoreEnsureIdempotent(t *testing.T) {
	fs := newTestFileStore(t)
	require.NoError(t, fs.SaveUnknown("open the pod bay doors"))

	require.NoError(t, fs.Ensure())
	rec, ok := fs.Get("open the pod bay doors")
	require.True(t, ok)
	assert.Equal(t, 0, rec.Attempts)
}

func TestSaveUnknownIdempotentDiscovery(t *testing.T) {
	fs := newTestFileStore(t)

	require.NoError(t, fs.SaveUnknown("take a screenshot"))
	require.NoError(t, fs.SaveUnknown("take a screenshot"))

	records := fs.List()
	require.Len(t, records, 1)
	assert.Equal(t, "take a screenshot", records[0].Task)
	assert.Equal(t, StatusUnknown, records[0].Status)
	assert.Equal(t, 1, records[0].Attempts)
	assert.Empty(t, records[0].Solution)
}

func TestRecordSolutionRoundTrip(t *testing.T) {
	fs := newTestFileStore(t)

	require.NoError(t, fs.RecordSolution("mute the volume", "press('volumemute')"))

	solution, ok := fs.GetSolution("mute the volume")
	require.True(t, ok)
	assert.Equal(t, "press('volumemute')", solution)

	rec, ok := fs.Get("mute the volume")
	require.True(t, ok)
	assert.Equal(t, StatusLearned, rec.Status)
	require.NotNil(t, rec.LearnedAt)
}

func TestRecordSolutionPreservesHistory(t *testing.T) {
	fs := newTestFileStore(t)

	require.NoError(t, fs.SaveUnknown("lock the screen"))
	require.NoError(t, fs.SaveUnknown("lock the screen"))
	before, _ := fs.Get("lock the screen")

	require.NoError(t, fs.RecordSolution("lock the screen", "hotkey('win', 'l')"))

	rec, ok := fs.Get("lock the screen")
	require.True(t, ok)
	assert.Equal(t, before.FirstSeen, rec.FirstSeen)
	assert.Equal(t, 2, rec.Attempts)
	assert.True(t, rec.Learned())
}

func TestRecordSolutionRejectsEmpty(t *testing.T) {
	fs := newTestFileStore(t)
	assert.Error(t, fs.RecordSolution("do nothing", ""))
}

func TestGetSolutionUnlearnedRecord(t *testing.T) {
	fs := newTestFileStore(t)
	require.NoError(t, fs.SaveUnknown("defragment the disk"))

	_, ok := fs.GetSolution("defragment the disk")
	assert.False(t, ok)
	_, ok = fs.GetSolution("never seen")
	assert.False(t, ok)
}

func TestFindSimilarContainment(t *testing.T) {
	fs := newTestFileStore(t)
	require.NoError(t, fs.RecordSolution("screenshot", "screenshot()"))

	key, ok := fs.FindSimilar("take a screenshot please")
	require.True(t, ok)
	assert.Equal(t, "screenshot", key)

	// The other direction: stored key contains the query.
	key, ok = fs.FindSimilar("screen")
	require.True(t, ok)
	assert.Equal(t, "screenshot", key)

	_, ok = fs.FindSimilar("play some music")
	assert.False(t, ok)
}

func TestFindSimilarInsertionOrder(t *testing.T) {
	fs := newTestFileStore(t)
	require.NoError(t, fs.RecordSolution("open notepad", "a"))
	require.NoError(t, fs.RecordSolution("open notepad and type", "b"))

	key, ok := fs.FindSimilar("open notepad and type hello")
	require.True(t, ok)
	assert.Equal(t, "open notepad", key)
}

func TestFileStoreReopenPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.json")

	fs := NewFileStore(path)
	require.NoError(t, fs.Ensure())
	require.NoError(t, fs.SaveUnknown("first"))
	require.NoError(t, fs.RecordSolution("second", "do the second thing"))

	reopened := NewFileStore(path)
	require.NoError(t, reopened.Ensure())

	records := reopened.List()
	require.Len(t, records, 2)
	assert.Equal(t, "first", records[0].Task)
	assert.Equal(t, "second", records[1].Task)

	solution, ok := reopened.GetSolution("second")
	require.True(t, ok)
	assert.Equal(t, "do the second thing", solution)
}

func TestFileStoreCorruptDocumentStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	fs := NewFileStore(path)
	require.NoError(t, fs.Ensure())
	assert.Empty(t, fs.List())

	// The next write replaces the corrupt document.
	require.NoError(t, fs.SaveUnknown("recover"))
	reopened := NewFileStore(path)
	require.NoError(t, reopened.Ensure())
	assert.Len(t, reopened.List(), 1)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "open notepad", Normalize("  Open   NOTEPAD \n"))
	assert.Equal(t, "", Normalize("   "))
}
