package services

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/latestcomment/educhat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTurns() []models.Turn {
	first := models.NewAnswers()
	first.Set("minimax/minimax-m2:free", "Osmose est le passage de l'eau — à travers une membrane.")
	first.Set("nvidia/nemotron-nano-9b-v2:free", "Diffusion of water across a membrane")
	best := "minimax/minimax-m2:free"

	return []models.Turn{
		{
			Timestamp:      "2026-10-14T09:00:00Z",
			Question:       "Define osmosis.",
			CognitiveLevel: "Knowledge",
			Answers:        first,
			SelectedBest:   &best,
		},
		{
			Timestamp:      "2026-10-14T09:05:00Z",
			Question:       "Hello there.",
			CognitiveLevel: NotClassified,
			Answers:        models.NewAnswers(),
		},
	}
}

// answerPairs flattens Answers into an ordered slice for comparisons.
func answerPairs(a *models.Answers) [][2]string {
	var out [][2]string
	for pair := a.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, [2]string{pair.Key, pair.Value})
	}
	return out
}

func assertTurnsEqual(t *testing.T, want, got []models.Turn) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Timestamp, got[i].Timestamp)
		assert.Equal(t, want[i].Question, got[i].Question)
		assert.Equal(t, want[i].CognitiveLevel, got[i].CognitiveLevel)
		assert.Equal(t, answerPairs(want[i].Answers), answerPairs(got[i].Answers))
		assert.Equal(t, want[i].SelectedBest, got[i].SelectedBest)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "chat_data"))
	id := uuid.New().String()
	turns := sampleTurns()

	require.True(t, store.Save(id, turns))
	assert.Empty(t, store.LastError())

	loaded, err := store.Load(id)
	require.NoError(t, err)
	assertTurnsEqual(t, turns, loaded)
}

func TestFileStoreFileFormat(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	id := uuid.New().String()
	require.True(t, store.Save(id, sampleTurns()))

	data, err := os.ReadFile(filepath.Join(dir, id+".json"))
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "l'eau — à travers")
	assert.Contains(t, text, "\n  {\n    \"timestamp\"")
	assert.Contains(t, text, `"bloom": "Knowledge"`)
	assert.Contains(t, text, `"selected_best": null`)
	assert.Less(t, strings.Index(text, `"minimax/minimax-m2:free": `), strings.Index(text, `"nvidia/nemotron-nano-9b-v2:free": `))
}

func TestFileStoreLoadMissing(t *testing.T) {
	store := NewFileStore(t.TempDir())
	turns, err := store.Load(uuid.New().String())
	require.NoError(t, err)
	assert.NotNil(t, turns)
	assert.Empty(t, turns)
}

func TestFileStoreSaveOverwrites(t *testing.T) {
	store := NewFileStore(t.TempDir())
	id := uuid.New().String()
	turns := sampleTurns()

	require.True(t, store.Save(id, turns))
	require.True(t, store.Save(id, turns[:1]))

	loaded, err := store.Load(id)
	require.NoError(t, err)
	assertTurnsEqual(t, turns[:1], loaded)
}

func TestFileStoreLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	id := uuid.New().String()
	path := filepath.Join(dir, id+".json")
	require.NoError(t, os.WriteFile(path, []byte("[{not json"), 0644))

	_, err := store.Load(id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptSession))

	assert.NoFileExists(t, path)
	assert.FileExists(t, path+".corrupt")
}

func TestFileStorePeekLeavesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	id := uuid.New().String()
	path := filepath.Join(dir, id+".json")
	require.NoError(t, os.WriteFile(path, []byte("[{not json"), 0644))

	_, err := store.Peek(id)
	assert.ErrorIs(t, err, ErrCorruptSession)
	assert.FileExists(t, path)
	assert.NoFileExists(t, path+".corrupt")

	good := uuid.New().String()
	require.True(t, store.Save(good, sampleTurns()))
	turns, err := store.Peek(good)
	require.NoError(t, err)
	assertTurnsEqual(t, sampleTurns(), turns)
}

func TestFileStoreRejectsBadIDs(t *testing.T) {
	store := NewFileStore(t.TempDir())

	_, err := store.Load("../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidSessionID)

	assert.False(t, store.Save("not-a-uuid", sampleTurns()))
	assert.Contains(t, store.LastError(), "invalid session id")
}

func TestFileStoreSaveFailureRecorded(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	// The data directory cannot be created under a regular file.
	store := NewFileStore(filepath.Join(blocker, "chat_data"))
	assert.False(t, store.Save(uuid.New().String(), sampleTurns()))
	assert.Contains(t, store.LastError(), "create data directory")
}

func TestFileStoreList(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	ids, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, ids)

	a, b := uuid.New().String(), uuid.New().String()
	require.True(t, store.Save(a, sampleTurns()))
	require.True(t, store.Save(b, nil))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.json"), []byte("[]"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, a+".json.corrupt"), []byte("x"), 0644))

	ids, err = store.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, ids)
	assert.True(t, store.Exists(a))
	assert.False(t, store.Exists(uuid.New().String()))
}

func TestFileStoreListMissingDir(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent"))
	ids, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, ids)
}
