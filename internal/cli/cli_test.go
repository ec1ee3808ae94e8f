package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/latestcomment/educhat/internal/models"
	"github.com/latestcomment/educhat/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the command tree with args and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "absent.yaml")))
	err := root.Execute()
	return out.String(), err
}

func seedStore(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("EDUCHAT_DATA_DIR", dir)

	answers := models.NewAnswers()
	answers.Set("minimax/minimax-m2:free", "Water crosses a membrane.")
	best := "minimax/minimax-m2:free"
	id := uuid.New().String()
	store := services.NewFileStore(dir)
	require.True(t, store.Save(id, []models.Turn{{
		Timestamp:      "2026-10-14T09:00:00Z",
		Question:       "Define osmosis.",
		CognitiveLevel: "Knowledge",
		Answers:        answers,
		SelectedBest:   &best,
	}}))
	return dir, id
}

func TestClassifyCommand(t *testing.T) {
	out, err := run(t, "classify", "Define", "the", "term", "osmosis.")
	require.NoError(t, err)
	assert.Equal(t, "Knowledge\n", out)
}

func TestClassifyCommandBreakdown(t *testing.T) {
	out, err := run(t, "classify", "--breakdown", "Define the term osmosis.")
	require.NoError(t, err)
	assert.Equal(t, "Knowledge\n  Knowledge: 1\n", out)
}

func TestClassifyRequiresText(t *testing.T) {
	_, err := run(t, "classify")
	assert.Error(t, err)
}

func TestSessionsCommand(t *testing.T) {
	dir, id := seedStore(t)
	broken := filepath.Join(dir, uuid.New().String()+".json")
	require.NoError(t, os.WriteFile(broken, []byte("{broken"), 0644))

	out, err := run(t, "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, id+"  1 turn(s)")
	assert.Contains(t, out, "  corrupt\n")

	// Listing is read-only: the corrupt file stays where it was.
	assert.FileExists(t, broken)
	assert.NoFileExists(t, broken+".corrupt")
}

func TestSessionsCommandEmpty(t *testing.T) {
	t.Setenv("EDUCHAT_DATA_DIR", t.TempDir())
	out, err := run(t, "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found")
}

func TestExportCommandJSON(t *testing.T) {
	_, id := seedStore(t)
	out, err := run(t, "export", id)
	require.NoError(t, err)

	var turns []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &turns))
	require.Len(t, turns, 1)
	assert.Equal(t, "Knowledge", turns[0]["bloom"])
	assert.Equal(t, "minimax/minimax-m2:free", turns[0]["selected_best"])
}

func TestExportCommandText(t *testing.T) {
	_, id := seedStore(t)
	out, err := run(t, "export", id, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "EduChat session "+id)
	assert.Contains(t, out, "Q: Define osmosis.")
	assert.Contains(t, out, "Best: minimax/minimax-m2:free")
}

func TestExportCommandErrors(t *testing.T) {
	_, _ = seedStore(t)

	_, err := run(t, "export", uuid.New().String())
	assert.ErrorContains(t, err, "not found")

	_, err = run(t, "export", "../etc/passwd")
	assert.ErrorIs(t, err, services.ErrInvalidSessionID)

	_, err = run(t, "export", uuid.New().String(), "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}
