package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestHistoryCmd_Use(t *testing.T) {
	assert.Equal(t, "history [SESSION]", historyCmd.Use)
}

func TestHistoryCmd_NoArchive(t *testing.T) {
	SetServices(&Services{})
	t.Cleanup(func() { SetServices(nil) })

	err := runHistory(historyCmd, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "transcript.archive")
}

func TestHistoryCmd_ListsSessions(t *testing.T) {
	env := setupTestServices(t)
	env.archive.order = []string{"session-b", "session-a"}

	out, err := execute(t, "", "history")

	require.NoError(t, err)
	assert.Contains(t, out, "session-b\nsession-a\n")
}

func TestHistoryCmd_Empty(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "", "history")

	require.NoError(t, err)
	assert.Contains(t, out, "No archived sessions.")
}

func TestHistoryCmd_PrintsTranscript(t *testing.T) {
	env := setupTestServices(t)
	env.archive.sessions["session-a"] = []domain.TranscriptEntry{
		entry("How much leave?", "25 days.", 1),
		entry("Opening time?", "9am.", 2),
	}

	out, err := execute(t, "", "history", "session-a")

	require.NoError(t, err)
	assert.Contains(t, out, "Q: How much leave?\nA: 25 days.\nSources: pages 1")
	assert.Contains(t, out, "Q: Opening time?\nA: 9am.\nSources: pages 2")
}

func TestHistoryCmd_UnknownSession(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "", "history", "nope")

	require.NoError(t, err)
	assert.Contains(t, out, "No entries for session nope.")
}
