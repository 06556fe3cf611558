package memory_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/pkg/memory"
)

func transcript(t *testing.T, m *memory.Memory) string {
	t.Helper()
	s, err := m.Format()
	require.NoError(t, err)
	return s
}

func TestWindow(t *testing.T) {
	m := memory.New(2)
	for i := 1; i <= 3; i++ {
		require.NoError(t, m.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i)))
	}

	window := m.Window()
	require.Len(t, window, 4)
	assert.Equal(t, "q2", window[0].Content)
	assert.Equal(t, models.RoleHuman, window[0].Role)
	assert.Equal(t, "a3", window[3].Content)
	assert.Equal(t, models.RoleAI, window[3].Role)

	assert.Len(t, m.History(), 6)
	assert.Equal(t, 6, m.Len())
	assert.Equal(t, "Human: q2\nAI: a2\nHuman: q3\nAI: a3", transcript(t, m))
}

func TestWindowZero(t *testing.T) {
	m := memory.New(0)
	require.NoError(t, m.Append("q", "a"))
	assert.Empty(t, m.Window())
	assert.Equal(t, "", transcript(t, m))
	assert.Len(t, m.History(), 2)
}

func TestRestore(t *testing.T) {
	turns := []models.Turn{
		{Role: models.RoleHuman, Content: "hi"},
		{Role: models.RoleAI, Content: "hello"},
	}
	m := memory.Restore(4, turns)
	turns[0].Content = "changed"

	assert.Equal(t, "Human: hi\nAI: hello", transcript(t, m))
}

func TestHistoryIsACopy(t *testing.T) {
	m := memory.New(4)
	require.NoError(t, m.Append("q", "a"))
	h := m.History()
	h[0].Content = "mutated"
	assert.Equal(t, "q", m.History()[0].Content)
}

func TestRestoreKeepsTimes(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	m := memory.Restore(1, []models.Turn{
		{Role: models.RoleHuman, Content: "q1", Time: at},
		{Role: models.RoleAI, Content: "a1", Time: at},
	})
	require.NoError(t, m.Append("q2", "a2"))

	history := m.History()
	require.Len(t, history, 4)
	assert.Equal(t, at, history[0].Time)
	assert.Equal(t, models.RoleAI, history[1].Role)
	assert.True(t, history[2].Time.After(at))
	assert.Equal(t, 4, m.Len())
	assert.Equal(t, "Human: q2\nAI: a2", transcript(t, m))
}
