package session_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/pkg/memory"
	"github.com/xhad/docchat/pkg/session"
)

func transcript(t *testing.T, m *memory.Memory) string {
	t.Helper()
	s, err := m.Format()
	require.NoError(t, err)
	return s
}

func TestModeIsSticky(t *testing.T) {
	s := session.New(4)
	assert.Equal(t, session.ModePlain, s.Mode())
	require.NoError(t, s.SetMode(session.ModePlain))

	s.EnableGrounded()
	assert.Equal(t, session.ModeGrounded, s.Mode())

	err := s.SetMode(session.ModePlain)
	assert.True(t, errors.Is(err, models.ErrModeLocked))
	assert.Equal(t, session.ModeGrounded, s.Mode())
	assert.NoError(t, s.SetMode(session.ModeGrounded))
}

func TestNewWithID(t *testing.T) {
	s := session.NewWithID("2024-05-01_10-30-00", 4)
	assert.Equal(t, 2024, s.CreatedAt.Year())
	assert.Equal(t, 30, s.CreatedAt.Minute())

	s = session.NewWithID("2024-05-01_10-30-00-1a2b3c4d", 4)
	assert.Equal(t, 30, s.CreatedAt.Minute())
}

func TestNewSessionsInSameSecond(t *testing.T) {
	dir := t.TempDir()
	st, err := session.NewStore(dir, 4)
	require.NoError(t, err)

	alice := session.New(4)
	bob := session.New(4)
	require.NotEqual(t, alice.ID, bob.ID)
	assert.Equal(t, alice.ID[:len(session.IDLayout)], alice.CreatedAt.Format(session.IDLayout))

	require.NoError(t, alice.Memory.Append("alice q", "alice a"))
	require.NoError(t, bob.Memory.Append("bob q", "bob a"))
	require.NoError(t, st.Save(alice))
	require.NoError(t, st.Save(bob))

	loaded, err := st.Load(alice.ID)
	require.NoError(t, err)
	history := loaded.Memory.History()
	require.Len(t, history, 2)
	assert.Equal(t, "alice q", history[0].Content)

	ids, err := st.List()
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	st, err := session.NewStore(dir, 1)
	require.NoError(t, err)

	s := session.NewWithID("2024-05-01_10-30-00", 1)
	require.NoError(t, s.Memory.Append("q1", "a1"))
	require.NoError(t, s.Memory.Append("q2", "a2"))
	s.EnableGrounded()
	require.NoError(t, st.Save(s))

	_, err = os.Stat(filepath.Join(dir, "2024-05-01_10-30-00.json"))
	require.NoError(t, err)

	loaded, err := st.Load("2024-05-01_10-30-00")
	require.NoError(t, err)
	assert.Equal(t, session.ModeGrounded, loaded.Mode())
	assert.Len(t, loaded.Memory.History(), 4)
	assert.Equal(t, "Human: q2\nAI: a2", transcript(t, loaded.Memory))
}

func TestStoreList(t *testing.T) {
	dir := t.TempDir()
	st, err := session.NewStore(dir, 4)
	require.NoError(t, err)

	for _, id := range []string{"2024-05-01_10-30-00", "2024-06-01_09-00-00", "2023-12-31_23-59-59"} {
		require.NoError(t, st.Save(session.NewWithID(id, 4)))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	ids, err := st.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-01_09-00-00", "2024-05-01_10-30-00", "2023-12-31_23-59-59"}, ids)
}

func TestStoreLoadMissing(t *testing.T) {
	st, err := session.NewStore(t.TempDir(), 4)
	require.NoError(t, err)

	_, err = st.Load("nope")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
