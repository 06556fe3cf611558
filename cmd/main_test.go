package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	root := rootCMD()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"chat", "ingest", "search", "serve"})
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("verbose"))
}

func TestIngestRequiresInput(t *testing.T) {
	root := rootCMD()
	root.SetArgs([]string{"ingest"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to ingest")
}

func TestSearchRequiresQuery(t *testing.T) {
	root := rootCMD()
	root.SetArgs([]string{"search"})
	assert.Error(t, root.Execute())
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: redis\n"), 0644))

	_, err := loadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.backend")
}

func TestReadUploads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes"), 0644))

	uploads, err := readUploads([]string{path})
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, "notes.md", uploads[0].Name)
	assert.Equal(t, "# Notes", string(uploads[0].Data))

	_, err = readUploads([]string{filepath.Join(dir, "missing.pdf")})
	assert.Error(t, err)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", snippet("a\n\n b   c", 10))
	long := strings.Repeat("é", 20)
	assert.Equal(t, strings.Repeat("é", 5)+"...", snippet(long, 5))
}
