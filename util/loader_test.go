package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.xml", "a.XML", "c.jpg", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.xml"), 0o755))

	files, err := ListFiles(dir, ".xml")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.XML"), filepath.Join(dir, "b.xml")}, files)

	all, err := ListFiles(dir)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = ListFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
