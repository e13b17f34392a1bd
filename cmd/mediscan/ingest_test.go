package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestCollectPaths(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "labs.pdf"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "scans", "chest.PNG"))
	touch(t, filepath.Join(dir, "scans", "2024", "knee.jpeg"))
	touch(t, filepath.Join(dir, "letters", "referral.docx"))

	t.Run("directory", func(t *testing.T) {
		paths, err := collectPaths([]string{dir})
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "labs.pdf"),
			filepath.Join(dir, "letters", "referral.docx"),
			filepath.Join(dir, "scans", "2024", "knee.jpeg"),
			filepath.Join(dir, "scans", "chest.PNG"),
		}, paths)
	})

	t.Run("recursive glob", func(t *testing.T) {
		paths, err := collectPaths([]string{filepath.Join(dir, "scans", "**", "*.jpeg")})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "scans", "2024", "knee.jpeg")}, paths)
	})

	t.Run("duplicates removed", func(t *testing.T) {
		file := filepath.Join(dir, "labs.pdf")
		paths, err := collectPaths([]string{file, file, filepath.Join(dir, "*.pdf")})
		require.NoError(t, err)
		assert.Equal(t, []string{file}, paths)
	})

	t.Run("unsupported file is ignored", func(t *testing.T) {
		paths, err := collectPaths([]string{filepath.Join(dir, "notes.txt")})
		require.NoError(t, err)
		assert.Empty(t, paths)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := collectPaths([]string{filepath.Join(dir, "missing", "*.pdf")})
		assert.Error(t, err)
	})
}
