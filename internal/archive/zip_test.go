package archive_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/releasebot/internal/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractZip(t *testing.T) {
	t.Run("GitHub Zipball Layout", func(t *testing.T) {
		src := writeZip(t, map[string]string{
			"owner-repo-abc123/setup.py":     "setup()",
			"owner-repo-abc123/CHANGELOG.md": "# 1.0.0",
			"owner-repo-abc123/pkg/mod.py":   "",
		})
		dst := t.TempDir()

		root, err := archive.ExtractZip(src, dst)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dst, "owner-repo-abc123"), root)
		assert.FileExists(t, filepath.Join(root, "setup.py"))
		assert.FileExists(t, filepath.Join(root, "pkg", "mod.py"))
	})

	t.Run("Flat Layout", func(t *testing.T) {
		src := writeZip(t, map[string]string{"a.txt": "a", "b.txt": "b"})
		dst := t.TempDir()

		root, err := archive.ExtractZip(src, dst)
		require.NoError(t, err)
		assert.Equal(t, dst, root)
	})

	t.Run("Rejects Path Traversal", func(t *testing.T) {
		src := writeZip(t, map[string]string{"../evil.txt": "x"})
		_, err := archive.ExtractZip(src, t.TempDir())
		assert.ErrorIs(t, err, archive.ErrUnsafePath)
	})
}
