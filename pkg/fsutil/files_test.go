package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// TestCopy_OverwritesExisting tests that Copy truncates an existing destination
func TestCopy_OverwritesExisting(t *testing.T) {
	tempDir := t.TempDir()
	src := filepath.Join(tempDir, "src.txt")
	dst := filepath.Join(tempDir, "dst.txt")

	writeFile(t, src, "new")
	writeFile(t, dst, "old content that is longer")

	require.NoError(t, Copy(src, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

// TestCopy_PreservesPermissions tests that the source mode is applied
func TestCopy_PreservesPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on Windows")
	}
	tempDir := t.TempDir()
	src := filepath.Join(tempDir, "tool")
	dst := filepath.Join(tempDir, "copy")

	writeFile(t, src, "#!/bin/sh\n")
	require.NoError(t, os.Chmod(src, 0o755))
	writeFile(t, dst, "stale")

	require.NoError(t, Copy(src, dst))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

// TestCopyTree_Merge tests merge semantics: overwrite same paths, keep unrelated files
func TestCopyTree_Merge(t *testing.T) {
	tempDir := t.TempDir()
	src := filepath.Join(tempDir, "payload")
	dst := filepath.Join(tempDir, "dest")

	writeFile(t, filepath.Join(src, "blender"), "binary v2")
	writeFile(t, filepath.Join(src, "3.0", "scripts", "init.py"), "print('v2')")
	writeFile(t, filepath.Join(dst, "blender"), "binary v1")
	writeFile(t, filepath.Join(dst, "user.cfg"), "keep me")
	writeFile(t, filepath.Join(dst, "3.0", "scripts", "addon.py"), "local addon")

	require.NoError(t, CopyTree(src, dst))

	tests := map[string]string{
		"blender":              "binary v2",
		"3.0/scripts/init.py":  "print('v2')",
		"user.cfg":             "keep me",
		"3.0/scripts/addon.py": "local addon",
	}
	for rel, want := range tests {
		got, err := os.ReadFile(filepath.Join(dst, filepath.FromSlash(rel)))
		require.NoError(t, err, rel)
		assert.Equal(t, want, string(got), rel)
	}
}

// TestCopyTree_CreatesDestination tests that a missing destination is created
func TestCopyTree_CreatesDestination(t *testing.T) {
	tempDir := t.TempDir()
	src := filepath.Join(tempDir, "payload")
	dst := filepath.Join(tempDir, "a", "b", "dest")
	writeFile(t, filepath.Join(src, "readme.txt"), "hi")

	require.NoError(t, CopyTree(src, dst))
	assert.True(t, IsDir(dst))
	assert.FileExists(t, filepath.Join(dst, "readme.txt"))
}

// TestCopyTree_Symlink tests that symlinks are recreated rather than followed
func TestCopyTree_Symlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on Windows")
	}
	tempDir := t.TempDir()
	src := filepath.Join(tempDir, "payload")
	dst := filepath.Join(tempDir, "dest")
	writeFile(t, filepath.Join(src, "lib", "libfoo.so.1"), "lib")
	require.NoError(t, os.Symlink("libfoo.so.1", filepath.Join(src, "lib", "libfoo.so")))

	require.NoError(t, CopyTree(src, dst))

	target, err := os.Readlink(filepath.Join(dst, "lib", "libfoo.so"))
	require.NoError(t, err)
	assert.Equal(t, "libfoo.so.1", target)
}

func TestCopyTree_MissingSource(t *testing.T) {
	tempDir := t.TempDir()
	err := CopyTree(filepath.Join(tempDir, "nope"), filepath.Join(tempDir, "dest"))
	require.Error(t, err)
}
