// Package installer moves an extracted build from the staging directory
// into its destination.
package installer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glorpus-work/blendup/pkg/errors"
	"github.com/glorpus-work/blendup/pkg/fsutil"
	"github.com/glorpus-work/blendup/pkg/platform"
)

// macOS bundle layout of the executable inside an installed build.
const (
	macBundle     = "blender.app"
	macExecutable = "Contents/MacOS/blender"
)

// Installer copies extracted payloads and fixes up the result.
type Installer struct{}

// New creates a new Installer instance.
func New() *Installer {
	return &Installer{}
}

// PayloadRoot returns the single top-level directory extraction created in
// stagingDir. The downloaded archive and any other plain files are ignored.
func (i *Installer) PayloadRoot(stagingDir, archiveName string) (string, error) {
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		return "", errors.WrapKind(errors.ErrFilesystem, err, "failed to read staging directory")
	}

	var dirs []string
	for _, e := range entries {
		if e.Name() == archiveName || !e.IsDir() {
			continue
		}
		dirs = append(dirs, e.Name())
	}

	if len(dirs) != 1 {
		return "", fmt.Errorf("%w: found %d directories in %s", errors.ErrMalformedArchive, len(dirs), stagingDir)
	}
	return filepath.Join(stagingDir, dirs[0]), nil
}

// Copy merges src into dst. Files at the same relative path are overwritten,
// unrelated files in dst are left alone.
func (i *Installer) Copy(src, dst string) error {
	if err := fsutil.CopyTree(src, dst); err != nil {
		return errors.WrapKind(errors.ErrFilesystem, err, "failed to copy build into "+dst)
	}
	return nil
}

// MakeExecutable sets the executable bit on the bundled binary on macOS,
// where zip extraction does not always carry it. It is a no-op elsewhere.
func (i *Installer) MakeExecutable(destDir string, target platform.OS) error {
	if target != platform.OSMacOS {
		return nil
	}
	return makeExecutable(ExecutablePath(destDir, target))
}

// ExecutablePath returns where the application binary lives after install.
func ExecutablePath(destDir string, target platform.OS) string {
	switch target {
	case platform.OSWindows:
		return filepath.Join(destDir, "blender.exe")
	case platform.OSMacOS:
		return filepath.Join(destDir, macBundle, filepath.FromSlash(macExecutable))
	default:
		return filepath.Join(destDir, "blender")
	}
}

func makeExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.WrapKind(errors.ErrFilesystem, err, "executable not found")
	}
	if err := os.Chmod(path, info.Mode().Perm()|fsutil.ExecBits); err != nil {
		return errors.WrapKind(errors.ErrFilesystem, err, "failed to mark executable")
	}
	return nil
}
