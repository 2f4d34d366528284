// Package staging manages the temporary directory a build is downloaded and
// extracted into.
package staging

import (
	"os"
	"path/filepath"

	"github.com/glorpus-work/blendup/internal/logger"
	"github.com/glorpus-work/blendup/pkg/errors"
	"github.com/glorpus-work/blendup/pkg/fsutil"
)

// DefaultDirName is the staging directory used when none is configured.
const DefaultDirName = "blendup-tmp"

// DefaultDir returns the default staging directory under the system temp dir.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), DefaultDirName)
}

// Cleaner prepares and clears the staging directory.
type Cleaner struct{}

// NewCleaner creates a new Cleaner instance.
func NewCleaner() *Cleaner {
	return &Cleaner{}
}

// Prepare makes sure dir exists. Unless keep is set, whatever a previous run
// left behind is removed first.
func (c *Cleaner) Prepare(dir string, keep bool) error {
	if !keep {
		if err := os.RemoveAll(dir); err != nil {
			return errors.WrapKind(errors.ErrFilesystem, err, "failed to clear staging directory")
		}
	}
	if err := fsutil.EnsureDir(dir); err != nil {
		return errors.WrapKind(errors.ErrFilesystem, err, "failed to create staging directory")
	}
	return nil
}

// Cleanup removes the extracted payload. With keep the downloaded archive
// stays in dir; otherwise dir is removed entirely.
func (c *Cleaner) Cleanup(dir, payloadRoot string, keep bool) error {
	target := dir
	if keep {
		if payloadRoot == "" {
			return nil
		}
		target = payloadRoot
	}

	logger.Debug("Removing staging files", logger.Fields{"path": target, "keep_archive": keep})
	if err := os.RemoveAll(target); err != nil {
		return errors.WrapKind(errors.ErrFilesystem, err, "failed to remove "+target)
	}
	return nil
}
