// Package state persists the filename of the last successfully installed
// build so repeated runs can skip a reinstall.
package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glorpus-work/blendup/internal/logger"
	"github.com/glorpus-work/blendup/pkg/errors"
	"github.com/glorpus-work/blendup/pkg/fsutil"
	"gopkg.in/ini.v1"
)

// The file layout matches the config.ini written by earlier releases:
//
//	[main]
//	version = blender-3.0.0-stable-windows64.zip
const (
	DefaultPath = "blendup.ini"
	Section     = "main"
	Key         = "version"
)

// Store reads and writes the state file. There is no locking; concurrent
// runs against the same file are unsupported.
type Store struct {
	path string
}

// NewStore creates a store backed by path, relative to the working directory
// unless absolute. An empty path selects DefaultPath.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the last installed filename. A missing file, a missing
// section or key, or an unparsable file all report ok=false.
func (s *Store) Load() (filename string, ok bool) {
	if _, err := os.Stat(s.path); err != nil {
		return "", false
	}
	f, err := ini.Load(s.path)
	if err != nil {
		logger.Debug("Ignoring unreadable state file", logger.Fields{"path": s.path, "error": err.Error()})
		return "", false
	}
	sec, err := f.GetSection(Section)
	if err != nil || !sec.HasKey(Key) {
		return "", false
	}
	value := sec.Key(Key).String()
	if value == "" {
		return "", false
	}
	return value, true
}

// Save records filename as the last installed build. Other sections and keys
// already present in the file are preserved.
func (s *Store) Save(filename string) error {
	f, err := ini.Load(s.path)
	if err != nil {
		f = ini.Empty()
	}
	f.Section(Section).Key(Key).SetValue(filename)

	dir := filepath.Dir(s.path)
	if err := fsutil.EnsureDir(dir); err != nil {
		return errors.WrapKind(errors.ErrFilesystem, err, "could not create state directory")
	}

	tmp, err := os.CreateTemp(dir, ".blendup-*.ini")
	if err != nil {
		return errors.WrapKind(errors.ErrFilesystem, err, "could not create temp state file")
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := f.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		return errors.WrapKind(errors.ErrFilesystem, err, "could not write state file")
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapKind(errors.ErrFilesystem, err, "could not close state file")
	}
	if err := os.Chmod(tmpPath, fsutil.FileModeDefault); err != nil {
		return errors.WrapKind(errors.ErrFilesystem, err, "could not set state file permissions")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return errors.WrapKind(errors.ErrFilesystem, err, fmt.Sprintf("could not replace %s", s.path))
	}
	return nil
}
