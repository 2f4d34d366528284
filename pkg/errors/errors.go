// Package errors defines the error taxonomy of the update pipeline and the
// mapping from errors to process exit codes.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Pipeline error categories. Every error returned by the pipeline wraps exactly
// one of these so callers can classify it with errors.Is.
var (
	// ErrInvalidConfiguration covers bad or missing destination paths, conflicting
	// flags and unrecognized operating systems. Detected before any network activity.
	ErrInvalidConfiguration = fmt.Errorf("invalid configuration")

	// ErrNetwork is returned when the index page or the artifact cannot be fetched.
	ErrNetwork = fmt.Errorf("network error")

	// ErrNotFound is returned when no build on the index matches the request.
	ErrNotFound = fmt.Errorf("no matching build found")

	// ErrArchive is returned for corrupt or unreadable archives.
	ErrArchive = fmt.Errorf("archive error")

	// ErrFilesystem is returned for extract, copy and cleanup I/O failures.
	ErrFilesystem = fmt.Errorf("filesystem error")

	// ErrHook is returned when the post-install hook fails.
	ErrHook = fmt.Errorf("post-install hook failed")
)

// Specialised errors, each wrapping one of the categories above.
var (
	ErrDownloadFailed    = fmt.Errorf("%w: download failed", ErrNetwork)
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported archive format", ErrArchive)
	ErrMalformedArchive  = fmt.Errorf("%w: archive must contain exactly one top-level directory", ErrArchive)
	ErrConflictingPolicy = fmt.Errorf("%w: --yes and --no cannot be used together", ErrInvalidConfiguration)
	ErrInvalidOS         = fmt.Errorf("%w: unrecognized operating system", ErrInvalidConfiguration)
	ErrInvalidPath       = fmt.Errorf("%w: invalid path", ErrInvalidConfiguration)
	ErrConfigParse       = fmt.Errorf("%w: failed to parse config", ErrInvalidConfiguration)
	ErrConfigFileExists  = fmt.Errorf("configuration file already exists")
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
)

// Process exit codes.
const (
	ExitOK            = 0
	ExitGeneric       = 1
	ExitInvalidConfig = 2
	ExitNetwork       = 3
	ExitNotFound      = 4
	ExitArchive       = 5
	ExitFilesystem    = 6
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case stderrors.Is(err, ErrInvalidConfiguration):
		return ExitInvalidConfig
	case stderrors.Is(err, ErrNetwork):
		return ExitNetwork
	case stderrors.Is(err, ErrNotFound):
		return ExitNotFound
	case stderrors.Is(err, ErrArchive):
		return ExitArchive
	case stderrors.Is(err, ErrFilesystem):
		return ExitFilesystem
	default:
		return ExitGeneric
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// WrapKind attaches a category to an underlying error so both remain matchable
// with errors.Is.
func WrapKind(kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", msg, kind, err)
}
