// Package fsutil holds the file system helpers shared by the installer, the
// staging cleaner and the config and state writers.
package fsutil

const (
	// FileModeDefault is used for state, config and extracted files that
	// carry no mode of their own.
	FileModeDefault = 0o644 // -rw-r--r--
	// DirModeDefault is used for every directory blendup creates.
	DirModeDefault = 0o755 // drwxr-xr-x
	// ExecBits are added to a binary that must be runnable by everyone.
	ExecBits = 0o111
)
