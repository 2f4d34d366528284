package platform

import (
	"fmt"
	"runtime"
	"strings"
)

// Target describes how builds for one operating system are named on the index:
// the OS tag embedded in the filename and the archive extension.
type Target struct {
	OS        OS     `yaml:"os" json:"os"`
	Tag       string `yaml:"tag" json:"tag"`
	Extension string `yaml:"extension" json:"extension"`
}

// String returns a string representation of the target.
func (t Target) String() string {
	return fmt.Sprintf("%s (%s, .%s)", t.OS, t.Tag, t.Extension)
}

// Overrides replaces the default tag or extension of individual operating systems.
type Overrides map[OS]Target

// ParseOS normalizes a user supplied OS name. Common aliases such as "win",
// "osx" and GOOS "darwin" are accepted.
func ParseOS(name string) (OS, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "windows", "win":
		return OSWindows, nil
	case "linux":
		return OSLinux, nil
	case "macos", "osx", "darwin", "mac":
		return OSMacOS, nil
	default:
		return "", fmt.Errorf("%q is not one of %s", name, strings.Join(ValidOS(), ", "))
	}
}

// Detect returns the OS of the running process.
func Detect() (OS, error) {
	return FromGOOS(runtime.GOOS)
}

// FromGOOS maps a runtime.GOOS value onto a supported OS.
func FromGOOS(goos string) (OS, error) {
	switch goos {
	case "windows":
		return OSWindows, nil
	case "linux":
		return OSLinux, nil
	case "darwin":
		return OSMacOS, nil
	default:
		return "", fmt.Errorf("builds are not published for %s", goos)
	}
}

// DefaultTarget returns the index naming used for os when nothing is overridden.
func DefaultTarget(os OS) Target {
	switch os {
	case OSWindows:
		return Target{OS: os, Tag: TagWindows, Extension: ExtZip}
	case OSLinux:
		return Target{OS: os, Tag: TagLinux, Extension: ExtTarXz}
	case OSMacOS:
		return Target{OS: os, Tag: TagMacOS, Extension: ExtZip}
	default:
		return Target{OS: os}
	}
}

// TargetFor returns the naming for os with any non-empty override fields applied.
func TargetFor(os OS, overrides Overrides) Target {
	t := DefaultTarget(os)
	if o, ok := overrides[os]; ok {
		if o.Tag != "" {
			t.Tag = o.Tag
		}
		if o.Extension != "" {
			t.Extension = strings.TrimPrefix(o.Extension, ".")
		}
	}
	return t
}
