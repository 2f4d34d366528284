// Package platform provides the closed set of operating systems the index
// publishes builds for, and the naming each of them uses on the index page.
package platform

// OS identifies a supported target operating system.
type OS string

const (
	// OSWindows represents the Windows operating system.
	OSWindows OS = "windows"
	// OSLinux represents the Linux operating system.
	OSLinux OS = "linux"
	// OSMacOS represents macOS.
	OSMacOS OS = "macos"
)

// Default index naming per operating system.
const (
	TagWindows = "windows"
	TagLinux   = "linux"
	TagMacOS   = "darwin"

	ExtZip   = "zip"
	ExtTarXz = "tar.xz"
)

// ValidOS returns a list of valid OS values.
func ValidOS() []string {
	return []string{
		string(OSWindows),
		string(OSLinux),
		string(OSMacOS),
	}
}
