// Package version carries the build identification stamped in at link
// time via -ldflags.
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String renders the full build identification on one line.
func String() string {
	return fmt.Sprintf("bz3 %s (%s, built %s)", Version, GitSHA, BuildTime)
}
