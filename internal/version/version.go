// Package version carries build metadata injected with -ldflags -X.
package version

import "fmt"

var (
	// Version is the release tag of the ingester.
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build metadata for -version output and run reports.
func String() string {
	return fmt.Sprintf("tripingest %s (%s, built %s)", Version, GitSHA, BuildTime)
}
