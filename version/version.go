// Package version holds build information injected at link time via
// -ldflags.
package version

import "runtime"

var (
	// GitRelease is the release tag, or "dev" for local builds.
	GitRelease = "dev"

	// GitCommit is the commit hash the binary was built from.
	GitCommit = "unknown"

	// GitCommitDate is the commit timestamp.
	GitCommitDate = "unknown"
)

// GoInfo is the toolchain the binary was built with.
var GoInfo = runtime.Version()
