// Package version reports build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/itsmostafa/phunkie/internal/version.Version=..."
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// String returns the version line shown by --version
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s, %s)", Version, Commit, BuildDate, runtime.Version())
}
