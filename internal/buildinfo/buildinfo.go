// Package buildinfo holds build-time variables injected via ldflags.
package buildinfo

import (
	"fmt"
	"runtime"
)

// Populated by -ldflags at build time; defaults used for local dev.
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

// Summary is the multi-line build description printed by `glucowatch version`.
func Summary() string {
	return fmt.Sprintf("glucowatch %s\n  commit: %s (%s)\n  built:  %s\n  go:     %s %s/%s",
		Version, GitCommit, GitBranch, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
