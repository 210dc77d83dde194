// internal/version/version.go
package version

import (
	"fmt"
	"runtime"
	"strings"
)

// String used when a variable was not set at link time
const undefined = "(undefined)"

// Set with -ldflags "-X github.com/itchio/capsule-release/internal/version.version=..."
var (
	version   = "" // Release version (e.g., "1.4.0")
	gitCommit = "" // Commit the binary was built from
)

// Version returns the release version without a "v" prefix
func Version() string {
	v := strings.TrimSpace(version)
	if v == "" {
		return undefined
	}
	return strings.TrimPrefix(strings.ToLower(v), "v")
}

// GitCommit returns the commit hash the binary was built from
func GitCommit() string {
	c := strings.TrimSpace(gitCommit)
	if c == "" {
		return undefined
	}
	return c
}

// IsLocal reports whether the binary was built without release variables
func IsLocal() bool {
	return strings.TrimSpace(version) == "" || strings.TrimSpace(gitCommit) == ""
}

// String returns "<version> <commit> [<os>/<arch>]", or "(local)" for
// development builds
func String() string {
	if IsLocal() {
		return "(local)"
	}
	return fmt.Sprintf("%s %s [%s/%s]", Version(), GitCommit(), runtime.GOOS, runtime.GOARCH)
}
