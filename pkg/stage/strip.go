// pkg/stage/strip.go
package stage

import (
	"fmt"

	"github.com/itchio/capsule-release/pkg/platform"
)

// StripArgs returns the strip invocation that removes debug symbols
// for the given target OS
func StripArgs(os platform.OS) ([]string, error) {
	switch os {
	case platform.Linux:
		return []string{"strip", "--strip-debug"}, nil
	case platform.Darwin:
		return []string{"strip", "-S"}, nil
	}
	return nil, fmt.Errorf("no strip tool for %s", os)
}
