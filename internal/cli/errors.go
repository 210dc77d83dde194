// internal/cli/errors.go
package cli

import (
	"fmt"
	"strings"

	"github.com/itchio/capsule-release/pkg/core"
)

// FormatError renders err for the terminal. In verbose mode every
// structured failure inside err is appended with its stack trace.
func FormatError(err error, verbose bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: %v\n", err)
	if !verbose {
		return b.String()
	}
	for _, e := range failures(err) {
		fmt.Fprintf(&b, "\n%+v\n", e)
	}
	return b.String()
}

// failures collects the outermost *core.Error of every branch of err
func failures(err error) []*core.Error {
	switch u := err.(type) {
	case *core.Error:
		return []*core.Error{u}
	case interface{ Unwrap() []error }:
		var out []*core.Error
		for _, inner := range u.Unwrap() {
			out = append(out, failures(inner)...)
		}
		return out
	case interface{ Unwrap() error }:
		return failures(u.Unwrap())
	}
	return nil
}
