// pkg/injection/types.go
package injection

import (
	"fmt"

	"github.com/itchio/capsule-release/pkg/platform"
)

// Sentinel is what the capture library prints when its hook fires in test mode
const Sentinel = "caught dead beef"

// Variables set on the runner process
const (
	TestModeVar  = "CAPSULE_TEST"
	BacktraceVar = "RUST_BACKTRACE"
)

// Result is the verdict of one injection test
type Result struct {
	Test     platform.TestSpec
	Expected string
	Actual   string // Trimmed runner output
	Passed   bool
}

// Failure reports an injection test whose output did not match the sentinel,
// or whose runner could not be started
type Failure struct {
	Test     string
	Expected string
	Actual   string
	Err      error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("injection test %s: runner failed: %v (output %q)", f.Test, f.Err, f.Actual)
	}
	return fmt.Sprintf("injection test %s: expected %q, got %q", f.Test, f.Expected, f.Actual)
}

func (f *Failure) Unwrap() error {
	return f.Err
}
