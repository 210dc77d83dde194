// internal/cli/progress.go
package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/gookit/color"

	release "github.com/itchio/capsule-release"
)

// progress prints pipeline events as colored status lines
type progress struct {
	out io.Writer
}

func newProgress(out io.Writer) *progress {
	return &progress{out: out}
}

func (p *progress) SpecStarted(spec release.Spec, index, total int) {
	fmt.Fprintln(p.out, color.Info.Sprintf("♦ [%d/%d] %s", index+1, total, spec))
}

func (p *progress) StepStarted(spec release.Spec, step release.Step) {
	fmt.Fprintf(p.out, "  · %s\n", step)
}

func (p *progress) TestFinished(spec release.Spec, res release.TestResult) {
	if res.Passed {
		fmt.Fprintln(p.out, color.Success.Sprintf("    ✓ %s: %s", res.Test.Name, res.Actual))
		return
	}
	fmt.Fprintln(p.out, color.Danger.Sprintf("    ✗ %s: expected %q, got %q", res.Test.Name, res.Expected, res.Actual))
}

func (p *progress) SpecFinished(res *release.SpecResult) {
	elapsed := res.Duration.Round(time.Millisecond)
	if res.Err != nil {
		fmt.Fprintln(p.out, color.Danger.Sprintf("✗ %s failed after %s: %v", res.Key(), elapsed, res.Err))
		return
	}
	fmt.Fprintln(p.out, color.Success.Sprintf("✓ %s staged in %s (%s)", res.Key(), res.Dir, elapsed))
}

// printSummary lists every spec's outcome after a run
func printSummary(out io.Writer, report *release.Report) {
	fmt.Fprintln(out)
	for _, res := range report.Specs {
		switch {
		case res.Skipped:
			fmt.Fprintln(out, color.Warn.Sprintf("- %-14s skipped", res.Key()))
		case res.Err != nil:
			fmt.Fprintln(out, color.Danger.Sprintf("✗ %-14s %v", res.Key(), res.Err))
		default:
			line := fmt.Sprintf("✓ %-14s %s", res.Key(), res.Dir)
			if res.Archive != "" {
				line += " + " + res.Archive
			}
			fmt.Fprintln(out, color.Success.Sprint(line))
		}
	}
}
