// pkg/pipeline/types.go
package pipeline

import (
	"context"
	"time"

	"github.com/itchio/capsule-release/pkg/compile"
	"github.com/itchio/capsule-release/pkg/env"
	"github.com/itchio/capsule-release/pkg/injection"
	"github.com/itchio/capsule-release/pkg/platform"
)

// Step names one stage of a spec's run
type Step string

const (
	StepToolchain Step = "toolchain"
	StepCompile   Step = "compile"
	StepTest      Step = "test"
	StepStage     Step = "stage"
	StepManifest  Step = "manifest"
	StepArchive   Step = "archive"
)

// Installer guarantees a toolchain for a triple, see toolchain.Installer
type Installer interface {
	Ensure(ctx context.Context, e *env.Environment, triple string) error
}

// Compiler produces the release artifacts, see compile.Compiler
type Compiler interface {
	Compile(ctx context.Context, e *env.Environment, spec platform.Spec) (*compile.Artifacts, error)
}

// Tester runs the injection tests, see injection.Runner
type Tester interface {
	Run(ctx context.Context, e *env.Environment, spec platform.Spec, arts *compile.Artifacts) ([]injection.Result, error)
}

// Stager copies artifacts into the staging directory, see stage.Stager
type Stager interface {
	Stage(ctx context.Context, e *env.Environment, spec platform.Spec, arts *compile.Artifacts) (string, error)
}

// Reporter receives progress events. Calls happen on the driver's goroutine.
type Reporter interface {
	SpecStarted(spec platform.Spec, index, total int)
	StepStarted(spec platform.Spec, step Step)
	TestFinished(spec platform.Spec, result injection.Result)
	SpecFinished(result *SpecResult)
}

// SpecResult is the outcome of one spec
type SpecResult struct {
	Spec     platform.Spec
	Dir      string // Staged directory
	Manifest string // Manifest path
	Archive  string // Bundle path, empty unless archiving
	Tests    []injection.Result
	Skipped  bool // Not attempted because an earlier spec failed under fail-fast
	Err      error
	Duration time.Duration
}

// Key returns the spec's staging key
func (r *SpecResult) Key() string {
	return r.Spec.Key()
}

// Report is the outcome of a whole run
type Report struct {
	Specs []*SpecResult
}

// Failed returns the results of specs that ran and failed
func (r *Report) Failed() []*SpecResult {
	var failed []*SpecResult
	for _, s := range r.Specs {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

// OK reports whether every spec succeeded
func (r *Report) OK() bool {
	for _, s := range r.Specs {
		if s.Err != nil || s.Skipped {
			return false
		}
	}
	return true
}

// nopReporter drops every event
type nopReporter struct{}

func (nopReporter) SpecStarted(platform.Spec, int, int)          {}
func (nopReporter) StepStarted(platform.Spec, Step)              {}
func (nopReporter) TestFinished(platform.Spec, injection.Result) {}
func (nopReporter) SpecFinished(*SpecResult)                     {}
