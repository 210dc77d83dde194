// pkg/injection/runner.go
package injection

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/itchio/capsule-release/pkg/compile"
	"github.com/itchio/capsule-release/pkg/core"
	"github.com/itchio/capsule-release/pkg/env"
	"github.com/itchio/capsule-release/pkg/platform"
	"github.com/itchio/capsule-release/pkg/shell"
)

// Builder compiles one crate, see compile.Compiler.Build
type Builder interface {
	Build(ctx context.Context, e *env.Environment, manifest, triple string, profile compile.Profile) error
}

// Runner builds each test program and runs it under the compiled runner
type Runner struct {
	builder Builder
	exec    shell.Executor
	logger  *log.Logger
}

// NewRunner creates a Runner
func NewRunner(builder Builder, exec shell.Executor, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Runner{builder: builder, exec: exec, logger: logger}
}

// Evaluate trims output and compares it with the sentinel
func Evaluate(test platform.TestSpec, output string) Result {
	actual := strings.TrimSpace(output)
	return Result{
		Test:     test,
		Expected: Sentinel,
		Actual:   actual,
		Passed:   actual == Sentinel,
	}
}

// TestBinary returns where the debug build of a test program lands
func TestBinary(workspace string, spec platform.Spec, test platform.TestSpec) string {
	return compile.ArtifactPath(workspace, test.Triple, compile.Debug, test.Name+spec.OS.ExeSuffix())
}

// Run executes spec.Tests in order and stops at the first failure.
// The results of every test that ran are returned, including the failing one.
func (r *Runner) Run(ctx context.Context, e *env.Environment, spec platform.Spec, arts *compile.Artifacts) ([]Result, error) {
	results := make([]Result, 0, len(spec.Tests))

	for _, test := range spec.Tests {
		res, err := r.runOne(ctx, e, spec, arts, test)
		if res != nil {
			results = append(results, *res)
		}
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (r *Runner) runOne(ctx context.Context, e *env.Environment, spec platform.Spec, arts *compile.Artifacts, test platform.TestSpec) (*Result, error) {
	manifest := filepath.Join(e.Workspace, "test", test.Name, "Cargo.toml")
	if err := r.builder.Build(ctx, e, manifest, test.Triple, compile.Debug); err != nil {
		return nil, core.NewError(core.ErrBuild, "build test "+test.Name, spec.Key(), err)
	}

	testEnv := e.With(map[string]string{
		TestModeVar:  "1",
		BacktraceVar: "1",
	})
	// cmd.Dir is the runner's directory, so the program path must not be relative
	runner, err := filepath.Abs(arts.Runner)
	if err != nil {
		return nil, core.NewError(core.ErrInjectionTest, "injection test", spec.Key(), err)
	}
	cmd := testEnv.Command(runner, TestBinary(e.Workspace, spec, test))
	cmd.Dir = filepath.Dir(runner)

	r.logger.Printf("Running injection test %s", test.Name)
	out, execErr := r.exec.Execute(ctx, cmd)

	var combined string
	if out != nil {
		combined = out.Combined
	}
	res := Evaluate(test, combined)

	// A non-zero exit with the right output still passes; only the text decides
	var exitErr *shell.ExitError
	if execErr != nil && !errors.As(execErr, &exitErr) {
		res.Passed = false
		return &res, core.NewError(core.ErrInjectionTest, "injection test", spec.Key(), &Failure{
			Test:     test.Name,
			Expected: res.Expected,
			Actual:   res.Actual,
			Err:      execErr,
		})
	}

	if !res.Passed {
		return &res, core.NewError(core.ErrInjectionTest, "injection test", spec.Key(), &Failure{
			Test:     test.Name,
			Expected: res.Expected,
			Actual:   res.Actual,
		})
	}

	r.logger.Printf("✓ %s: %s", test.Name, res.Actual)
	return &res, nil
}
