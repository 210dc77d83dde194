// pkg/pipeline/driver.go
package pipeline

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/itchio/capsule-release/pkg/archive"
	"github.com/itchio/capsule-release/pkg/core"
	"github.com/itchio/capsule-release/pkg/env"
	"github.com/itchio/capsule-release/pkg/manifest"
	"github.com/itchio/capsule-release/pkg/platform"
)

// Stages are the collaborators run for every spec
type Stages struct {
	Installer Installer
	Compiler  Compiler
	Tester    Tester
	Stager    Stager

	// Artifacts is the filesystem rooted at the artifacts root, where
	// manifests and bundles are written
	Artifacts billy.Filesystem
}

// Driver runs the build-test-stage sequence over a platform matrix
type Driver struct {
	config   *core.Config
	stages   Stages
	reporter Reporter
	baseEnv  []string
	version  string
	logger   *log.Logger
}

// Option configures a Driver
type Option func(*Driver)

// WithReporter receives progress events
func WithReporter(r Reporter) Option {
	return func(d *Driver) {
		d.reporter = r
	}
}

// WithBaseEnv sets the variables every spec environment inherits,
// usually os.Environ()
func WithBaseEnv(environ []string) Option {
	return func(d *Driver) {
		d.baseEnv = environ
	}
}

// WithVersion sets the version recorded in manifests
func WithVersion(v string) Option {
	return func(d *Driver) {
		d.version = v
	}
}

// New creates a Driver
func New(cfg *core.Config, stages Stages, opts ...Option) *Driver {
	d := &Driver{
		config:   cfg,
		stages:   stages,
		reporter: nopReporter{},
		logger:   cfg.GetLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run resolves args and processes every spec in matrix order.
// Argument and matrix errors are returned before anything runs.
// A failed spec does not stop the next one unless FailFast is set; the
// returned error joins every spec failure.
func (d *Driver) Run(ctx context.Context, args []string) (*Report, error) {
	specs, err := Resolve(d.config, args)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	var errs []error
	stop := false

	for i, spec := range specs {
		if stop {
			report.Specs = append(report.Specs, &SpecResult{Spec: spec, Skipped: true})
			continue
		}

		d.reporter.SpecStarted(spec, i, len(specs))
		res := d.runSpec(ctx, spec)
		d.reporter.SpecFinished(res)
		report.Specs = append(report.Specs, res)

		if res.Err != nil {
			errs = append(errs, res.Err)
			if d.config.FailFast || ctx.Err() != nil {
				stop = true
			}
		}
	}

	return report, errors.Join(errs...)
}

// newEnv builds the private environment of one spec
func (d *Driver) newEnv() *env.Environment {
	return env.New(env.Options{
		Workspace:  d.config.Workspace,
		CargoHome:  d.config.Toolchain.CargoHome,
		RustupHome: d.config.Toolchain.RustupHome,
		Base:       d.baseEnv,
	})
}

func (d *Driver) runSpec(ctx context.Context, spec platform.Spec) *SpecResult {
	start := time.Now()
	res := &SpecResult{Spec: spec}
	res.Err = d.runSteps(ctx, spec, res)
	res.Duration = time.Since(start)
	return res
}

func (d *Driver) runSteps(ctx context.Context, spec platform.Spec, res *SpecResult) error {
	key := spec.Key()
	e := d.newEnv()

	d.step(spec, StepToolchain)
	if err := d.stages.Installer.Ensure(ctx, e, spec.Triple); err != nil {
		return classify(err, core.ErrToolchain, "install toolchain", key)
	}

	d.step(spec, StepCompile)
	arts, err := d.stages.Compiler.Compile(ctx, e, spec)
	if err != nil {
		return classify(err, core.ErrBuild, "compile", key)
	}

	if d.config.SkipTests || len(spec.Tests) == 0 {
		d.logger.Printf("Skipping injection tests for %s", key)
	} else {
		d.step(spec, StepTest)
		results, err := d.stages.Tester.Run(ctx, e, spec, arts)
		res.Tests = results
		for _, r := range results {
			d.reporter.TestFinished(spec, r)
		}
		if err != nil {
			return classify(err, core.ErrInjectionTest, "injection test", key)
		}
	}

	d.step(spec, StepStage)
	res.Dir, err = d.stages.Stager.Stage(ctx, e, spec, arts)
	if err != nil {
		return classify(err, core.ErrIO, "stage", key)
	}

	if d.stages.Artifacts == nil {
		return nil
	}

	d.step(spec, StepManifest)
	res.Manifest, err = manifest.Write(d.stages.Artifacts, spec, manifest.Options{
		Channel:   d.config.Channel,
		Version:   d.version,
		Workspace: d.config.Workspace,
	})
	if err != nil {
		return err
	}

	if d.config.Archive {
		d.step(spec, StepArchive)
		res.Archive, err = archive.Write(d.stages.Artifacts, key)
		if err != nil {
			return err
		}
	}

	return nil
}

func (d *Driver) step(spec platform.Spec, step Step) {
	d.logger.Printf("%s: %s", spec.Key(), step)
	d.reporter.StepStarted(spec, step)
}

// classify keeps errors that already carry a kind and files the rest
// under the kind of the step that failed
func classify(err error, kind error, op, key string) error {
	for _, k := range []error{core.ErrConfiguration, core.ErrToolchain, core.ErrBuild, core.ErrInjectionTest, core.ErrIO} {
		if errors.Is(err, k) {
			return err
		}
	}
	return core.NewError(kind, op, key, err)
}
