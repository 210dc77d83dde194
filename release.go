// release.go
package release

import (
	"context"
	"io"
	"os"

	"github.com/go-git/go-billy/v5/osfs"

	"github.com/itchio/capsule-release/pkg/compile"
	"github.com/itchio/capsule-release/pkg/core"
	"github.com/itchio/capsule-release/pkg/injection"
	"github.com/itchio/capsule-release/pkg/pipeline"
	"github.com/itchio/capsule-release/pkg/platform"
	"github.com/itchio/capsule-release/pkg/shell"
	"github.com/itchio/capsule-release/pkg/stage"
	"github.com/itchio/capsule-release/pkg/toolchain"
)

// Re-export types for convenience
type (
	Config     = core.Config
	Spec       = platform.Spec
	TestSpec   = platform.TestSpec
	Report     = pipeline.Report
	SpecResult = pipeline.SpecResult
	Reporter   = pipeline.Reporter
	Step       = pipeline.Step
	TestResult = injection.Result
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return core.DefaultConfig()
}

// LoadConfig loads a YAML configuration, see core.LoadConfig
func LoadConfig(path string) (*Config, error) {
	return core.LoadConfig(path)
}

// Builder runs release builds with the real toolchain, compiler and filesystem
type Builder struct {
	config *Config
	driver *pipeline.Driver
}

type options struct {
	reporter Reporter
	stdout   io.Writer
	stderr   io.Writer
	version  string
}

// Option configures a Builder
type Option func(*options)

// WithReporter receives progress events
func WithReporter(r Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithOutput mirrors the output of every command to the given writers
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

// WithVersion sets the version recorded in manifests
func WithVersion(v string) Option {
	return func(o *options) {
		o.version = v
	}
}

// New validates cfg and wires the pipeline
func New(cfg *Config, opts ...Option) (*Builder, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.ResolvePaths(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := cfg.GetLogger()

	execOpts := []shell.Option{shell.WithLogger(logger)}
	if o.stdout != nil || o.stderr != nil {
		execOpts = append(execOpts, shell.WithConsole(o.stdout, o.stderr))
	}
	exec := shell.New(execOpts...)

	installer, err := toolchain.New(cfg, exec)
	if err != nil {
		return nil, err
	}

	compiler := compile.New(exec, logger)
	artifacts := osfs.New(cfg.ArtifactsRoot())

	stages := pipeline.Stages{
		Installer: installer,
		Compiler:  compiler,
		Tester:    injection.NewRunner(compiler, exec, logger),
		Stager:    stage.New(artifacts, exec, stage.WithSigner(cfg.Signer), stage.WithLogger(logger)),
		Artifacts: artifacts,
	}

	driverOpts := []pipeline.Option{
		pipeline.WithBaseEnv(os.Environ()),
		pipeline.WithVersion(o.version),
	}
	if o.reporter != nil {
		driverOpts = append(driverOpts, pipeline.WithReporter(o.reporter))
	}

	return &Builder{
		config: cfg,
		driver: pipeline.New(cfg, stages, driverOpts...),
	}, nil
}

// Run builds, tests and stages every spec selected by args,
// e.g. ["windows"] or ["linux", "386"]
func (b *Builder) Run(ctx context.Context, args []string) (*Report, error) {
	return b.driver.Run(ctx, args)
}

// Matrix resolves args to specs without running anything
func Matrix(cfg *Config, args []string) ([]Spec, error) {
	return pipeline.Resolve(cfg, args)
}
