// pkg/compile/compiler.go
package compile

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/itchio/capsule-release/pkg/core"
	"github.com/itchio/capsule-release/pkg/env"
	"github.com/itchio/capsule-release/pkg/platform"
	"github.com/itchio/capsule-release/pkg/shell"
)

// Compiler runs cargo for the library and runner crates
type Compiler struct {
	exec   shell.Executor
	logger *log.Logger
}

// New creates a Compiler
func New(exec shell.Executor, logger *log.Logger) *Compiler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Compiler{exec: exec, logger: logger}
}

// TargetDir is the cargo target directory shared by every crate
func TargetDir(workspace string) string {
	return filepath.Join(workspace, "target")
}

// ArtifactPath returns where cargo leaves name for a triple and profile
func ArtifactPath(workspace, triple string, profile Profile, name string) string {
	return filepath.Join(TargetDir(workspace), triple, string(profile), name)
}

// Compile builds both crates in release mode and returns the artifact paths.
// A failed cargo run or a missing output file is a build error.
func (c *Compiler) Compile(ctx context.Context, e *env.Environment, spec platform.Spec) (*Artifacts, error) {
	for _, crate := range []string{platform.LibraryCrate, platform.RunnerCrate} {
		manifest := filepath.Join(e.Workspace, crate, "Cargo.toml")
		if err := c.Build(ctx, e, manifest, spec.Triple, Release); err != nil {
			return nil, core.NewError(core.ErrBuild, "compile "+crate, spec.Key(), err)
		}
	}

	arts := &Artifacts{
		Triple:  spec.Triple,
		Library: ArtifactPath(e.Workspace, spec.Triple, Release, spec.Library),
		Runner:  ArtifactPath(e.Workspace, spec.Triple, Release, spec.Runner),
	}

	for _, p := range arts.Paths() {
		if _, err := os.Stat(p); err != nil {
			return nil, core.Errorf(core.ErrBuild, "compile", spec.Key(), "expected artifact %s: %v", p, err)
		}
	}

	c.logger.Printf("Built %s and %s for %s", spec.Library, spec.Runner, spec.Triple)
	return arts, nil
}

// Build runs cargo build for one crate manifest
func (c *Compiler) Build(ctx context.Context, e *env.Environment, manifest, triple string, profile Profile) error {
	args := []string{"build"}
	if profile == Release {
		args = append(args, "--release")
	}
	args = append(args,
		"--target", triple,
		"--manifest-path", manifest,
		"--target-dir", TargetDir(e.Workspace),
	)

	cmd := e.Cargo(args...)
	cmd.Dir = e.Workspace

	c.logger.Printf("Building %s (%s, %s)", manifest, triple, profile)
	if _, err := c.exec.Execute(ctx, cmd); err != nil {
		return fmt.Errorf("building %s: %w", filepath.Base(filepath.Dir(manifest)), err)
	}
	return nil
}
