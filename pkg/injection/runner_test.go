package injection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itchio/capsule-release/pkg/compile"
	"github.com/itchio/capsule-release/pkg/core"
	"github.com/itchio/capsule-release/pkg/env"
	"github.com/itchio/capsule-release/pkg/platform"
	"github.com/itchio/capsule-release/pkg/shell"
	"github.com/itchio/capsule-release/pkg/shell/shelltest"
)

type build struct {
	manifest string
	triple   string
	profile  compile.Profile
}

type fakeBuilder struct {
	builds []build
	err    error
}

func (b *fakeBuilder) Build(ctx context.Context, e *env.Environment, manifest, triple string, profile compile.Profile) error {
	b.builds = append(b.builds, build{manifest: manifest, triple: triple, profile: profile})
	return b.err
}

func setup(t *testing.T, os platform.OS, arch platform.Arch) (platform.Spec, *env.Environment, *compile.Artifacts) {
	spec, err := platform.Resolve(os, arch)
	require.NoError(t, err)

	e := env.New(env.Options{Workspace: "/ws"})
	arts := &compile.Artifacts{
		Triple:  spec.Triple,
		Library: compile.ArtifactPath("/ws", spec.Triple, compile.Release, spec.Library),
		Runner:  compile.ArtifactPath("/ws", spec.Triple, compile.Release, spec.Runner),
	}
	return spec, e, arts
}

func TestEvaluate(t *testing.T) {
	test := platform.TestSpec{Name: "linux-opengl-dlopen"}

	tests := []struct {
		name   string
		output string
		passed bool
	}{
		{name: "exact", output: "caught dead beef", passed: true},
		{name: "trailing space", output: "caught dead beef ", passed: true},
		{name: "surrounding newlines", output: "\n\tcaught dead beef\r\n", passed: true},
		{name: "case differs", output: "caught dead beeF", passed: false},
		{name: "punctuation", output: "caught dead beef!", passed: false},
		{name: "extra line", output: "hello\ncaught dead beef", passed: false},
		{name: "empty", output: "", passed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate(test, tt.output)
			assert.Equal(t, tt.passed, res.Passed)
			assert.Equal(t, Sentinel, res.Expected)
		})
	}
}

func TestRunPassesWithTrailingSpace(t *testing.T) {
	spec, e, arts := setup(t, platform.Linux, platform.X86)

	builder := &fakeBuilder{}
	exec := shelltest.New().Handle("capsulerun", shelltest.Output("caught dead beef "))

	results, err := NewRunner(builder, exec, nil).Run(context.Background(), e, spec, arts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
	assert.Equal(t, "caught dead beef", results[0].Actual)

	require.Len(t, builder.builds, 1)
	assert.Equal(t, build{
		manifest: filepath.Join("/ws", "test", "linux-opengl-dlopen", "Cargo.toml"),
		triple:   "i686-unknown-linux-gnu",
		profile:  compile.Debug,
	}, builder.builds[0])

	require.Len(t, exec.Commands, 1)
	cmd := exec.Commands[0]
	assert.Equal(t, arts.Runner, cmd.Program)
	assert.Equal(t, []string{filepath.Join("/ws", "target", "i686-unknown-linux-gnu", "debug", "linux-opengl-dlopen")}, cmd.Args)
	assert.Equal(t, filepath.Dir(arts.Runner), cmd.Dir)

	v, ok := shelltest.Env(cmd, TestModeVar)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	v, ok = shelltest.Env(cmd, BacktraceVar)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestRunDoesNotLeakTestVarsIntoEnvironment(t *testing.T) {
	spec, e, arts := setup(t, platform.Darwin, platform.X86_64)

	exec := shelltest.New().Handle("capsulerun", shelltest.Output("caught dead beef"))
	_, err := NewRunner(&fakeBuilder{}, exec, nil).Run(context.Background(), e, spec, arts)
	require.NoError(t, err)

	_, ok := shelltest.Env(e.Command("cargo"), TestModeVar)
	assert.False(t, ok)
}

func TestRunFailsOnMismatch(t *testing.T) {
	spec, e, arts := setup(t, platform.Windows, platform.X86)

	exec := shelltest.New().Handle("capsulerun", shelltest.Output("caught dead beeF"))

	results, err := NewRunner(&fakeBuilder{}, exec, nil).Run(context.Background(), e, spec, arts)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInjectionTest)

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "windows-opengl-loadlibrary", failure.Test)
	assert.Equal(t, "caught dead beef", failure.Expected)
	assert.Equal(t, "caught dead beeF", failure.Actual)

	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)

	// windows test binaries carry .exe
	assert.Equal(t, ".exe", filepath.Ext(exec.Commands[0].Args[0]))
}

func TestRunNonZeroExitJudgedByOutput(t *testing.T) {
	spec, e, arts := setup(t, platform.Linux, platform.X86_64)

	exec := shelltest.New().Handle("capsulerun", shelltest.Fail(1, "caught dead beef\n"))

	results, err := NewRunner(&fakeBuilder{}, exec, nil).Run(context.Background(), e, spec, arts)
	require.NoError(t, err)
	assert.True(t, results[0].Passed)
}

func TestRunSpawnFailureIsInjectionFailure(t *testing.T) {
	spec, e, arts := setup(t, platform.Linux, platform.X86_64)

	spawnErr := errors.New("fork/exec: no such file or directory")
	exec := shelltest.New().Handle("capsulerun", func(shell.Command) (*shell.Result, error) {
		return &shell.Result{ExitCode: -1}, spawnErr
	})

	_, err := NewRunner(&fakeBuilder{}, exec, nil).Run(context.Background(), e, spec, arts)
	assert.ErrorIs(t, err, core.ErrInjectionTest)
	assert.ErrorIs(t, err, spawnErr)
}

func TestRunBuildFailureIsBuildError(t *testing.T) {
	spec, e, arts := setup(t, platform.Linux, platform.X86_64)

	exec := shelltest.New()
	_, err := NewRunner(&fakeBuilder{err: errors.New("linker not found")}, exec, nil).Run(context.Background(), e, spec, arts)
	assert.ErrorIs(t, err, core.ErrBuild)
	assert.Empty(t, exec.Commands)
}

func TestRunStopsAtFirstFailingTest(t *testing.T) {
	spec, e, arts := setup(t, platform.Linux, platform.X86_64)
	spec.Tests = []platform.TestSpec{
		{Name: "first", Triple: spec.Triple},
		{Name: "second", Triple: spec.Triple},
	}

	exec := shelltest.New().Handle("capsulerun", shelltest.Output("nothing caught"))
	builder := &fakeBuilder{}

	results, err := NewRunner(builder, exec, nil).Run(context.Background(), e, spec, arts)
	assert.Error(t, err)
	assert.Len(t, results, 1)
	assert.Len(t, builder.builds, 1)
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(prev) })
}

func TestRunWithRelativeWorkspace(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("runner is a shell script")
	}
	chdir(t, t.TempDir())

	spec, err := platform.Resolve(platform.Linux, platform.X86_64)
	require.NoError(t, err)

	e := env.New(env.Options{Workspace: "capsule"})
	require.True(t, filepath.IsAbs(e.Workspace))

	arts := &compile.Artifacts{
		Triple:  spec.Triple,
		Library: compile.ArtifactPath(e.Workspace, spec.Triple, compile.Release, spec.Library),
		Runner:  compile.ArtifactPath(e.Workspace, spec.Triple, compile.Release, spec.Runner),
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(arts.Runner), 0755))
	require.NoError(t, os.WriteFile(arts.Runner, []byte("#!/bin/sh\necho caught dead beef\n"), 0755))

	results, err := NewRunner(&fakeBuilder{}, shell.New(), nil).Run(context.Background(), e, spec, arts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
}

func TestRunResolvesRelativeRunnerPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("runner is a shell script")
	}
	dir := t.TempDir()
	chdir(t, dir)

	spec, err := platform.Resolve(platform.Linux, platform.X86_64)
	require.NoError(t, err)

	runner := filepath.Join("bin", spec.Runner)
	require.NoError(t, os.MkdirAll("bin", 0755))
	require.NoError(t, os.WriteFile(runner, []byte("#!/bin/sh\necho caught dead beef\n"), 0755))

	e := env.New(env.Options{Workspace: dir})
	arts := &compile.Artifacts{Triple: spec.Triple, Runner: runner}

	results, err := NewRunner(&fakeBuilder{}, shell.New(), nil).Run(context.Background(), e, spec, arts)
	require.NoError(t, err)
	assert.True(t, results[0].Passed)
}
