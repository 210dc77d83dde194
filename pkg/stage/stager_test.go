package stage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itchio/capsule-release/pkg/compile"
	"github.com/itchio/capsule-release/pkg/core"
	"github.com/itchio/capsule-release/pkg/env"
	"github.com/itchio/capsule-release/pkg/platform"
	"github.com/itchio/capsule-release/pkg/shell"
	"github.com/itchio/capsule-release/pkg/shell/shelltest"
)

var (
	libraryBytes = bytes.Repeat([]byte("LIB+debug-info;"), 64)
	runnerBytes  = bytes.Repeat([]byte("RUN+debug-info;"), 64)
)

// buildOutput writes fake release artifacts for spec into a temp workspace
func buildOutput(t *testing.T, spec platform.Spec) (*env.Environment, *compile.Artifacts) {
	t.Helper()

	e := env.New(env.Options{Workspace: t.TempDir()})
	arts := &compile.Artifacts{
		Triple:  spec.Triple,
		Library: compile.ArtifactPath(e.Workspace, spec.Triple, compile.Release, spec.Library),
		Runner:  compile.ArtifactPath(e.Workspace, spec.Triple, compile.Release, spec.Runner),
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(arts.Library), 0755))
	require.NoError(t, os.WriteFile(arts.Library, libraryBytes, 0644))
	require.NoError(t, os.WriteFile(arts.Runner, runnerBytes, 0755))
	return e, arts
}

// fakeStrip halves the file it is given
func fakeStrip(t *testing.T) shelltest.Handler {
	return func(cmd shell.Command) (*shell.Result, error) {
		file := cmd.Args[len(cmd.Args)-1]
		data, err := os.ReadFile(file)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(file, data[:len(data)/2], 0644))
		return nil, nil
	}
}

func resolve(t *testing.T, os platform.OS, arch platform.Arch) platform.Spec {
	spec, err := platform.Resolve(os, arch)
	require.NoError(t, err)
	return spec
}

func listDir(t *testing.T, fs interface {
	ReadDir(string) ([]os.FileInfo, error)
}, dir string) []string {
	infos, err := fs.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, i := range infos {
		names = append(names, i.Name())
	}
	sort.Strings(names)
	return names
}

func TestStageStripsBeforeCopy(t *testing.T) {
	spec := resolve(t, platform.Linux, platform.X86_64)
	e, arts := buildOutput(t, spec)

	fs := memfs.New()
	exec := shelltest.New().Handle("strip", fakeStrip(t))

	dir, err := New(fs, exec).Stage(context.Background(), e, spec, arts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fs.Root(), "linux-amd64"), dir)

	staged, err := util.ReadFile(fs, "linux-amd64/libcapsule.so")
	require.NoError(t, err)
	assert.Less(t, len(staged), len(libraryBytes))
	assert.NotEqual(t, libraryBytes, staged)

	// the build output itself is stripped in place
	built, err := os.ReadFile(arts.Library)
	require.NoError(t, err)
	assert.Equal(t, built, staged)

	assert.Equal(t, []string{"libcapsule.so", "capsulerun"}, []string{
		filepath.Base(exec.Commands[0].Args[1]),
		filepath.Base(exec.Commands[1].Args[1]),
	})
	assert.Equal(t, "--strip-debug", exec.Commands[0].Args[0])
}

func TestStageDarwinStripFlag(t *testing.T) {
	spec := resolve(t, platform.Darwin, platform.X86_64)
	e, arts := buildOutput(t, spec)

	exec := shelltest.New().Handle("strip", fakeStrip(t))
	_, err := New(memfs.New(), exec).Stage(context.Background(), e, spec, arts)
	require.NoError(t, err)
	assert.Equal(t, "-S", exec.Commands[0].Args[0])
}

func TestStageWithoutStripIsByteIdentical(t *testing.T) {
	spec := resolve(t, platform.Windows, platform.X86_64)
	require.False(t, spec.Strip)
	e, arts := buildOutput(t, spec)

	fs := memfs.New()
	exec := shelltest.New()

	_, err := New(fs, exec).Stage(context.Background(), e, spec, arts)
	require.NoError(t, err)
	assert.Empty(t, exec.Commands)

	lib, err := util.ReadFile(fs, "windows-amd64/capsule.dll")
	require.NoError(t, err)
	assert.Equal(t, libraryBytes, lib)

	run, err := util.ReadFile(fs, "windows-amd64/capsulerun.exe")
	require.NoError(t, err)
	assert.Equal(t, runnerBytes, run)
}

func TestStageIsIdempotent(t *testing.T) {
	spec := resolve(t, platform.Windows, platform.X86)
	e, arts := buildOutput(t, spec)

	fs := memfs.New()
	stager := New(fs, shelltest.New())

	_, err := stager.Stage(context.Background(), e, spec, arts)
	require.NoError(t, err)
	first, err := util.ReadFile(fs, "windows-386/capsule.dll")
	require.NoError(t, err)

	_, err = stager.Stage(context.Background(), e, spec, arts)
	require.NoError(t, err)
	second, err := util.ReadFile(fs, "windows-386/capsule.dll")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"capsule.dll", "capsulerun.exe"}, listDir(t, fs, "windows-386"))
}

func TestStageOverwritesLongerPriorContents(t *testing.T) {
	spec := resolve(t, platform.Windows, platform.X86)
	e, arts := buildOutput(t, spec)

	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "windows-386/capsule.dll", bytes.Repeat([]byte("x"), 4096), 0644))

	_, err := New(fs, shelltest.New()).Stage(context.Background(), e, spec, arts)
	require.NoError(t, err)

	lib, err := util.ReadFile(fs, "windows-386/capsule.dll")
	require.NoError(t, err)
	assert.Equal(t, libraryBytes, lib)
}

func TestStageRemovesStaleFiles(t *testing.T) {
	spec := resolve(t, platform.Darwin, platform.X86_64)
	e, arts := buildOutput(t, spec)

	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "darwin-amd64/libcapsule.so", []byte("old"), 0644))
	require.NoError(t, util.WriteFile(fs, "darwin-amd64/debug/capsulerun.dSYM", []byte("old"), 0644))
	require.NoError(t, util.WriteFile(fs, "darwin-amd64.manifest.yaml", []byte("key: darwin-amd64\n"), 0644))

	exec := shelltest.New().Handle("strip", fakeStrip(t))
	_, err := New(fs, exec).Stage(context.Background(), e, spec, arts)
	require.NoError(t, err)

	assert.Equal(t, []string{"capsulerun", "libcapsule.dylib"}, listDir(t, fs, "darwin-amd64"))
	_, err = fs.Stat("darwin-amd64.manifest.yaml")
	assert.NoError(t, err)
}

func TestStageLeavesOtherKeysAlone(t *testing.T) {
	spec := resolve(t, platform.Linux, platform.X86_64)
	e, arts := buildOutput(t, spec)

	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "linux-386/libcapsule.so", []byte("other"), 0644))

	exec := shelltest.New().Handle("strip", fakeStrip(t))
	_, err := New(fs, exec).Stage(context.Background(), e, spec, arts)
	require.NoError(t, err)

	other, err := util.ReadFile(fs, "linux-386/libcapsule.so")
	require.NoError(t, err)
	assert.Equal(t, []byte("other"), other)
	assert.Equal(t, []string{"libcapsule.so"}, listDir(t, fs, "linux-386"))
}

func TestStageKeepsExecutableBit(t *testing.T) {
	spec := resolve(t, platform.Windows, platform.X86_64)
	e, arts := buildOutput(t, spec)

	fs := memfs.New()
	_, err := New(fs, shelltest.New()).Stage(context.Background(), e, spec, arts)
	require.NoError(t, err)

	info, err := fs.Stat("windows-amd64/capsulerun.exe")
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0100)

	info, err = fs.Stat("windows-amd64/capsule.dll")
	require.NoError(t, err)
	assert.Zero(t, info.Mode()&0100)
}

func TestStageStripFailureIsIOError(t *testing.T) {
	spec := resolve(t, platform.Linux, platform.X86)
	e, arts := buildOutput(t, spec)

	fs := memfs.New()
	exec := shelltest.New().Handle("strip", shelltest.Fail(1, "strip: file format not recognized"))

	_, err := New(fs, exec).Stage(context.Background(), e, spec, arts)
	assert.ErrorIs(t, err, core.ErrIO)

	_, statErr := fs.Stat("linux-386/libcapsule.so")
	assert.True(t, os.IsNotExist(statErr))
}

func TestStageMissingArtifactIsIOError(t *testing.T) {
	spec := resolve(t, platform.Windows, platform.X86)
	e, arts := buildOutput(t, spec)
	require.NoError(t, os.Remove(arts.Runner))

	_, err := New(memfs.New(), shelltest.New()).Stage(context.Background(), e, spec, arts)
	assert.ErrorIs(t, err, core.ErrIO)
}

func TestStageRunsSignerAfterStrip(t *testing.T) {
	spec := resolve(t, platform.Darwin, platform.X86_64)
	e, arts := buildOutput(t, spec)

	exec := shelltest.New().Handle("strip", fakeStrip(t))
	signer := &core.SignerConfig{
		Command: "codesign",
		Args:    []string{"--sign", "Developer ID", "--file={file}"},
		OS:      []string{"darwin"},
	}

	_, err := New(memfs.New(), exec, WithSigner(signer)).Stage(context.Background(), e, spec, arts)
	require.NoError(t, err)

	require.Len(t, exec.Commands, 4)
	assert.Equal(t, "strip", shelltest.Name(exec.Commands[0].Program))
	assert.Equal(t, "strip", shelltest.Name(exec.Commands[1].Program))
	assert.Equal(t, "codesign", shelltest.Name(exec.Commands[2].Program))
	assert.Equal(t, []string{"--sign", "Developer ID", "--file=" + arts.Library}, exec.Commands[2].Args)
	assert.Equal(t, []string{"--sign", "Developer ID", "--file=" + arts.Runner}, exec.Commands[3].Args)
}

func TestStageSignerSkipsOtherOS(t *testing.T) {
	spec := resolve(t, platform.Windows, platform.X86)
	e, arts := buildOutput(t, spec)

	exec := shelltest.New()
	signer := &core.SignerConfig{Command: "signtool", Args: []string{"sign"}, OS: []string{"darwin"}}

	_, err := New(memfs.New(), exec, WithSigner(signer)).Stage(context.Background(), e, spec, arts)
	require.NoError(t, err)
	assert.Zero(t, exec.Count("signtool"))
}

func TestSignCommandAppendsFile(t *testing.T) {
	e := env.New(env.Options{Workspace: "/ws"})
	cmd := signCommand(e, &core.SignerConfig{Command: "signtool", Args: []string{"sign", "/a"}}, "/ws/capsule.dll")
	assert.Equal(t, []string{"sign", "/a", "/ws/capsule.dll"}, cmd.Args)
}

func TestStripArgs(t *testing.T) {
	_, err := StripArgs(platform.Windows)
	assert.Error(t, err)
}
