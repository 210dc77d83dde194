// pkg/env/environment.go
package env

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/itchio/capsule-release/pkg/shell"
)

// Variables owned by an Environment; inherited values are dropped
var managedVars = []string{"CARGO_HOME", "RUSTUP_HOME", "RUSTUP_TOOLCHAIN", "CARGO_BUILD_TARGET"}

// New creates an Environment with the toolchain homes resolved.
// Relative paths are made absolute against the current directory, since
// commands run with their own working directory.
func New(opts Options) *Environment {
	workspace := absPath(opts.Workspace)
	cargoHome := absPath(opts.CargoHome)
	if cargoHome == "" {
		cargoHome = filepath.Join(workspace, ".cargo")
	}
	rustupHome := absPath(opts.RustupHome)
	if rustupHome == "" {
		rustupHome = filepath.Join(workspace, ".multirust")
	}

	base := make([]string, len(opts.Base))
	copy(base, opts.Base)

	e := &Environment{
		Workspace:  workspace,
		CargoHome:  cargoHome,
		RustupHome: rustupHome,
		vars:       make(map[string]string),
		base:       base,
	}
	e.PrependPath(e.CargoBin())
	return e
}

func absPath(p string) string {
	if p == "" {
		return ""
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

// CargoBin returns <CARGO_HOME>/bin
func (e *Environment) CargoBin() string {
	return filepath.Join(e.CargoHome, "bin")
}

// PrependPath puts dir at the front of PATH
func (e *Environment) PrependPath(dir string) {
	for _, p := range e.path {
		if p == dir {
			return
		}
	}
	e.path = append([]string{dir}, e.path...)
}

// Path returns the prepended PATH entries, highest priority first
func (e *Environment) Path() []string {
	out := make([]string, len(e.path))
	copy(out, e.path)
	return out
}

// Set adds an extra variable
func (e *Environment) Set(key, value string) {
	e.vars[key] = value
}

// UseToolchain selects a rustup-managed toolchain for cargo invocations
func (e *Environment) UseToolchain(name string) {
	e.Toolchain = name
}

// With returns a copy of e with extra variables set
func (e *Environment) With(vars map[string]string) *Environment {
	c := *e
	c.path = e.Path()
	c.vars = make(map[string]string, len(e.vars)+len(vars))
	for k, v := range e.vars {
		c.vars[k] = v
	}
	for k, v := range vars {
		c.vars[k] = v
	}
	return &c
}

// Environ renders the complete process environment for a command
func (e *Environment) Environ() []string {
	drop := map[string]bool{"PATH": true}
	for _, k := range managedVars {
		drop[k] = true
	}
	for k := range e.vars {
		drop[k] = true
	}

	var inherited string
	out := make([]string, 0, len(e.base)+len(e.vars)+3)
	for _, kv := range e.base {
		k, v, _ := strings.Cut(kv, "=")
		if isPathVar(k) {
			inherited = v
		}
		if drop[k] || isPathVar(k) {
			continue
		}
		out = append(out, kv)
	}

	path := strings.Join(e.path, string(os.PathListSeparator))
	if inherited != "" {
		path += string(os.PathListSeparator) + inherited
	}

	out = append(out,
		"CARGO_HOME="+e.CargoHome,
		"RUSTUP_HOME="+e.RustupHome,
		"PATH="+path,
	)

	keys := make([]string, 0, len(e.vars))
	for k := range e.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+e.vars[k])
	}

	return out
}

// Tool resolves a host tool to an absolute path by searching the prepended
// PATH entries. exec.Command resolves programs with the parent's PATH, so
// tools installed by the pipeline must be addressed by absolute path.
func (e *Environment) Tool(name string) string {
	exe := name + HostExeSuffix()
	for _, dir := range e.path {
		candidate := filepath.Join(dir, exe)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return name
}

// Rustup returns the path rustup-init installs rustup to
func (e *Environment) Rustup() string {
	return filepath.Join(e.CargoBin(), "rustup"+HostExeSuffix())
}

// Command builds a shell command running in this environment
func (e *Environment) Command(program string, args ...string) shell.Command {
	return shell.Command{
		Program: program,
		Args:    args,
		Env:     e.Environ(),
	}
}

// Cargo builds a cargo invocation, routed through "rustup run" when a
// rustup toolchain is selected
func (e *Environment) Cargo(args ...string) shell.Command {
	if e.Toolchain != "" {
		return e.Command(e.Rustup(), append([]string{"run", e.Toolchain, "cargo"}, args...)...)
	}
	return e.Command(e.Tool("cargo"), args...)
}

// Rustc builds a rustc invocation, used to verify an installed toolchain
func (e *Environment) Rustc(args ...string) shell.Command {
	if e.Toolchain != "" {
		return e.Command(e.Rustup(), append([]string{"run", e.Toolchain, "rustc"}, args...)...)
	}
	return e.Command(e.Tool("rustc"), args...)
}

// HostExeSuffix returns ".exe" when the pipeline itself runs on windows
func HostExeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}

func isPathVar(k string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(k, "PATH")
	}
	return k == "PATH"
}
