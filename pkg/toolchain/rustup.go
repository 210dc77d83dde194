// pkg/toolchain/rustup.go
package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/itchio/capsule-release/pkg/core"
	"github.com/itchio/capsule-release/pkg/env"
	"github.com/itchio/capsule-release/pkg/platform"
	"github.com/itchio/capsule-release/pkg/shell"
)

// RustupInstaller bootstraps rustup into CARGO_HOME and installs one
// toolchain per triple through it
type RustupInstaller struct {
	base
}

// NewRustupInstaller creates a rustup-based installer
func NewRustupInstaller(cfg *Config, exec shell.Executor) *RustupInstaller {
	return &RustupInstaller{base: newBase(cfg, exec)}
}

// Name implements Installer
func (r *RustupInstaller) Name() string {
	return core.ToolchainSourceRustup
}

// Ensure implements Installer
func (r *RustupInstaller) Ensure(ctx context.Context, e *env.Environment, triple string) error {
	if triple == "" {
		return core.Errorf(core.ErrConfiguration, "install toolchain", "", "missing triple")
	}

	if err := r.bootstrap(ctx, e, platform.BootstrapTriple(triple)); err != nil {
		return core.NewError(core.ErrToolchain, "bootstrap rustup", triple, err)
	}

	name := r.config.ToolchainName(triple)
	r.logger.Printf("Installing toolchain %s", name)
	if _, err := r.exec.Execute(ctx, e.Command(e.Rustup(), "toolchain", "install", name)); err != nil {
		return core.NewError(core.ErrToolchain, "install toolchain", triple, err)
	}

	e.UseToolchain(name)
	if err := r.verify(ctx, func() shell.Command { return e.Rustc("--version") }); err != nil {
		e.UseToolchain("")
		return core.NewError(core.ErrToolchain, "install toolchain", triple, err)
	}

	return nil
}

// bootstrap installs rustup itself unless CARGO_HOME already has it
func (r *RustupInstaller) bootstrap(ctx context.Context, e *env.Environment, hostTriple string) error {
	if _, err := os.Stat(e.Rustup()); err == nil {
		r.logger.Printf("rustup already installed at %s", e.Rustup())
		return nil
	}

	name := RustupInitName
	if platform.IsWindowsTriple(hostTriple) {
		name += ".exe"
	}

	url := fmt.Sprintf("%s/%s/%s", r.config.RustupURL, hostTriple, name)
	dest := filepath.Join(r.config.CacheDir, "rustup", hostTriple, name)

	if err := r.fetch(ctx, url, dest); err != nil {
		return err
	}
	if err := os.Chmod(dest, 0755); err != nil {
		return fmt.Errorf("making %s executable: %w", dest, err)
	}

	if _, err := r.exec.Execute(ctx, e.Command(dest, "--no-modify-path", "-y", "--default-toolchain", "none")); err != nil {
		return err
	}

	if _, err := os.Stat(e.Rustup()); err != nil {
		return fmt.Errorf("rustup-init did not install %s: %w", e.Rustup(), err)
	}
	return nil
}
