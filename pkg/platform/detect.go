// pkg/platform/detect.go
package platform

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/itchio/capsule-release/pkg/core"
)

// Host describes the machine running the pipeline
type Host struct {
	OS   OS
	Arch Arch
}

// Detect returns the host platform
func Detect() (*Host, error) {
	return detect(runtime.GOOS, runtime.GOARCH)
}

func detect(goos, goarch string) (*Host, error) {
	os, err := ParseOS(goos)
	if err != nil {
		return nil, core.Errorf(core.ErrConfiguration, "detect host", "", "unsupported operating system: %s", goos)
	}
	arch, err := ParseArch(goarch)
	if err != nil {
		return nil, core.Errorf(core.ErrConfiguration, "detect host", "", "unsupported architecture: %s", goarch)
	}
	return &Host{OS: os, Arch: arch}, nil
}

// BootstrapTriple returns the triple whose rustup-init must be downloaded to
// build for triple. Windows always bootstraps the 64-bit MSVC installer, which
// can then install the 32-bit toolchain.
func BootstrapTriple(triple string) string {
	if strings.HasSuffix(triple, "-windows-msvc") {
		return "x86_64-pc-windows-msvc"
	}
	return triple
}

// IsWindowsTriple reports whether triple targets windows
func IsWindowsTriple(triple string) bool {
	return strings.Contains(triple, "-windows-")
}

// String returns a string representation of the host
func (h *Host) String() string {
	return fmt.Sprintf("%s/%s", h.OS, h.Arch.Token())
}
