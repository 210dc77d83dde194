// errors.go
package release

import (
	"github.com/itchio/capsule-release/pkg/core"
	"github.com/itchio/capsule-release/pkg/injection"
)

var (
	// ErrConfiguration indicates bad arguments or an unsupported platform
	ErrConfiguration = core.ErrConfiguration

	// ErrToolchain indicates the toolchain could not be installed
	ErrToolchain = core.ErrToolchain

	// ErrBuild indicates a cargo build failed
	ErrBuild = core.ErrBuild

	// ErrInjectionTest indicates the runner output did not match the sentinel
	ErrInjectionTest = core.ErrInjectionTest

	// ErrIO indicates staging, stripping or signing failed
	ErrIO = core.ErrIO
)

// Error wraps an error with its kind, operation and platform key
type Error = core.Error

// InjectionFailure carries the expected and actual runner output
type InjectionFailure = injection.Failure
