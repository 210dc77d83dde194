// pkg/env/types.go
package env

// Options configures a new Environment
type Options struct {
	Workspace  string   // Repository root containing the crates
	CargoHome  string   // Default: <workspace>/.cargo
	RustupHome string   // Default: <workspace>/.multirust
	Base       []string // Inherited variables, e.g. os.Environ()
}

// Environment is the toolchain configuration of one platform build
type Environment struct {
	Workspace  string
	CargoHome  string
	RustupHome string

	// Toolchain is the rustup toolchain name used by "rustup run".
	// Empty means cargo is invoked directly from Path.
	Toolchain string

	path []string          // Prepended to PATH, highest priority first
	vars map[string]string // Extra variables
	base []string
}
