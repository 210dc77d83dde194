// pkg/platform/types.go
package platform

// Spec identifies one build target and what it produces
type Spec struct {
	OS      OS         // Target operating system
	Arch    Arch       // Target architecture, NoArch if not applicable
	Triple  string     // Rust target triple used for the release build
	Library string     // Shared library file name (e.g., "libcapsule.so")
	Runner  string     // Runner executable file name (e.g., "capsulerun")
	Strip   bool       // Whether debug symbols are removed before staging
	Tests   []TestSpec // Injection tests, run in order
}

// TestSpec is one injection test program
type TestSpec struct {
	Name   string // Directory under test/ and binary name
	Triple string // Triple the test program is compiled for
}

// Selector is a parsed OS selector plus its optional architecture
type Selector struct {
	OS   OS
	Arch Arch // Only set for linux
}
