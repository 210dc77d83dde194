// pkg/compile/types.go
package compile

// Profile selects the cargo build profile
type Profile string

const (
	Release Profile = "release"
	Debug   Profile = "debug"
)

// Artifacts are the two files a release build produces for one spec
type Artifacts struct {
	Triple  string
	Library string // Absolute path of the shared library
	Runner  string // Absolute path of the runner executable
}

// Paths returns the library and runner paths in staging order
func (a *Artifacts) Paths() []string {
	return []string{a.Library, a.Runner}
}
