// pkg/platform/platform.go
package platform

import (
	"fmt"
	"strings"

	"github.com/itchio/capsule-release/pkg/core"
)

// ParseOS converts an OS selector token
func ParseOS(token string) (OS, error) {
	switch OS(token) {
	case Windows, Darwin, Linux:
		return OS(token), nil
	}
	return "", core.Errorf(core.ErrConfiguration, "parse os", "", "unsupported os %q", token)
}

// ParseArch converts an architecture selector token ("386" or "amd64")
func ParseArch(token string) (Arch, error) {
	switch token {
	case Token386:
		return X86, nil
	case TokenAmd64:
		return X86_64, nil
	}
	return "", core.Errorf(core.ErrConfiguration, "parse arch", "", "unsupported arch %q", token)
}

// Token returns the CLI spelling of the architecture
func (a Arch) Token() string {
	switch a {
	case X86:
		return Token386
	case X86_64:
		return TokenAmd64
	}
	return ""
}

// Triple derives the Rust target triple for an OS/arch pair
func Triple(os OS, arch Arch) (string, error) {
	switch os {
	case Windows:
		switch arch {
		case X86:
			return "i686-pc-windows-msvc", nil
		case X86_64:
			return "x86_64-pc-windows-msvc", nil
		}
	case Darwin:
		switch arch {
		case X86_64:
			return "x86_64-apple-darwin", nil
		}
	case Linux:
		switch arch {
		case X86:
			return "i686-unknown-linux-gnu", nil
		case X86_64:
			return "x86_64-unknown-linux-gnu", nil
		}
	default:
		return "", core.Errorf(core.ErrConfiguration, "derive triple", "", "unsupported os %q", os)
	}
	return "", core.Errorf(core.ErrConfiguration, "derive triple", "", "unsupported arch %q for %s", arch, os)
}

// ExeSuffix returns ".exe" for windows and "" otherwise
func (o OS) ExeSuffix() string {
	if o == Windows {
		return ".exe"
	}
	return ""
}

// LibraryName returns the shared library file name produced for an OS
func (o OS) LibraryName() string {
	switch o {
	case Windows:
		return "capsule.dll"
	case Darwin:
		return "libcapsule.dylib"
	default:
		return "libcapsule.so"
	}
}

// RunnerName returns the runner executable file name produced for an OS
func (o OS) RunnerName() string {
	return RunnerCrate + o.ExeSuffix()
}

// DefaultTests returns the built-in injection tests for an OS
func (o OS) DefaultTests() []string {
	switch o {
	case Windows:
		return []string{"windows-opengl-loadlibrary"}
	case Darwin:
		return []string{"macos-opengl-dlopen"}
	case Linux:
		return []string{"linux-opengl-dlopen"}
	}
	return nil
}

// Resolve builds the spec for an OS/arch pair
func Resolve(os OS, arch Arch) (Spec, error) {
	triple, err := Triple(os, arch)
	if err != nil {
		return Spec{}, err
	}

	spec := Spec{
		OS:      os,
		Arch:    arch,
		Triple:  triple,
		Library: os.LibraryName(),
		Runner:  os.RunnerName(),
		Strip:   os != Windows,
	}
	for _, name := range os.DefaultTests() {
		spec.Tests = append(spec.Tests, TestSpec{Name: name, Triple: triple})
	}

	return spec, nil
}

// Key returns the staging directory key, e.g. "linux-amd64"
func (s Spec) Key() string {
	if s.Arch == NoArch {
		return string(s.OS)
	}
	return string(s.OS) + "-" + s.Arch.Token()
}

// String returns a short description of the spec
func (s Spec) String() string {
	return fmt.Sprintf("%s (%s)", s.Key(), s.Triple)
}

// ParseSelector validates argument arity and converts the tokens.
// Exactly one OS token is required; linux requires exactly one arch token
// and the other OSes accept none.
func ParseSelector(args []string) (Selector, error) {
	if len(args) < 1 {
		return Selector{}, core.Errorf(core.ErrConfiguration, "parse arguments", "",
			"expected at least one argument, got %d", len(args))
	}

	os, err := ParseOS(args[0])
	if err != nil {
		return Selector{}, err
	}

	if os != Linux {
		if len(args) != 1 {
			return Selector{}, core.Errorf(core.ErrConfiguration, "parse arguments", "",
				"%s expects one argument (os), got %d (%s)", os, len(args), strings.Join(args, ", "))
		}
		return Selector{OS: os}, nil
	}

	if len(args) != 2 {
		return Selector{}, core.Errorf(core.ErrConfiguration, "parse arguments", "",
			"linux expects two arguments (os arch), got %d (%s)", len(args), strings.Join(args, ", "))
	}

	arch, err := ParseArch(args[1])
	if err != nil {
		return Selector{}, err
	}

	return Selector{OS: os, Arch: arch}, nil
}

// Expand resolves a selector to its specs in matrix order.
// windows yields x86 then x86_64, darwin is always x86_64.
func Expand(sel Selector) ([]Spec, error) {
	var arches []Arch
	switch sel.OS {
	case Windows:
		arches = AllArch
	case Darwin:
		arches = []Arch{X86_64}
	case Linux:
		if sel.Arch == NoArch {
			return nil, core.Errorf(core.ErrConfiguration, "expand matrix", "", "linux requires an arch")
		}
		arches = []Arch{sel.Arch}
	default:
		return nil, core.Errorf(core.ErrConfiguration, "expand matrix", "", "unsupported os %q", sel.OS)
	}

	specs := make([]Spec, 0, len(arches))
	for _, arch := range arches {
		spec, err := Resolve(sel.OS, arch)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	if err := CheckUniqueKeys(specs); err != nil {
		return nil, err
	}

	return specs, nil
}

// CheckUniqueKeys fails if two specs would stage into the same directory
func CheckUniqueKeys(specs []Spec) error {
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		if seen[s.Key()] {
			return core.Errorf(core.ErrConfiguration, "expand matrix", s.Key(), "duplicate staging key")
		}
		seen[s.Key()] = true
	}
	return nil
}

// Supported returns every spec in the matrix, in matrix order
func Supported() []Spec {
	var specs []Spec
	for _, os := range AllOS {
		for _, arch := range AllArch {
			spec, err := Resolve(os, arch)
			if err != nil {
				continue
			}
			specs = append(specs, spec)
		}
	}
	return specs
}
