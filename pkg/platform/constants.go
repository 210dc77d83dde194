// pkg/platform/constants.go
package platform

// OS is a supported target operating system
type OS string

const (
	Windows OS = "windows"
	Darwin  OS = "darwin"
	Linux   OS = "linux"
)

// Arch is a supported target CPU architecture
type Arch string

const (
	X86    Arch = "x86"
	X86_64 Arch = "x86_64"

	// NoArch marks a spec whose staging key is the OS alone
	NoArch Arch = ""
)

// CLI and staging-key spellings of the architectures
const (
	Token386   = "386"
	TokenAmd64 = "amd64"
)

// Artifact and crate names
const (
	LibraryCrate = "libcapsule"
	RunnerCrate  = "capsulerun"
)

// AllOS lists the supported operating systems in matrix order
var AllOS = []OS{Windows, Darwin, Linux}

// AllArch lists the supported architectures in matrix order
var AllArch = []Arch{X86, X86_64}
