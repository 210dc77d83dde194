// pkg/manifest/types.go
package manifest

// Suffix is appended to the staging key to name the manifest file
const Suffix = ".manifest.yaml"

// Manifest describes one staged platform directory
type Manifest struct {
	Key     string `yaml:"key"`
	OS      string `yaml:"os"`
	Arch    string `yaml:"arch,omitempty"`
	Triple  string `yaml:"triple"`
	Channel string `yaml:"channel"`
	Version string `yaml:"version"`
	Commit  string `yaml:"commit,omitempty"`
	NarHash string `yaml:"nar_hash"` // sha256 of the NAR serialization, Nix base32
	NarSize int64  `yaml:"nar_size"`
	Files   []File `yaml:"files"`
}

// File is one staged artifact
type File struct {
	Name       string `yaml:"name"`
	Size       int64  `yaml:"size"`
	SHA256     string `yaml:"sha256"`
	Executable bool   `yaml:"executable,omitempty"`
}

// Options carries what the manifest records beyond the staged files
type Options struct {
	Channel   string
	Version   string
	Workspace string // Searched upwards for a git repository
}
