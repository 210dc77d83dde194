// pkg/toolchain/constants.go
package toolchain

const (
	// DefaultRustupURL hosts rustup-init per host triple
	DefaultRustupURL = "https://static.rust-lang.org/rustup/dist"

	// DefaultDistURL hosts standalone toolchain tarballs
	DefaultDistURL = "https://static.rust-lang.org/dist"

	// RustupInitName is the bootstrap installer file name
	RustupInitName = "rustup-init"

	// checksumSuffix is appended to a download URL to get its sha256 file
	checksumSuffix = ".sha256"

	// installedStamp marks a completed dist install
	installedStamp = ".installed"
)
