// pkg/toolchain/types.go
package toolchain

import (
	"context"
	"log"
	"time"

	"github.com/itchio/capsule-release/pkg/env"
)

// Installer guarantees a working compiler for a triple.
// Ensure is idempotent and, on success, leaves e configured so that
// e.Cargo() runs the installed toolchain. On failure e must not be used.
type Installer interface {
	Ensure(ctx context.Context, e *env.Environment, triple string) error

	// Name returns the installer name (e.g., "rustup")
	Name() string
}

// Config configures an installer
type Config struct {
	Channel   string        // Default: stable
	RustupURL string        // Default: DefaultRustupURL
	DistURL   string        // Default: DefaultDistURL
	DistDir   string        // Where dist toolchains are installed
	CacheDir  string        // Where downloads are kept
	Timeout   time.Duration // HTTP timeout
	Logger    *log.Logger   // Custom logger (optional)
}

// ToolchainName returns "<channel>-<triple>"
func (c *Config) ToolchainName(triple string) string {
	return c.Channel + "-" + triple
}
