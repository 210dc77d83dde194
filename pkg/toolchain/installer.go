// pkg/toolchain/installer.go
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/itchio/capsule-release/pkg/core"
	"github.com/itchio/capsule-release/pkg/shell"
)

// New creates the installer selected by the configuration
func New(cfg *core.Config, exec shell.Executor) (Installer, error) {
	tc := &Config{
		Channel:   cfg.Channel,
		RustupURL: cfg.Toolchain.RustupURL,
		DistURL:   cfg.Toolchain.DistURL,
		DistDir:   cfg.Toolchain.DistDir,
		CacheDir:  cfg.CacheDir(),
		Timeout:   cfg.Toolchain.Timeout,
		Logger:    cfg.GetLogger(),
	}
	if tc.DistDir == "" {
		tc.DistDir = filepath.Join(cfg.Workspace, ".toolchains")
	}

	switch cfg.Toolchain.Source {
	case "", core.ToolchainSourceRustup:
		return NewRustupInstaller(tc, exec), nil
	case core.ToolchainSourceDist:
		return NewDistInstaller(tc, exec), nil
	default:
		return nil, core.Errorf(core.ErrConfiguration, "select installer", "", "unknown toolchain source %q", cfg.Toolchain.Source)
	}
}

// base holds what both installers share
type base struct {
	config *Config
	client *Client
	exec   shell.Executor
	logger *log.Logger
}

func newBase(cfg *Config, exec shell.Executor) base {
	if cfg == nil {
		cfg = &Config{}
	}
	c := *cfg

	if c.Channel == "" {
		c.Channel = core.DefaultChannel
	}
	if c.RustupURL == "" {
		c.RustupURL = DefaultRustupURL
	}
	if c.DistURL == "" {
		c.DistURL = DefaultDistURL
	}

	logger := c.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	client := NewClient()
	if c.Timeout > 0 {
		client = NewClientWithTimeout(c.Timeout)
	}

	return base{
		config: &c,
		client: client,
		exec:   exec,
		logger: logger,
	}
}

// fetch returns a verified local copy of url, downloading it into dest when
// the cached file is missing or does not match the published checksum.
// Without a published checksum the file is always downloaded again and
// used unverified.
func (b *base) fetch(ctx context.Context, url, dest string) error {
	sum, err := b.client.FetchChecksum(ctx, url)
	if errors.Is(err, ErrNoChecksum) {
		b.logger.Printf("Warning: no checksum published for %s, skipping verification", url)
		b.logger.Printf("Downloading %s", url)
		return b.client.DownloadFile(ctx, url, dest)
	}
	if err != nil {
		return err
	}

	if _, err := os.Stat(dest); err == nil {
		if err := verifyFileHash(dest, sum); err == nil {
			b.logger.Printf("Using cached %s", dest)
			return nil
		}
		b.logger.Printf("Cached %s is stale, downloading again", dest)
	}

	b.logger.Printf("Downloading %s", url)
	if err := b.client.DownloadFile(ctx, url, dest); err != nil {
		return err
	}

	if err := verifyFileHash(dest, sum); err != nil {
		os.Remove(dest)
		return err
	}

	b.logger.Printf("✓ Verified %s", dest)
	return nil
}

// verify runs "rustc --version" in the prepared environment
func (b *base) verify(ctx context.Context, run func() shell.Command) error {
	res, err := b.exec.Execute(ctx, run())
	if err != nil {
		return fmt.Errorf("verifying toolchain: %w", err)
	}
	b.logger.Printf("Toolchain ready: %s", firstLine(res.Stdout))
	return nil
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' || c == '\r' {
			return s[:i]
		}
	}
	return s
}
