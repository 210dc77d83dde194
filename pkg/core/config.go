// pkg/core/config.go
package core

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is used for config and cache directory naming
	AppName = "capsule-release"

	// DefaultArtifactsDir is the artifacts root, relative to the workspace
	DefaultArtifactsDir = "compile-artifacts"

	// DefaultChannel is the Rust release channel used for every triple
	DefaultChannel = "stable"

	// ToolchainSourceRustup bootstraps rustup-init and installs toolchains through it
	ToolchainSourceRustup = "rustup"

	// ToolchainSourceDist installs standalone toolchain tarballs
	ToolchainSourceDist = "dist"
)

// Config holds release-build configuration
type Config struct {
	Workspace    string                    `yaml:"workspace,omitempty"`
	ArtifactsDir string                    `yaml:"artifacts_dir"`
	Channel      string                    `yaml:"channel"`
	Toolchain    ToolchainConfig           `yaml:"toolchain"`
	FailFast     bool                      `yaml:"fail_fast"`
	Archive      bool                      `yaml:"archive"`
	SkipTests    bool                      `yaml:"skip_tests"`
	Debug        bool                      `yaml:"debug"`
	Platforms    map[string]PlatformConfig `yaml:"platforms"` // keyed by staging key, e.g. linux-amd64
	Signer       *SignerConfig             `yaml:"signer"`

	// Logger for debug output (optional)
	Logger *log.Logger `yaml:"-"`
}

// ToolchainConfig controls where and how the Rust toolchain is installed
type ToolchainConfig struct {
	Source     string        `yaml:"source"`      // rustup (default) or dist
	CargoHome  string        `yaml:"cargo_home"`  // Default: <workspace>/.cargo
	RustupHome string        `yaml:"rustup_home"` // Default: <workspace>/.multirust
	DistDir    string        `yaml:"dist_dir"`    // Default: <workspace>/.toolchains
	RustupURL  string        `yaml:"rustup_url"`  // Default: https://static.rust-lang.org/rustup/dist
	DistURL    string        `yaml:"dist_url"`    // Default: https://static.rust-lang.org/dist
	CacheDir   string        `yaml:"cache_dir"`   // Default: $XDG_CACHE_HOME/capsule-release
	Timeout    time.Duration `yaml:"timeout"`
}

// PlatformConfig overrides the built-in matrix entry for one staging key
type PlatformConfig struct {
	Strip *bool        `yaml:"strip"`
	Tests []TestConfig `yaml:"tests"`
}

// TestConfig declares one injection test. An empty triple means the build triple.
type TestConfig struct {
	Name   string `yaml:"name"`
	Triple string `yaml:"triple"`
}

// SignerConfig describes an external signing command.
// "{file}" in Args is replaced by the artifact path.
type SignerConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	OS      []string `yaml:"os"` // Empty means every OS
}

// DefaultConfig returns a default configuration rooted at the current directory
func DefaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	return &Config{
		Workspace:    wd,
		ArtifactsDir: DefaultArtifactsDir,
		Channel:      DefaultChannel,
		Toolchain: ToolchainConfig{
			Source:  ToolchainSourceRustup,
			Timeout: 5 * time.Minute,
		},
		Platforms: make(map[string]PlatformConfig),
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/capsule-release/config.yaml
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// LoadConfig loads configuration from file.
// A missing file yields the default configuration.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate checks fields that cannot be defaulted
func (c *Config) Validate() error {
	if c.Workspace == "" {
		return Errorf(ErrConfiguration, "validate config", "", "workspace is required")
	}
	switch c.Toolchain.Source {
	case "", ToolchainSourceRustup, ToolchainSourceDist:
	default:
		return Errorf(ErrConfiguration, "validate config", "", "unknown toolchain source %q", c.Toolchain.Source)
	}
	if c.Signer != nil && c.Signer.Command == "" {
		return Errorf(ErrConfiguration, "validate config", "", "signer command is required")
	}
	for key, p := range c.Platforms {
		for _, t := range p.Tests {
			if t.Name == "" {
				return Errorf(ErrConfiguration, "validate config", key, "injection test without a name")
			}
		}
	}
	return nil
}

// ResolvePaths makes the workspace and toolchain directories absolute
func (c *Config) ResolvePaths() error {
	for _, p := range []*string{&c.Workspace, &c.Toolchain.CargoHome, &c.Toolchain.RustupHome, &c.Toolchain.DistDir, &c.Toolchain.CacheDir} {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return Errorf(ErrConfiguration, "resolve paths", "", "%s: %v", *p, err)
		}
		*p = abs
	}
	return nil
}

// ArtifactsRoot returns the absolute artifacts root
func (c *Config) ArtifactsRoot() string {
	dir := c.ArtifactsDir
	if dir == "" {
		dir = DefaultArtifactsDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.Workspace, dir)
}

// CacheDir returns the download cache directory
func (c *Config) CacheDir() string {
	if c.Toolchain.CacheDir != "" {
		return c.Toolchain.CacheDir
	}
	return filepath.Join(xdg.CacheHome, AppName)
}

// GetLogger returns the configured logger, or a discarding one unless Debug is set
func (c *Config) GetLogger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	if c.Debug {
		return log.New(os.Stderr, "[DEBUG] ", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

// SignsFor reports whether the signer applies to the given OS
func (s *SignerConfig) SignsFor(os string) bool {
	if s == nil {
		return false
	}
	if len(s.OS) == 0 {
		return true
	}
	for _, o := range s.OS {
		if o == os {
			return true
		}
	}
	return false
}
