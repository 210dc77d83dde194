// pkg/toolchain/dist.go
package toolchain

import (
	"archive/tar"
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/ulikunitz/xz"

	"github.com/itchio/capsule-release/pkg/core"
	"github.com/itchio/capsule-release/pkg/env"
	"github.com/itchio/capsule-release/pkg/shell"
)

// DistInstaller installs standalone toolchain tarballs
// (rust-<channel>-<triple>.tar.xz) under DistDir, without rustup
type DistInstaller struct {
	base
}

// NewDistInstaller creates a tarball-based installer
func NewDistInstaller(cfg *Config, exec shell.Executor) *DistInstaller {
	return &DistInstaller{base: newBase(cfg, exec)}
}

// Name implements Installer
func (d *DistInstaller) Name() string {
	return core.ToolchainSourceDist
}

// Prefix returns the install prefix for a triple
func (d *DistInstaller) Prefix(triple string) string {
	return filepath.Join(d.config.DistDir, d.config.ToolchainName(triple))
}

// Ensure implements Installer
func (d *DistInstaller) Ensure(ctx context.Context, e *env.Environment, triple string) error {
	if triple == "" {
		return core.Errorf(core.ErrConfiguration, "install toolchain", "", "missing triple")
	}

	prefix := d.Prefix(triple)
	stamp := filepath.Join(prefix, installedStamp)

	if _, err := os.Stat(stamp); err != nil {
		if err := d.install(ctx, e, triple, prefix); err != nil {
			return core.NewError(core.ErrToolchain, "install toolchain", triple, err)
		}
		if err := os.WriteFile(stamp, []byte(triple+"\n"), 0644); err != nil {
			return core.NewError(core.ErrToolchain, "install toolchain", triple, err)
		}
	} else {
		d.logger.Printf("Toolchain already installed at %s", prefix)
	}

	e.UseToolchain("")
	e.PrependPath(filepath.Join(prefix, "bin"))

	if err := d.verify(ctx, func() shell.Command { return e.Rustc("--version") }); err != nil {
		return core.NewError(core.ErrToolchain, "install toolchain", triple, err)
	}
	return nil
}

func (d *DistInstaller) install(ctx context.Context, e *env.Environment, triple, prefix string) error {
	name := fmt.Sprintf("rust-%s-%s", d.config.Channel, triple)
	url := fmt.Sprintf("%s/%s.tar.xz", d.config.DistURL, name)
	archive := filepath.Join(d.config.CacheDir, "dist", name+".tar.xz")

	if err := d.fetch(ctx, url, archive); err != nil {
		return err
	}

	tmp, err := os.MkdirTemp(d.config.CacheDir, "extract-*")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := extractTarXZ(archive, tmp); err != nil {
		return fmt.Errorf("extracting %s: %w", archive, err)
	}

	script, err := findInstallScript(tmp)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	if err := os.MkdirAll(prefix, 0755); err != nil {
		return fmt.Errorf("creating prefix: %w", err)
	}

	cmd := e.Command("sh", script, "--prefix="+prefix, "--disable-ldconfig")
	cmd.Dir = filepath.Dir(script)
	if _, err := d.exec.Execute(ctx, cmd); err != nil {
		return err
	}

	d.logger.Printf("✓ Installed %s into %s", name, prefix)
	return nil
}

// findInstallScript returns install.sh from the single top-level directory of
// an extracted tarball. The directory is named after the release
// (rust-1.80.0-<triple>), not the channel.
func findInstallScript(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading extracted archive: %w", err)
	}

	var top []string
	for _, entry := range entries {
		if entry.IsDir() {
			top = append(top, entry.Name())
		}
	}
	if len(top) != 1 {
		return "", fmt.Errorf("expected one top-level directory in archive, found %d", len(top))
	}

	script := filepath.Join(dir, top[0], "install.sh")
	if _, err := os.Stat(script); err != nil {
		return "", fmt.Errorf("archive has no install.sh: %w", err)
	}
	return script, nil
}

// extractTarXZ unpacks an xz-compressed tarball into dest
func extractTarXZ(archive, dest string) error {
	f, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	xzReader, err := xz.NewReader(bufio.NewReader(f))
	if err != nil {
		return fmt.Errorf("creating xz reader: %w", err)
	}

	tr := tar.NewReader(xzReader)
	fileCount := 0

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		target, err := securejoin.SecureJoin(dest, hdr.Name)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", hdr.Name, err)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("creating directory %s: %w", target, err)
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(hdr.Linkname) || strings.Contains(hdr.Linkname, "..") {
				return fmt.Errorf("refusing symlink %s -> %s", hdr.Name, hdr.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("creating parent directory: %w", err)
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return fmt.Errorf("creating symlink: %w", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("creating parent directory: %w", err)
			}

			perm := os.FileMode(0644)
			if hdr.Mode&0111 != 0 {
				perm = 0755
			}

			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
			if err != nil {
				return fmt.Errorf("creating file %s: %w", target, err)
			}
			written, err := io.Copy(out, tr)
			out.Close()
			if err != nil {
				return fmt.Errorf("writing file: %w", err)
			}
			if written != hdr.Size {
				return fmt.Errorf("size mismatch for %s", hdr.Name)
			}
			fileCount++
		default:
			// Hard links and devices do not occur in toolchain tarballs
		}
	}

	if fileCount == 0 {
		return fmt.Errorf("archive contains no files")
	}
	return nil
}
