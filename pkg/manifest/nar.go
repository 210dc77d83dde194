// pkg/manifest/nar.go
package manifest

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"
	"zombiezen.com/go/nix/nar"
	"zombiezen.com/go/nix/nixbase32"
)

// countingWriter counts bytes written through it
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// NarHash serializes dir as a Nix archive and returns "sha256:<base32>"
// together with the archive size
func NarHash(fs billy.Filesystem, dir string) (string, int64, error) {
	h := sha256.New()
	cw := &countingWriter{w: h}
	nw := nar.NewWriter(cw)

	if err := writeNAR(fs, nw, dir, ""); err != nil {
		return "", 0, err
	}
	if err := nw.Close(); err != nil {
		return "", 0, fmt.Errorf("finishing NAR: %w", err)
	}

	return "sha256:" + nixbase32.EncodeToString(h.Sum(nil)), cw.n, nil
}

// writeNAR emits the entry at fs path p under archive path rel.
// Directory entries are written in name order.
func writeNAR(fs billy.Filesystem, nw *nar.Writer, p, rel string) error {
	info, err := fs.Lstat(p)
	if err != nil {
		return fmt.Errorf("stat %s: %w", p, err)
	}

	switch {
	case info.IsDir():
		if err := nw.WriteHeader(&nar.Header{Path: rel, Mode: os.ModeDir | 0755}); err != nil {
			return fmt.Errorf("writing NAR directory %s: %w", p, err)
		}
		entries, err := fs.ReadDir(p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, entry := range entries {
			if err := writeNAR(fs, nw, fs.Join(p, entry.Name()), path.Join(rel, entry.Name())); err != nil {
				return err
			}
		}
		return nil

	case info.Mode()&os.ModeSymlink != 0:
		target, err := fs.Readlink(p)
		if err != nil {
			return fmt.Errorf("reading link %s: %w", p, err)
		}
		return nw.WriteHeader(&nar.Header{Path: rel, Mode: os.ModeSymlink | 0777, LinkTarget: target})

	default:
		mode := os.FileMode(0644)
		if info.Mode()&0111 != 0 {
			mode = 0755
		}
		if err := nw.WriteHeader(&nar.Header{Path: rel, Mode: mode, Size: info.Size()}); err != nil {
			return fmt.Errorf("writing NAR file %s: %w", p, err)
		}
		f, err := fs.Open(p)
		if err != nil {
			return fmt.Errorf("opening %s: %w", p, err)
		}
		defer f.Close()
		if _, err := io.Copy(nw, f); err != nil {
			return fmt.Errorf("archiving %s: %w", p, err)
		}
		return nil
	}
}
