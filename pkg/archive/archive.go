// pkg/archive/archive.go
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/ulikunitz/xz"

	"github.com/itchio/capsule-release/pkg/core"
)

// Suffix is appended to the staging key to name the bundle
const Suffix = ".tar.xz"

// Path returns the bundle file name for a staging key, relative to the
// artifacts root
func Path(key string) string {
	return key + Suffix
}

// Write packs the staged directory of key into <key>.tar.xz next to it.
// Entries are stored as <key>/<name> in name order.
func Write(fs billy.Filesystem, key string) (string, error) {
	name := Path(key)
	if err := write(fs, key, name); err != nil {
		fs.Remove(name)
		return "", core.NewError(core.ErrIO, "archive", key, err)
	}
	return filepath.Join(fs.Root(), name), nil
}

func write(fs billy.Filesystem, key, name string) error {
	entries, err := fs.ReadDir(key)
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	out, err := fs.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	defer out.Close()

	xw, err := xz.NewWriter(out)
	if err != nil {
		return fmt.Errorf("creating xz writer: %w", err)
	}
	tw := tar.NewWriter(xw)

	if err := tw.WriteHeader(&tar.Header{
		Name:     key + "/",
		Mode:     0755,
		Typeflag: tar.TypeDir,
	}); err != nil {
		return fmt.Errorf("writing directory header: %w", err)
	}

	for _, entry := range entries {
		if !entry.Mode().IsRegular() {
			continue
		}
		if err := addFile(fs, tw, key, entry); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("finishing tar: %w", err)
	}
	if err := xw.Close(); err != nil {
		return fmt.Errorf("finishing xz: %w", err)
	}
	return out.Close()
}

func addFile(fs billy.Filesystem, tw *tar.Writer, key string, info os.FileInfo) error {
	mode := int64(0644)
	if info.Mode()&0111 != 0 {
		mode = 0755
	}

	if err := tw.WriteHeader(&tar.Header{
		Name:     key + "/" + info.Name(),
		Mode:     mode,
		Size:     info.Size(),
		Typeflag: tar.TypeReg,
	}); err != nil {
		return fmt.Errorf("writing header for %s: %w", info.Name(), err)
	}

	f, err := fs.Open(fs.Join(key, info.Name()))
	if err != nil {
		return fmt.Errorf("opening %s: %w", info.Name(), err)
	}
	defer f.Close()

	n, err := io.Copy(tw, f)
	if err != nil {
		return fmt.Errorf("archiving %s: %w", info.Name(), err)
	}
	if n != info.Size() {
		return fmt.Errorf("size mismatch for %s", info.Name())
	}
	return nil
}
