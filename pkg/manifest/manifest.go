// pkg/manifest/manifest.go
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"

	"github.com/itchio/capsule-release/pkg/core"
	"github.com/itchio/capsule-release/pkg/platform"
)

// Path returns the manifest file name for a staging key, relative to the
// artifacts root
func Path(key string) string {
	return key + Suffix
}

// Build describes the staged directory of spec in fs
func Build(fs billy.Filesystem, spec platform.Spec, opts Options) (*Manifest, error) {
	key := spec.Key()

	m := &Manifest{
		Key:     key,
		OS:      string(spec.OS),
		Arch:    spec.Arch.Token(),
		Triple:  spec.Triple,
		Channel: opts.Channel,
		Version: opts.Version,
	}

	entries, err := fs.ReadDir(key)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		sum, err := fileSHA256(fs, fs.Join(key, entry.Name()))
		if err != nil {
			return nil, err
		}
		m.Files = append(m.Files, File{
			Name:       entry.Name(),
			Size:       entry.Size(),
			SHA256:     sum,
			Executable: entry.Mode()&0111 != 0,
		})
	}

	m.NarHash, m.NarSize, err = NarHash(fs, key)
	if err != nil {
		return nil, err
	}

	if opts.Workspace != "" {
		m.Commit, err = GitCommit(opts.Workspace)
		if err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Write builds the manifest for spec and stores it next to the staged
// directory. It returns the manifest's full path.
func Write(fs billy.Filesystem, spec platform.Spec, opts Options) (string, error) {
	m, err := Build(fs, spec, opts)
	if err != nil {
		return "", core.NewError(core.ErrIO, "write manifest", spec.Key(), err)
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return "", core.NewError(core.ErrIO, "write manifest", spec.Key(), fmt.Errorf("marshaling manifest: %w", err))
	}

	name := Path(spec.Key())
	if err := util.WriteFile(fs, name, data, 0644); err != nil {
		return "", core.NewError(core.ErrIO, "write manifest", spec.Key(), err)
	}
	return filepath.Join(fs.Root(), name), nil
}

// Read loads the manifest of a staging key
func Read(fs billy.Filesystem, key string) (*Manifest, error) {
	data, err := util.ReadFile(fs, Path(key))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

func fileSHA256(fs billy.Filesystem, name string) (string, error) {
	f, err := fs.Open(name)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", name, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
