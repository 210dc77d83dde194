// pkg/stage/stager.go
package stage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/itchio/capsule-release/pkg/compile"
	"github.com/itchio/capsule-release/pkg/core"
	"github.com/itchio/capsule-release/pkg/env"
	"github.com/itchio/capsule-release/pkg/platform"
	"github.com/itchio/capsule-release/pkg/shell"
)

// Stager copies finished artifacts into per-key directories of a filesystem
// rooted at the artifacts root
type Stager struct {
	fs     billy.Filesystem
	exec   shell.Executor
	signer *core.SignerConfig
	logger *log.Logger
}

// Option configures a Stager
type Option func(*Stager)

// WithSigner runs signer on each artifact after stripping
func WithSigner(signer *core.SignerConfig) Option {
	return func(s *Stager) {
		s.signer = signer
	}
}

// WithLogger sets the diagnostics logger
func WithLogger(logger *log.Logger) Option {
	return func(s *Stager) {
		s.logger = logger
	}
}

// New creates a Stager writing into fs
func New(fs billy.Filesystem, exec shell.Executor, opts ...Option) *Stager {
	s := &Stager{
		fs:     fs,
		exec:   exec,
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Filesystem returns the artifacts filesystem
func (s *Stager) Filesystem() billy.Filesystem {
	return s.fs
}

// Stage strips and signs the build outputs in place, then copies them into
// <root>/<key>. Directories of other keys are never touched.
func (s *Stager) Stage(ctx context.Context, e *env.Environment, spec platform.Spec, arts *compile.Artifacts) (string, error) {
	key := spec.Key()

	if err := s.fs.MkdirAll(key, 0755); err != nil {
		return "", core.NewError(core.ErrIO, "create staging directory", key, err)
	}

	if spec.Strip {
		if err := s.strip(ctx, e, spec, arts); err != nil {
			return "", core.NewError(core.ErrIO, "strip", key, err)
		}
	}

	if s.signer.SignsFor(string(spec.OS)) {
		for _, p := range arts.Paths() {
			if _, err := s.exec.Execute(ctx, signCommand(e, s.signer, p)); err != nil {
				return "", core.NewError(core.ErrIO, "sign", key, err)
			}
		}
	}

	if err := s.prune(key, arts); err != nil {
		return "", core.NewError(core.ErrIO, "clean staging directory", key, err)
	}

	for _, p := range arts.Paths() {
		dest := s.fs.Join(key, filepath.Base(p))
		if err := s.copyIn(p, dest); err != nil {
			return "", core.NewError(core.ErrIO, "stage", key, err)
		}
		s.logger.Printf("Staged %s", dest)
	}

	return filepath.Join(s.fs.Root(), key), nil
}

// prune removes everything in the key directory except the artifacts about
// to be copied, so the directory holds exactly the library and the runner
func (s *Stager) prune(key string, arts *compile.Artifacts) error {
	keep := make(map[string]bool)
	for _, p := range arts.Paths() {
		keep[filepath.Base(p)] = true
	}

	entries, err := s.fs.ReadDir(key)
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	for _, entry := range entries {
		if keep[entry.Name()] && !entry.IsDir() {
			continue
		}
		stale := s.fs.Join(key, entry.Name())
		if err := util.RemoveAll(s.fs, stale); err != nil {
			return fmt.Errorf("removing %s: %w", stale, err)
		}
		s.logger.Printf("Removed stale %s", stale)
	}
	return nil
}

func (s *Stager) strip(ctx context.Context, e *env.Environment, spec platform.Spec, arts *compile.Artifacts) error {
	argv, err := StripArgs(spec.OS)
	if err != nil {
		return err
	}
	for _, p := range arts.Paths() {
		args := append(append([]string{}, argv[1:]...), p)
		cmd := e.Command(e.Tool(argv[0]), args...)
		if _, err := s.exec.Execute(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

// copyIn copies a host file into the staging filesystem, replacing any
// previous file and keeping the executable bit
func (s *Stager) copyIn(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	perm := os.FileMode(0644)
	if info.Mode()&0111 != 0 {
		perm = 0755
	}

	out, err := s.fs.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dest, err)
	}

	// OpenFile keeps the mode of an existing file
	if ch, ok := s.fs.(billy.Change); ok {
		if err := ch.Chmod(dest, perm); err != nil {
			return fmt.Errorf("chmod %s: %w", dest, err)
		}
	}
	return nil
}
