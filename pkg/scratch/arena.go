// Package scratch manages the temporary files of a benchmark run.
//
// An Arena owns one temporary directory for the whole run. Materialised
// units are placed directly in it and live until the arena is closed.
// Per-invocation artifacts live in a Scope, a subdirectory that is removed as
// a whole on Release, so an encoded artifact and its decode output disappear
// together however the invocation ended.
//
// Example usage:
//
//	arena, err := scratch.New("", scratch.WithLogger(logger))
//	defer arena.Close()
//
//	unit := arena.File("sensors_full.csv")
//	scope, err := arena.Scope()
//	defer scope.Release()
//	artifact := scope.File("sensors_full.csv.bz2")
package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ajitpratap0/compass/pkg/errors"
)

// Namer chooses file names inside the arena. Names must never repeat within
// one arena.
type Namer interface {
	Name(base string) string
}

// SequenceNamer prefixes names with a monotonically increasing counter.
type SequenceNamer struct {
	n atomic.Uint64
}

// Name returns base prefixed with the next sequence number
func (s *SequenceNamer) Name(base string) string {
	return fmt.Sprintf("%06d_%s", s.n.Add(1), base)
}

// Option configures an Arena
type Option func(*Arena)

// WithNamer replaces the default SequenceNamer
func WithNamer(n Namer) Option {
	return func(a *Arena) { a.namer = n }
}

// WithLogger sets the arena logger
func WithLogger(l *zap.Logger) Option {
	return func(a *Arena) { a.logger = l }
}

// WithKeep leaves the arena directory in place on Close
func WithKeep(keep bool) Option {
	return func(a *Arena) { a.keep = keep }
}

// Arena is a run-scoped temporary directory. It is safe for concurrent use.
type Arena struct {
	root   string
	namer  Namer
	keep   bool
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	stats  struct {
		files    int64
		opened   int64
		released int64
	}
}

// Stats is a snapshot of arena usage
type Stats struct {
	Files          int64
	ScopesOpened   int64
	ScopesReleased int64
}

// New creates an arena below parent, or below the OS temporary directory
// when parent is empty.
func New(parent string, opts ...Option) (*Arena, error) {
	a := &Arena{namer: &SequenceNamer{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}

	if parent != "" {
		if err := os.MkdirAll(parent, 0o750); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create scratch parent").
				WithDetail("path", parent)
		}
	}
	root, err := os.MkdirTemp(parent, "compass-*")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create scratch arena").
			WithDetail("parent", parent)
	}
	a.root = root
	a.logger.Debug("scratch arena created", zap.String("root", root))
	return a, nil
}

// Root returns the arena directory
func (a *Arena) Root() string { return a.root }

// File returns a fresh path in the arena root for a file that lives until
// the arena is closed. The file is not created.
func (a *Arena) File(base string) string {
	atomic.AddInt64(&a.stats.files, 1)
	return filepath.Join(a.root, a.namer.Name(base))
}

// Scope creates a fresh subdirectory for one invocation.
func (a *Arena) Scope() (*Scope, error) {
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return nil, errors.New(errors.ErrorTypeInternal, "scratch arena is closed")
	}

	dir := filepath.Join(a.root, a.namer.Name("scope"))
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create scratch scope").
			WithDetail("path", dir)
	}
	atomic.AddInt64(&a.stats.opened, 1)
	return &Scope{arena: a, dir: dir}, nil
}

// Stats returns a snapshot of arena usage
func (a *Arena) Stats() Stats {
	return Stats{
		Files:          atomic.LoadInt64(&a.stats.files),
		ScopesOpened:   atomic.LoadInt64(&a.stats.opened),
		ScopesReleased: atomic.LoadInt64(&a.stats.released),
	}
}

// Close removes the arena directory unless the arena keeps its files.
// Closing twice is a no-op.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	if a.keep {
		a.logger.Info("keeping scratch files", zap.String("root", a.root))
		return nil
	}
	if err := os.RemoveAll(a.root); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to remove scratch arena").
			WithDetail("root", a.root)
	}
	a.logger.Debug("scratch arena removed", zap.String("root", a.root))
	return nil
}

// Scope is a directory bracketing one invocation's artifacts.
type Scope struct {
	arena    *Arena
	dir      string
	released atomic.Bool
}

// Dir returns the scope directory
func (s *Scope) Dir() string { return s.dir }

// File returns a fresh path inside the scope. The file is not created.
func (s *Scope) File(base string) string {
	return filepath.Join(s.dir, s.arena.namer.Name(base))
}

// Mkdir creates a fresh directory inside the scope.
func (s *Scope) Mkdir(base string) (string, error) {
	dir := s.File(base)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to create scope directory").
			WithDetail("path", dir)
	}
	return dir, nil
}

// Release removes the scope and everything in it. Releasing twice is a no-op.
func (s *Scope) Release() error {
	if !s.released.CompareAndSwap(false, true) {
		return nil
	}
	atomic.AddInt64(&s.arena.stats.released, 1)
	if err := os.RemoveAll(s.dir); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to release scratch scope").
			WithDetail("path", s.dir)
	}
	return nil
}
