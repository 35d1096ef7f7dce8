// Package filesink appends formatted events to a file on disk.
//
// If no file path is configured, the sink writes one file per calendar day under
// <working directory>/logs. Every Process call is a single locked append: concurrent
// callers never interleave partial lines, and nothing is buffered between calls.
package filesink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rmacdonaldsmith/sysevents/internal/format"
	"github.com/rmacdonaldsmith/sysevents/internal/metrics"
	"github.com/rmacdonaldsmith/sysevents/pkg/eventlog"
)

// FileSink implements eventlog.Sink by appending one templated line per event to a file.
// It is safe for concurrent use.
type FileSink struct {
	// mu guards the destination handle for the duration of one append
	mu       sync.Mutex
	file     *os.File
	openPath string

	// cfgMu serializes reconfiguration; readers use the atomic pointer
	cfgMu    sync.Mutex
	template atomic.Pointer[format.Template]

	explicitPath string
	baseDir      string
	loc          *time.Location
	sync         bool
	clock        func() time.Time

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a FileSink.
type Option func(*FileSink)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *FileSink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the instruments updated on every append. Without it the sink uses
// metrics.Default.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *FileSink) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New creates a FileSink from config. The destination directory is created before
// New returns; the file itself is opened on the first Process call.
// A nil config is equivalent to NewConfig().
func New(config *Config, opts ...Option) (*FileSink, error) {
	if config == nil {
		config = NewConfig()
	}

	s := &FileSink{
		explicitPath: config.Path,
		baseDir:      config.Dir,
		loc:          config.Location,
		sync:         config.Sync,
		clock:        config.Clock,
		logger:       slog.Default(),
		metrics:      metrics.Default(),
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.explicitPath == "" && s.baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		s.baseDir = wd
	}

	text := config.Template
	if text == "" {
		text = format.DefaultTemplate
	}
	s.template.Store(format.NewTemplate(text, config.Placeholders))

	if err := EnsureDir(filepath.Dir(s.Path())); err != nil {
		return nil, err
	}

	s.logger.Debug("event log sink ready", "path", s.Path())
	return s, nil
}

// Path returns the file the next event will be written to.
func (s *FileSink) Path() string {
	if s.explicitPath != "" {
		return s.explicitPath
	}
	return DefaultPath(s.baseDir, s.clock().In(s.loc))
}

// Template returns the template in effect.
func (s *FileSink) Template() *format.Template {
	return s.template.Load()
}

// SetTemplate replaces the template text. Calls to Process that have already started
// keep the template they began with.
func (s *FileSink) SetTemplate(text string) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.template.Store(s.template.Load().WithText(text))
}

// SetPlaceholders replaces the custom placeholder table for subsequent calls.
func (s *FileSink) SetPlaceholders(placeholders map[string]string) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.template.Store(s.template.Load().WithPlaceholders(placeholders))
}

// Process formats event and appends it to the destination. It returns once the line has
// been handed to the operating system (and synced when configured), or with an error
// wrapping eventlog.ErrWriteFailed.
func (s *FileSink) Process(ctx context.Context, event eventlog.Event) error {
	// Check if context is cancelled
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// snapshot the configuration once per call
	line := s.template.Load().Format(event, s.loc)
	path := s.Path()

	if err := s.append(path, line); err != nil {
		s.metrics.Failed(ctx, path)
		return err
	}
	s.metrics.Written(ctx, path)
	return nil
}

// append writes line as one write under both the sink mutex and the file lock.
// Both are released on every return path.
func (s *FileSink) append(path, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.handle(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", eventlog.ErrWriteFailed, path, err)
	}

	if err := lockFile(f); err != nil {
		return fmt.Errorf("%w: %s: lock: %w", eventlog.ErrWriteFailed, path, err)
	}
	defer func() {
		if err := unlockFile(f); err != nil {
			s.logger.Warn("failed to unlock event log", "path", path, "error", err)
		}
	}()

	if err := writeLine(f, line); err != nil {
		return fmt.Errorf("%w: %s: %w", eventlog.ErrWriteFailed, path, err)
	}
	if s.sync {
		if err := f.Sync(); err != nil {
			return fmt.Errorf("%w: %s: sync: %w", eventlog.ErrWriteFailed, path, err)
		}
	}
	return nil
}

// lineFile is the part of *os.File that writeLine needs.
type lineFile interface {
	Stat() (os.FileInfo, error)
	WriteString(s string) (int, error)
	Truncate(size int64) error
}

// writeLine appends line to f. A failed or short write is cut back to the size f had
// before, so the file never ends in a partial line. Must be called with the file lock
// held.
func writeLine(f lineFile, line string) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	size := info.Size()

	n, err := f.WriteString(line)
	if err == nil && n < len(line) {
		err = io.ErrShortWrite
	}
	if err == nil {
		return nil
	}
	if n > 0 {
		if terr := f.Truncate(size); terr != nil {
			return errors.Join(err, fmt.Errorf("truncate: %w", terr))
		}
	}
	return err
}

// handle returns the open file for path, opening it on first use and when the daily
// file name changes. Must be called with s.mu held.
func (s *FileSink) handle(path string) (*os.File, error) {
	if s.file != nil && s.openPath == path {
		return s.file, nil
	}

	if s.file != nil {
		s.logger.Debug("rolling event log", "from", s.openPath, "to", path)
		if err := s.file.Close(); err != nil {
			s.logger.Warn("failed to close previous event log", "path", s.openPath, "error", err)
		}
		s.file = nil
		s.openPath = ""
	}

	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	s.file = f
	s.openPath = path
	return f, nil
}

// Close releases the destination handle. A later Process call opens it again.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil // Not open, idempotent
	}
	err := s.file.Close()
	s.file = nil
	s.openPath = ""
	return err
}

// Verify that FileSink implements the eventlog.Sink interface at compile time
var _ eventlog.Sink = (*FileSink)(nil)
