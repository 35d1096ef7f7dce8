// Package systemevents wires the file sink to a host's event bus.
//
// Boot follows the order a host application starts in: build the sink (which creates the
// log directory), then replay everything the journal captured so far, then keep
// forwarding events as they are fired.
package systemevents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rmacdonaldsmith/sysevents/internal/config"
	"github.com/rmacdonaldsmith/sysevents/internal/filesink"
	"github.com/rmacdonaldsmith/sysevents/internal/metrics"
	"github.com/rmacdonaldsmith/sysevents/internal/replay"
	"github.com/rmacdonaldsmith/sysevents/pkg/eventlog"
)

// System is a booted event log: a file sink attached to a host.
type System struct {
	Sink        *filesink.FileSink
	Coordinator *replay.Coordinator

	logger *slog.Logger
}

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures Boot.
type Option func(*options)

// WithLogger sets the logger handed to the sink and the coordinator.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the instruments handed to the sink and the coordinator.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// Boot builds a sink from cfg and attaches it to host.
//
// A sink that cannot be built (for example because the log directory cannot be
// created) returns a nil System. A replay failure returns the detached System together
// with the *replay.ReplayError, so the caller can retry with System.Coordinator.Attach.
func Boot(ctx context.Context, host eventlog.Host, cfg *filesink.Config, opts ...Option) (*System, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	sink, err := filesink.New(cfg, filesink.WithLogger(o.logger), filesink.WithMetrics(o.metrics))
	if err != nil {
		return nil, fmt.Errorf("failed to create event log sink: %w", err)
	}

	sys := &System{
		Sink:        sink,
		Coordinator: replay.NewCoordinator(host, sink, replay.WithLogger(o.logger), replay.WithMetrics(o.metrics)),
		logger:      o.logger,
	}

	if err := sys.Coordinator.Attach(ctx); err != nil {
		return sys, err
	}

	o.logger.Info("system event log booted", "path", sink.Path())
	return sys, nil
}

// BootFromEnv is Boot with the configuration read from LOG_FILE_PATH,
// CUSTOM_LOG_TEMPLATE and CUSTOM_LOG_PLACEHOLDERS.
func BootFromEnv(ctx context.Context, host eventlog.Host, opts ...Option) (*System, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	cfg, err := config.FromEnv(o.logger)
	if err != nil {
		return nil, err
	}
	return Boot(ctx, host, cfg, opts...)
}

// Close detaches from the host and closes the log file.
func (s *System) Close() error {
	s.Coordinator.Detach()
	if err := s.Sink.Close(); err != nil {
		return fmt.Errorf("failed to close event log: %w", err)
	}
	s.logger.Debug("system event log closed", "cursor", s.Coordinator.Cursor())
	return nil
}
