// Package replay attaches a sink to a host's event bus after events have already been
// fired.
//
// Attach feeds the journal to the sink in sequence order and then forwards every later
// event as it is fired. The hand-off between the two phases is exactly-once: the journal
// snapshot and the wildcard subscription are taken together inside Host.Exclusive, and
// events that arrive while the snapshot is still being written are buffered and written
// right after it.
package replay

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/rmacdonaldsmith/sysevents/internal/metrics"
	"github.com/rmacdonaldsmith/sysevents/pkg/eventlog"
)

type state int

const (
	stateDetached state = iota
	stateReplaying
	stateLive
)

// ReplayError reports the event a sink refused while attaching.
type ReplayError struct {
	Event eventlog.Event
	Err   error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay of event %d (%s) failed: %v", e.Event.Sequence, e.Event.Name, e.Err)
}

func (e *ReplayError) Unwrap() error {
	return e.Err
}

// Coordinator moves events from a host into a sink.
// It is safe for concurrent use.
type Coordinator struct {
	host    eventlog.Host
	sink    eventlog.Sink
	logger  *slog.Logger
	metrics *metrics.Metrics

	// attachMu serializes Attach and Detach
	attachMu sync.Mutex

	mu          sync.Mutex
	state       state
	generation  uint64
	pending     []eventlog.Event
	unsubscribe func()

	// cursor is the highest sequence at or below which every event has been
	// written; written holds the sequences above it that have been written too.
	cursor  int64
	written map[int64]struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger used for replay progress and failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the instruments updated while replaying.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewCoordinator creates a detached coordinator for host and sink.
func NewCoordinator(host eventlog.Host, sink eventlog.Sink, opts ...Option) *Coordinator {
	c := &Coordinator{
		host:    host,
		sink:    sink,
		logger:  slog.Default(),
		metrics: metrics.Default(),
		written: make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Attach writes every journaled event the sink has not accepted yet, then forwards live
// events until Detach. On failure the coordinator is left detached and remembers which
// events were written, so calling Attach again resumes without duplicates.
func (c *Coordinator) Attach(ctx context.Context) error {
	c.attachMu.Lock()
	defer c.attachMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state != stateDetached {
		c.mu.Unlock()
		return eventlog.ErrAlreadyAttached
	}
	c.generation++
	gen := c.generation
	c.state = stateReplaying
	c.pending = nil
	from := c.cursor
	c.mu.Unlock()

	var journaled []eventlog.Event
	var unsubscribe func()
	c.host.Exclusive(func() {
		journaled = c.host.Journal().Flatten(from)
		unsubscribe = c.host.OnAny(c.handler(gen))
	})

	c.mu.Lock()
	c.unsubscribe = unsubscribe
	snapshot := make([]eventlog.Event, 0, len(journaled))
	for _, event := range journaled {
		if _, ok := c.written[event.Sequence]; !ok {
			snapshot = append(snapshot, event)
		}
	}
	c.mu.Unlock()

	c.logger.Info("replaying event journal", "events", len(snapshot), "after_sequence", from)

	for _, event := range snapshot {
		if err := c.write(ctx, event); err != nil {
			c.abort(event, err)
			return &ReplayError{Event: event, Err: err}
		}
	}
	c.metrics.Replayed(ctx, len(snapshot), metrics.PhaseReplay)

	// Live events wait on mu while the buffer drains, then see stateLive.
	c.mu.Lock()
	buffered := c.pending
	c.pending = nil
	sort.Slice(buffered, func(i, j int) bool {
		return buffered[i].Sequence < buffered[j].Sequence
	})
	for _, event := range buffered {
		if err := c.writeLocked(ctx, event); err != nil {
			c.mu.Unlock()
			c.abort(event, err)
			return &ReplayError{Event: event, Err: err}
		}
	}
	c.state = stateLive
	cursor := c.cursor
	c.mu.Unlock()

	c.metrics.Replayed(ctx, len(buffered), metrics.PhaseHandoff)
	c.logger.Info("event sink attached", "replayed", len(snapshot), "buffered", len(buffered), "cursor", cursor)
	return nil
}

// Detach stops forwarding. Events fired while detached, and live events the sink
// refused, stay in the journal and are replayed by the next Attach.
func (c *Coordinator) Detach() {
	c.attachMu.Lock()
	defer c.attachMu.Unlock()

	c.mu.Lock()
	unsubscribe := c.reset()
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
		c.logger.Info("event sink detached", "cursor", c.Cursor())
	}
}

// Cursor returns the highest sequence at or below which the sink has accepted every
// event. Sequences reserved but never stored hold it back.
func (c *Coordinator) Cursor() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Attached reports whether live events are being forwarded.
func (c *Coordinator) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateLive
}

// handler returns the wildcard handler for one attach generation. Handlers from an
// earlier generation ignore every event.
func (c *Coordinator) handler(gen uint64) eventlog.Handler {
	return func(ctx context.Context, event eventlog.Event) error {
		c.mu.Lock()
		if c.generation != gen {
			c.mu.Unlock()
			return nil
		}
		switch c.state {
		case stateReplaying:
			c.pending = append(c.pending, event.Copy())
			c.mu.Unlock()
			return nil
		case stateLive:
			c.mu.Unlock()
		default:
			c.mu.Unlock()
			return nil
		}

		if err := c.write(ctx, event); err != nil {
			c.logger.Error("failed to forward event", "event", event.Name, "sequence", event.Sequence, "error", err)
			return err
		}
		return nil
	}
}

func (c *Coordinator) write(ctx context.Context, event eventlog.Event) error {
	if err := c.sink.Process(ctx, event); err != nil {
		return err
	}
	c.mu.Lock()
	c.advance(event.Sequence)
	c.mu.Unlock()
	return nil
}

// writeLocked is write for callers holding mu.
func (c *Coordinator) writeLocked(ctx context.Context, event eventlog.Event) error {
	if err := c.sink.Process(ctx, event); err != nil {
		return err
	}
	c.advance(event.Sequence)
	return nil
}

func (c *Coordinator) advance(seq int64) {
	if seq <= c.cursor {
		return
	}
	c.written[seq] = struct{}{}
	for {
		if _, ok := c.written[c.cursor+1]; !ok {
			return
		}
		delete(c.written, c.cursor+1)
		c.cursor++
	}
}

func (c *Coordinator) abort(event eventlog.Event, err error) {
	c.mu.Lock()
	unsubscribe := c.reset()
	cursor := c.cursor
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	c.logger.Error("event replay failed",
		"event", event.Name,
		"sequence", event.Sequence,
		"cursor", cursor,
		"error", err)
}

// reset returns the coordinator to detached and hands back the subscription to remove.
// Must be called with mu held.
func (c *Coordinator) reset() func() {
	c.generation++
	c.state = stateDetached
	c.pending = nil
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	return unsubscribe
}
