// Package bus is an in-process event bus that journals every fired event.
//
// Every call to Fire is recorded into the journal first and then dispatched to the
// handlers whose pattern matches the event name. The bus implements eventlog.Host, so a
// replay coordinator can attach a sink after events have already been fired.
package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rmacdonaldsmith/sysevents/internal/journal"
	"github.com/rmacdonaldsmith/sysevents/internal/metrics"
	"github.com/rmacdonaldsmith/sysevents/pkg/eventlog"
)

// ErrNilHandler is returned when subscribing a nil handler
var ErrNilHandler = errors.New("handler cannot be nil")

type subscription struct {
	id      uint64
	pattern string
	handler eventlog.Handler
}

// Bus dispatches fired events to subscribed handlers in registration order.
// It is safe for concurrent use.
type Bus struct {
	// fireMu is held shared while an event is recorded and its handlers are selected,
	// and exclusively by Exclusive.
	fireMu sync.RWMutex

	subsMu sync.Mutex
	subs   []subscription
	nextID uint64

	journal eventlog.Journal
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Bus.
type Option func(*Bus)

// WithJournal sets the journal events are recorded into.
func WithJournal(j eventlog.Journal) Option {
	return func(b *Bus) {
		if j != nil {
			b.journal = j
		}
	}
}

// WithLogger sets the logger used for dispatch failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics sets the instruments updated for every fired event. Without it the bus
// uses metrics.Default.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bus) {
		if m != nil {
			b.metrics = m
		}
	}
}

// New creates a bus backed by a new in-memory journal unless WithJournal is given.
func New(opts ...Option) *Bus {
	b := &Bus{
		logger:  slog.Default(),
		metrics: metrics.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.journal == nil {
		b.journal = journal.New()
	}
	return b
}

// Journal returns the journal every fired event is recorded into.
func (b *Bus) Journal() eventlog.Journal {
	return b.journal
}

// Fire records an event and delivers it to every matching handler on the calling
// goroutine. Handler errors do not stop delivery to the remaining handlers; they are
// joined and returned to the caller.
func (b *Bus) Fire(ctx context.Context, name string, args ...any) error {
	if name == "" {
		return eventlog.ErrEmptyEventName
	}

	b.fireMu.RLock()
	event, err := b.journal.Record(name, args...)
	if err != nil {
		b.fireMu.RUnlock()
		return fmt.Errorf("failed to record event %s: %w", name, err)
	}
	handlers := b.matching(name)
	b.fireMu.RUnlock()

	return b.dispatch(ctx, event, handlers)
}

// FireReserved stores an event whose sequence was taken earlier from
// Journal().Reserve and delivers it like Fire. Hosts that tag events when they
// happen but hand them over later use it instead of appending to the journal
// directly, so attached handlers still see the event.
func (b *Bus) FireReserved(ctx context.Context, event eventlog.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	b.fireMu.RLock()
	if err := b.journal.Append(event); err != nil {
		b.fireMu.RUnlock()
		return fmt.Errorf("failed to record event %s: %w", event.Name, err)
	}
	handlers := b.matching(event.Name)
	b.fireMu.RUnlock()

	return b.dispatch(ctx, event.Copy(), handlers)
}

func (b *Bus) dispatch(ctx context.Context, event eventlog.Event, handlers []eventlog.Handler) error {
	b.metrics.Recorded(ctx, event.Name)

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			b.logger.Error("event handler failed", "event", event.Name, "sequence", event.Sequence, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// On registers h for events matching pattern. The returned function removes the
// registration and is safe to call more than once.
func (b *Bus) On(pattern string, h eventlog.Handler) (unsubscribe func(), err error) {
	if pattern == "" {
		return nil, fmt.Errorf("pattern cannot be empty")
	}
	if h == nil {
		return nil, ErrNilHandler
	}

	b.subsMu.Lock()
	defer b.subsMu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, pattern: pattern, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}, nil
}

// OnAny registers h for every event fired after registration.
func (b *Bus) OnAny(h eventlog.Handler) (unsubscribe func()) {
	unsubscribe, err := b.On(Wildcard, h)
	if err != nil {
		// only a nil handler can fail here
		return func() {}
	}
	return unsubscribe
}

// Exclusive runs fn while no event is being recorded. Handlers registered inside fn
// receive exactly the events recorded after the journal state fn observed.
func (b *Bus) Exclusive(fn func()) {
	b.fireMu.Lock()
	defer b.fireMu.Unlock()
	fn()
}

// SubscriptionCount returns the number of registered handlers.
func (b *Bus) SubscriptionCount() int {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	return len(b.subs)
}

func (b *Bus) matching(name string) []eventlog.Handler {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()

	var handlers []eventlog.Handler
	for _, sub := range b.subs {
		if Match(sub.pattern, name) {
			handlers = append(handlers, sub.handler)
		}
	}
	return handlers
}

func (b *Bus) remove(id uint64) {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()

	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Verify that Bus implements the eventlog.Host interface at compile time
var _ eventlog.Host = (*Bus)(nil)
