package journal

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rmacdonaldsmith/sysevents/pkg/eventlog"
)

// ErrInvalidSequence is returned when appending an event without a positive sequence number
var ErrInvalidSequence = errors.New("event sequence must be positive")

// Journal implements the eventlog.Journal interface using in-memory storage keyed by event name.
// Sequence numbers are global across all names. Record issues them under the same lock as the
// append, so assignment order is exactly recording order.
// It is safe for concurrent use.
type Journal struct {
	mu           sync.RWMutex
	eventsByName map[string][]eventlog.Event // name -> events
	lastSequence int64
	clock        func() time.Time
	closed       bool
}

// Option configures a Journal.
type Option func(*Journal)

// WithClock sets the source of event timestamps.
func WithClock(clock func() time.Time) Option {
	return func(j *Journal) {
		if clock != nil {
			j.clock = clock
		}
	}
}

// New creates a new empty journal.
func New(opts ...Option) *Journal {
	j := &Journal{
		eventsByName: make(map[string][]eventlog.Event),
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Record appends a new event under name and returns it with its sequence number and timestamp set.
func (j *Journal) Record(name string, args ...any) (eventlog.Event, error) {
	if name == "" {
		return eventlog.Event{}, eventlog.ErrEmptyEventName
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return eventlog.Event{}, eventlog.ErrJournalClosed
	}

	j.lastSequence++
	event := eventlog.NewEvent(name, args...).WithSequence(j.lastSequence)
	event.Timestamp = j.clock()

	j.eventsByName[name] = append(j.eventsByName[name], event)
	return event, nil
}

// Reserve issues the next sequence number without recording anything.
// Hosts that tag an event when it is fired but store it later use Reserve followed by Append.
func (j *Journal) Reserve() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.lastSequence++
	return j.lastSequence
}

// Append stores an event that already carries a sequence number, typically one obtained
// from Reserve. Events may be appended in any order; Flatten restores sequence order.
func (j *Journal) Append(event eventlog.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if event.Sequence <= 0 {
		return ErrInvalidSequence
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return eventlog.ErrJournalClosed
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = j.clock()
	}
	event = event.Copy()
	j.eventsByName[event.Name] = append(j.eventsByName[event.Name], event)
	if event.Sequence > j.lastSequence {
		j.lastSequence = event.Sequence
	}
	return nil
}

// Events returns a copy of the events recorded under name, in arrival order.
func (j *Journal) Events(name string) []eventlog.Event {
	j.mu.RLock()
	defer j.mu.RUnlock()

	events := j.eventsByName[name]
	out := make([]eventlog.Event, len(events))
	for i, e := range events {
		out[i] = e.Copy()
	}
	return out
}

// Names returns every event name recorded so far, sorted.
func (j *Journal) Names() []string {
	j.mu.RLock()
	defer j.mu.RUnlock()

	names := make([]string, 0, len(j.eventsByName))
	for name := range j.eventsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Flatten returns every event with a sequence greater than after, across all names,
// ordered by sequence. Per-name slices interleave with each other, and appended events
// may arrive out of sequence order, so the result is reconciled globally rather than
// name by name.
func (j *Journal) Flatten(after int64) []eventlog.Event {
	j.mu.RLock()
	var all []eventlog.Event
	for _, events := range j.eventsByName {
		for _, e := range events {
			if e.Sequence > after {
				all = append(all, e.Copy())
			}
		}
	}
	j.mu.RUnlock()

	sort.Slice(all, func(a, b int) bool {
		return all[a].Sequence < all[b].Sequence
	})
	return all
}

// LastSequence returns the highest sequence number issued so far (0 if nothing was recorded).
func (j *Journal) LastSequence() int64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastSequence
}

// Statistics returns aggregate counts about the journal.
func (j *Journal) Statistics() eventlog.JournalStatistics {
	j.mu.RLock()
	defer j.mu.RUnlock()

	stats := eventlog.JournalStatistics{
		EventCounts: make(map[string]int64, len(j.eventsByName)),
		NameCount:   len(j.eventsByName),
	}
	for name, events := range j.eventsByName {
		stats.EventCounts[name] = int64(len(events))
		stats.TotalEvents += int64(len(events))
	}
	return stats
}

// Close stops the journal from accepting new events. Recorded events stay readable.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.closed = true
	return nil
}

// Verify that Journal implements the eventlog.Journal interface at compile time
var _ eventlog.Journal = (*Journal)(nil)
