package eventlog

import (
	"context"
	"io"
)

// Sink durably persists events, one per call.
type Sink interface {
	// Process formats and appends a single event to the destination.
	// It returns an error wrapping ErrWriteFailed when the destination refuses the data.
	Process(ctx context.Context, event Event) error
}

// SinkFunc adapts an ordinary function to the Sink interface.
type SinkFunc func(ctx context.Context, event Event) error

// Process calls f(ctx, event).
func (f SinkFunc) Process(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Handler receives events dispatched by the host's event bus.
type Handler func(ctx context.Context, event Event) error

// Journal is the append-only record of every event fired in the process.
// Each event name keeps its own arrival order; sequence numbers are global.
type Journal interface {
	io.Closer

	// Record appends a new event under name, assigning the next sequence number.
	Record(name string, args ...any) (Event, error)

	// Reserve issues the next sequence number without recording anything.
	Reserve() int64

	// Append stores an event that already carries a sequence number from Reserve.
	Append(event Event) error

	// Events returns a copy of the events recorded under name, in arrival order.
	Events(name string) []Event

	// Flatten returns every event with a sequence greater than after,
	// across all names, in ascending sequence order.
	Flatten(after int64) []Event

	// LastSequence returns the highest sequence number issued so far.
	LastSequence() int64

	// Statistics returns aggregate counts about the journal.
	Statistics() JournalStatistics
}

// Host is the hosting application's event bus as seen by the replay coordinator.
type Host interface {
	// Journal returns the recorder that captures every fired event.
	Journal() Journal

	// OnAny registers h for every event fired after registration.
	// The returned function removes the registration.
	OnAny(h Handler) (unsubscribe func())

	// Exclusive runs fn while no event can be recorded or dispatched to new handlers.
	Exclusive(fn func())
}

// JournalStatistics provides aggregate statistics about a journal
type JournalStatistics struct {
	TotalEvents int64            // Total number of events across all names
	EventCounts map[string]int64 // Number of events per name
	NameCount   int              // Number of distinct names
}
