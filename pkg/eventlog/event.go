package eventlog

import (
	"fmt"
	"time"
)

// Event represents a single fired event.
type Event struct {
	// Name identifies the event, e.g. "app.booted"
	Name string

	// Args are the positional values the event was fired with (immutable after creation)
	Args []any

	// Sequence is the global, monotonically increasing position of this event.
	// It is zero until the event has been recorded.
	Sequence int64

	// Timestamp is when this event was fired
	Timestamp time.Time
}

// NewEvent creates a new Event with the given name and arguments.
// The argument slice is copied so later mutation by the caller is not observed.
func NewEvent(name string, args ...any) Event {
	return Event{
		Name:      name,
		Args:      copyArgs(args),
		Timestamp: time.Now(),
	}
}

// WithSequence returns a copy of the event carrying the given sequence number.
// This is used by the journal when storing events.
func (e Event) WithSequence(seq int64) Event {
	e.Sequence = seq
	return e
}

// Copy returns a copy of the Event with its own argument slice.
func (e Event) Copy() Event {
	e.Args = copyArgs(e.Args)
	return e
}

// Validate reports whether the event can be recorded.
func (e Event) Validate() error {
	if e.Name == "" {
		return ErrEmptyEventName
	}
	return nil
}

// String renders the event for diagnostics.
func (e Event) String() string {
	return fmt.Sprintf("#%d %s %v", e.Sequence, e.Name, e.Args)
}

func copyArgs(args []any) []any {
	if len(args) == 0 {
		return []any{}
	}
	out := make([]any, len(args))
	copy(out, args)
	return out
}
