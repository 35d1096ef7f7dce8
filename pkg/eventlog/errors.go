package eventlog

import "errors"

var (
	// ErrEmptyEventName is returned when an event is fired or recorded without a name
	ErrEmptyEventName = errors.New("event name cannot be empty")
	// ErrJournalClosed is returned when recording into a closed journal
	ErrJournalClosed = errors.New("journal is closed")
	// ErrWriteFailed is returned when a sink destination cannot accept data
	ErrWriteFailed = errors.New("unable to write to log file")
	// ErrCreateDirectory is returned when the destination directory cannot be created
	ErrCreateDirectory = errors.New("unable to create log directory")
	// ErrAlreadyAttached is returned when a coordinator is attached twice
	ErrAlreadyAttached = errors.New("sink is already attached")
)
