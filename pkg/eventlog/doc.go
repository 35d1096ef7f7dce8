// Package eventlog provides the shared types for capturing system events.
//
// This package defines the core abstractions used by every other component:
//   - Event: a named occurrence with ordered arguments, a global sequence number and a timestamp
//   - Journal: the append-only, in-memory record of every event fired by the host
//   - Sink: a destination that durably persists one event per call
//   - Host: the hosting application's event bus, as seen by the replay coordinator
//
// The interfaces use Go idioms:
//   - context.Context on every call that may touch the destination
//   - Explicit error returns wrapping the sentinels declared in errors.go
//   - Plain function types for handlers instead of listener objects
//
// Example usage:
//
//	// Record events before any sink exists
//	journal.Record("app.booting", "v1.2.3")
//	journal.Record("config.loaded", map[string]any{"env": "prod"})
//
//	// Attach a sink: history is replayed in firing order, then live events follow
//	coordinator := replay.NewCoordinator(host, sink)
//	if err := coordinator.Attach(ctx); err != nil {
//		return err
//	}
package eventlog
