// Package journal records every event fired in the process before (and after) a sink is attached.
//
// The journal is keyed by event name and grows for the lifetime of the process; nothing is
// evicted. Replay consumers read it through Flatten, which merges all names back into
// global firing order.
package journal
