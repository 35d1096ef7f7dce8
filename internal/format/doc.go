// Package format renders events into log lines.
//
// A Template holds the line layout and the user-supplied placeholder table. Three
// built-in tokens are always available:
//
//	{{timestamp}}  the event time as YYYY-MM-DD HH:MM:SS
//	{{eventName}}  the event name
//	{{args}}       the arguments as a compact JSON array
//
// User placeholders are merged over the built-ins, so a user token named like a
// built-in replaces it. Substitution is a single pass: replacement values are never
// scanned for further tokens, and tokens without a value are left as they are.
package format
