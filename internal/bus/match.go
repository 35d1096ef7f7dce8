package bus

import "strings"

// Wildcard matches every event name.
const Wildcard = "*"

// Match reports whether an event name matches a subscription pattern.
//
// Patterns:
//   - "*" matches any event
//   - "orders.*" matches "orders.created", "orders.updated", but not "orders.item.added"
//   - "*.urgent" matches "orders.urgent", "payments.urgent"
//   - anything else must match exactly
func Match(pattern, name string) bool {
	if pattern == Wildcard || pattern == name {
		return true
	}
	if !strings.Contains(pattern, Wildcard) {
		return false
	}

	patternSegments := strings.Split(pattern, ".")
	nameSegments := strings.Split(name, ".")
	if len(patternSegments) != len(nameSegments) {
		return false
	}
	for i, segment := range patternSegments {
		if segment == Wildcard {
			if nameSegments[i] == "" {
				return false
			}
			continue
		}
		if segment != nameSegments[i] {
			return false
		}
	}
	return true
}
