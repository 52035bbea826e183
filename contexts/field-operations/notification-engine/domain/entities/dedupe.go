package entities

import "strings"

const maxDedupeKeyLength = 200

// DedupeKey derives the idempotence token for one logical occurrence. The
// segments are joined with ":" and empty segments are skipped, so the same
// (eventKey, entityType, entityID, actorID) quadruple always yields the same
// key and two quadruples differing in any non-empty segment never collide.
// Callers may pass their own key instead when the occurrence identity does
// not fit this shape.
func DedupeKey(eventKey string, entityType string, entityID string, actorID string) string {
	segments := make([]string, 0, 4)
	for _, segment := range []string{eventKey, entityType, entityID, actorID} {
		segment = strings.TrimSpace(segment)
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return strings.Join(segments, ":")
}

// ValidDedupeKey reports whether the key is usable as a uniqueness token:
// non-empty, no whitespace, bounded length.
func ValidDedupeKey(key string) bool {
	if key == "" || len(key) > maxDedupeKeyLength {
		return false
	}
	return !strings.ContainsAny(key, " \t\n\r")
}
