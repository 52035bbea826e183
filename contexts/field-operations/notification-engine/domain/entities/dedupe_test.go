package entities

import (
	"strings"
	"testing"
)

func TestDedupeKeySkipsEmptySegments(t *testing.T) {
	key := DedupeKey(EventTaskCommentCreated, "", "comment_42", "")
	if key != "TASK_COMMENT_CREATED:comment_42" {
		t.Fatalf("expected empty segments to be skipped, got %q", key)
	}
}

func TestDedupeKeyIsStableForTheSameOccurrence(t *testing.T) {
	first := DedupeKey(EventTaskStatusChanged, "task_001", "done", "usr_alex")
	second := DedupeKey(EventTaskStatusChanged, " task_001 ", "done", "usr_alex")
	if first != second {
		t.Fatalf("expected whitespace-insensitive stability, got %q and %q", first, second)
	}
	if first != "TASK_STATUS_CHANGED:task_001:done:usr_alex" {
		t.Fatalf("unexpected key shape: %q", first)
	}
}

func TestDedupeKeyDistinguishesOccurrences(t *testing.T) {
	toDone := DedupeKey(EventTaskStatusChanged, "task_001", "done", "usr_alex")
	toBlocked := DedupeKey(EventTaskStatusChanged, "task_001", "blocked", "usr_alex")
	if toDone == toBlocked {
		t.Fatalf("expected distinct keys for distinct statuses, got %q twice", toDone)
	}
}

func TestValidDedupeKey(t *testing.T) {
	if !ValidDedupeKey("TASK_ASSIGNED:task_001") {
		t.Fatal("expected plain key to be valid")
	}
	if ValidDedupeKey("") {
		t.Fatal("expected empty key to be invalid")
	}
	if ValidDedupeKey("has space") {
		t.Fatal("expected whitespace key to be invalid")
	}
	if ValidDedupeKey(strings.Repeat("x", 201)) {
		t.Fatal("expected oversized key to be invalid")
	}
}

func TestMetadataResponsibilitiesRoundTrip(t *testing.T) {
	metadata := Metadata{}.WithResponsibilities([]ResponsibilityKind{KindObserver, KindMention})
	kinds := metadata.Responsibilities()
	if len(kinds) != 2 || kinds[0] != KindMention || kinds[1] != KindObserver {
		t.Fatalf("expected priority-ordered kinds, got %v", kinds)
	}
}

func TestMetadataCloneDoesNotAliasTheOriginal(t *testing.T) {
	original := Metadata{}.WithTargetPath("/tasks/task_001")
	clone := original.Clone().WithSector("support")

	if _, ok := original.Sector(); ok {
		t.Fatal("expected the original metadata to be untouched")
	}
	if sector, _ := clone.Sector(); sector != "support" {
		t.Fatalf("expected clone sector, got %q", sector)
	}
}
