package transcripts

import (
	"testing"
	"time"
)

func testEntry(id, sessionID string, role SpeakerRole, confidence float64, at time.Time) Entry {
	return Entry{
		ID:          id,
		SessionID:   sessionID,
		SpeakerID:   "speaker-" + id,
		SpeakerName: "Speaker " + id,
		SpeakerRole: role,
		Text:        "utterance " + id,
		Timestamp:   at,
		Confidence:  confidence,
	}
}

func TestEntriesRoleFilterPartitionsWithoutLossOrOverlap(t *testing.T) {
	store := NewStore(StoreConfig{})
	base := time.Unix(1700000000, 0).UTC()
	store.Add(testEntry("e1", "session-1", RoleInstructor, 0.9, base))
	store.Add(testEntry("e2", "session-1", RoleStudent, 0.8, base.Add(time.Second)))
	store.Add(testEntry("e3", "session-1", RoleInstructor, 0.7, base.Add(2*time.Second)))
	store.Add(testEntry("e4", "session-1", RoleStudent, 0.6, base.Add(3*time.Second)))

	instructorOnly := store.Entries("session-1", Filter{Role: RoleInstructor})
	studentOnly := store.Entries("session-1", Filter{Role: RoleStudent})
	unfiltered := store.Entries("session-1", Filter{})

	for _, entry := range instructorOnly {
		if entry.SpeakerRole != RoleInstructor {
			t.Fatalf("instructor filter returned %s entry %s", entry.SpeakerRole, entry.ID)
		}
	}
	if len(instructorOnly)+len(studentOnly) != len(unfiltered) {
		t.Fatalf("role partitions must cover the unfiltered result: %d + %d != %d",
			len(instructorOnly), len(studentOnly), len(unfiltered))
	}
	seen := make(map[string]bool)
	for _, entry := range append(instructorOnly, studentOnly...) {
		if seen[entry.ID] {
			t.Fatalf("entry %s appears in both role partitions", entry.ID)
		}
		seen[entry.ID] = true
	}
}

func TestEntriesCombinesFiltersConjunctively(t *testing.T) {
	store := NewStore(StoreConfig{})
	base := time.Unix(1700000000, 0).UTC()
	store.Add(testEntry("e1", "session-1", RoleInstructor, 0.95, base))
	store.Add(testEntry("e2", "session-1", RoleInstructor, 0.40, base.Add(time.Second)))
	store.Add(testEntry("e3", "session-1", RoleStudent, 0.99, base.Add(2*time.Second)))
	store.Add(testEntry("e4", "session-1", RoleInstructor, 0.80, base.Add(3*time.Second)))

	minConfidence := 0.75
	matches := store.Entries("session-1", Filter{
		Since:         base,
		Role:          RoleInstructor,
		MinConfidence: &minConfidence,
	})

	if len(matches) != 1 || matches[0].ID != "e4" {
		t.Fatalf("expected only e4 to satisfy all predicates, got %#v", matches)
	}
}

func TestEntriesMinConfidenceIsInclusive(t *testing.T) {
	store := NewStore(StoreConfig{})
	store.Add(testEntry("e1", "session-1", RoleStudent, 0.75, time.Now()))

	minConfidence := 0.75
	matches := store.Entries("session-1", Filter{MinConfidence: &minConfidence})
	if len(matches) != 1 {
		t.Fatalf("confidence equal to the bound must match, got %d entries", len(matches))
	}
}

func TestEntriesByIDsSpansPartitions(t *testing.T) {
	store := NewStore(StoreConfig{})
	now := time.Now()
	store.Add(testEntry("e1", "session-1", RoleStudent, 0.9, now))
	store.Add(testEntry("e2", "session-2", RoleStudent, 0.9, now))
	store.Add(testEntry("e3", "session-2", RoleInstructor, 0.9, now))

	matches := store.EntriesByIDs([]string{"e1", "e3", "missing"})
	if len(matches) != 2 {
		t.Fatalf("expected two matches, got %d", len(matches))
	}
	found := make(map[string]bool)
	for _, entry := range matches {
		if found[entry.ID] {
			t.Fatalf("duplicate entry %s in id lookup", entry.ID)
		}
		found[entry.ID] = true
	}
	if !found["e1"] || !found["e3"] {
		t.Fatalf("unexpected id set: %v", found)
	}
}

func TestClearSessionLeavesOtherPartitionsIntact(t *testing.T) {
	store := NewStore(StoreConfig{})
	now := time.Now()
	store.Add(testEntry("e1", "session-1", RoleStudent, 0.9, now))
	store.Add(testEntry("e2", "session-2", RoleStudent, 0.9, now))

	store.ClearSession("session-1")
	store.ClearSession("absent-session")

	if len(store.Entries("session-1", Filter{})) != 0 {
		t.Fatalf("cleared partition should be empty")
	}
	if len(store.Entries("session-2", Filter{})) != 1 {
		t.Fatalf("other partitions must survive a clear")
	}
	if store.Size() != 1 {
		t.Fatalf("expected size 1, got %d", store.Size())
	}
}
