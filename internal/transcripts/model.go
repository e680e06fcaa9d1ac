package transcripts

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SpeakerRole enumerates who produced a transcript entry.
type SpeakerRole string

const (
	// RoleInstructor marks entries spoken by the session instructor.
	RoleInstructor SpeakerRole = "instructor"
	// RoleStudent marks entries spoken by a student participant.
	RoleStudent SpeakerRole = "student"
)

// ErrInvalidRole indicates an unrecognized speaker role.
var ErrInvalidRole = errors.New("transcripts: invalid speaker role")

// ParseRole validates raw input and returns a SpeakerRole.
func ParseRole(rawInput string) (SpeakerRole, error) {
	switch SpeakerRole(strings.ToLower(strings.TrimSpace(rawInput))) {
	case RoleInstructor:
		return RoleInstructor, nil
	case RoleStudent:
		return RoleStudent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, rawInput)
	}
}

// Entry models one recognized utterance. Entries are immutable once appended;
// Confidence carries the recognizer's certainty and is only ever used as a
// filter predicate.
type Entry struct {
	ID               string
	SessionID        string
	SpeakerID        string
	SpeakerName      string
	SpeakerRole      SpeakerRole
	Text             string
	Timestamp        time.Time
	Confidence       float64
	BreakoutRoomName string
}

// Filter describes the optional, conjunctive predicates accepted by Entries.
// The zero value matches everything.
type Filter struct {
	// Since keeps entries whose timestamp is strictly after the instant.
	Since time.Time
	// Role keeps entries spoken by the given role when non-empty.
	Role SpeakerRole
	// MinConfidence keeps entries whose confidence is at least the bound
	// (inclusive) when set.
	MinConfidence *float64
}

func (f Filter) matches(entry Entry) bool {
	if !f.Since.IsZero() && !entry.Timestamp.After(f.Since) {
		return false
	}
	if f.Role != "" && entry.SpeakerRole != f.Role {
		return false
	}
	if f.MinConfidence != nil && entry.Confidence < *f.MinConfidence {
		return false
	}
	return true
}
