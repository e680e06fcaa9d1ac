package alerts

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Urgency is the three-level priority classification on help alerts. It is
// the primary sort key for every read.
type Urgency string

const (
	// UrgencyLow marks alerts that can wait.
	UrgencyLow Urgency = "low"
	// UrgencyMedium marks alerts that deserve attention soon.
	UrgencyMedium Urgency = "medium"
	// UrgencyHigh marks alerts that need an instructor now.
	UrgencyHigh Urgency = "high"
)

// rank orders urgencies for sorting, highest first.
func (u Urgency) rank() int {
	switch u {
	case UrgencyHigh:
		return 2
	case UrgencyMedium:
		return 1
	default:
		return 0
	}
}

// Status enumerates the lifecycle states of a help alert.
type Status string

const (
	// StatusPending is the only initial state.
	StatusPending Status = "pending"
	// StatusAcknowledged means an instructor has seen the alert.
	StatusAcknowledged Status = "acknowledged"
	// StatusResolved is terminal: the instructor handled the request.
	StatusResolved Status = "resolved"
	// StatusDismissed is terminal: the alert was waved off or expired.
	StatusDismissed Status = "dismissed"
)

// SystemAutoDismissActor is recorded as the acknowledging party when the
// sweep expires a stale pending alert.
const SystemAutoDismissActor = "system-auto-dismiss"

var (
	// ErrInvalidUrgency indicates an unrecognized urgency value.
	ErrInvalidUrgency = errors.New("alerts: invalid urgency")
	// ErrInvalidStatus indicates an unrecognized status value.
	ErrInvalidStatus = errors.New("alerts: invalid status")
	// ErrInvalidStatusTransition indicates a status change the state machine
	// does not permit, including re-transitions out of a terminal state.
	ErrInvalidStatusTransition = errors.New("alerts: invalid status transition")
	// ErrAlertNotFound indicates no alert with the given identifier exists.
	ErrAlertNotFound = errors.New("alerts: alert not found")
)

// ParseUrgency validates raw input and returns an Urgency.
func ParseUrgency(rawInput string) (Urgency, error) {
	switch Urgency(strings.ToLower(strings.TrimSpace(rawInput))) {
	case UrgencyLow:
		return UrgencyLow, nil
	case UrgencyMedium:
		return UrgencyMedium, nil
	case UrgencyHigh:
		return UrgencyHigh, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidUrgency, rawInput)
	}
}

// ParseStatus validates raw input and returns a Status.
func ParseStatus(rawInput string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(rawInput))) {
	case StatusPending:
		return StatusPending, nil
	case StatusAcknowledged:
		return StatusAcknowledged, nil
	case StatusResolved:
		return StatusResolved, nil
	case StatusDismissed:
		return StatusDismissed, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, rawInput)
	}
}

// CanTransitionTo reports whether the state machine permits moving from the
// current status to next. Resolved and dismissed are terminal; re-asserting
// any state, including the current one, is rejected rather than treated as an
// idempotent no-op.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusAcknowledged || next == StatusDismissed
	case StatusAcknowledged:
		return next == StatusResolved || next == StatusDismissed
	default:
		return false
	}
}

// HelpAlert models a detected request for help inside a breakout room.
// Creation-time fields are immutable; only Status, AcknowledgedBy and
// AcknowledgedAt mutate, and only forward through the state machine.
// AcknowledgedBy and AcknowledgedAt are both nil or both set.
type HelpAlert struct {
	ID                    string
	ClassroomSessionID    string
	BreakoutRoomSessionID string
	BreakoutRoomName      string
	DetectedAt            time.Time
	Topic                 string
	Urgency               Urgency
	TriggerKeywords       []string
	ContextSnippet        string
	Status                Status
	AcknowledgedBy        *string
	AcknowledgedAt        *time.Time
	SourceTranscriptIDs   []string
}

// MaxContextSnippetLength bounds the snippet carried by an alert.
const MaxContextSnippetLength = 300

// Filter describes the optional, conjunctive predicates accepted by Alerts.
// The zero value matches everything.
type Filter struct {
	Status       Status
	Urgency      Urgency
	BreakoutRoom string
}

func (f Filter) matches(alert HelpAlert) bool {
	if f.Status != "" && alert.Status != f.Status {
		return false
	}
	if f.Urgency != "" && alert.Urgency != f.Urgency {
		return false
	}
	if f.BreakoutRoom != "" && alert.BreakoutRoomSessionID != f.BreakoutRoom {
		return false
	}
	return true
}

// UrgencyCounts breaks pending alerts out by urgency for the triage header.
type UrgencyCounts struct {
	High   int
	Medium int
	Low    int
	Total  int
}
