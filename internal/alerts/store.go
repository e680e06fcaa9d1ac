package alerts

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// autoDismissAfter is how long a pending alert may sit unacknowledged before
// the sweep expires it.
const autoDismissAfter = 30 * time.Minute

// StoreConfig describes the dependencies of the alert store.
type StoreConfig struct {
	Clock  func() time.Time
	Logger *zap.Logger
}

// Store keeps help alerts partitioned by classroom session identifier.
// Alerts reference a breakout room as a sub-partition but never move between
// classroom partitions.
type Store struct {
	mu          sync.RWMutex
	byClassroom map[string][]HelpAlert
	clock       func() time.Time
	logger      *zap.Logger
}

// NewStore constructs an empty alert store.
func NewStore(cfg StoreConfig) *Store {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		byClassroom: make(map[string][]HelpAlert),
		clock:       clock,
		logger:      logger,
	}
}

// Create appends the alert to its classroom partition in pending state with a
// clean acknowledgement pair, creating the partition on first write.
func (s *Store) Create(alert HelpAlert) {
	alert.Status = StatusPending
	alert.AcknowledgedBy = nil
	alert.AcknowledgedAt = nil

	s.mu.Lock()
	s.byClassroom[alert.ClassroomSessionID] = append(s.byClassroom[alert.ClassroomSessionID], alert)
	s.mu.Unlock()

	s.logger.Info("help alert created",
		zap.String("classroom_session_id", alert.ClassroomSessionID),
		zap.String("alert_id", alert.ID),
		zap.String("urgency", string(alert.Urgency)))
}

// Alerts returns the classroom's alerts matching every set predicate of the
// filter, sorted by urgency descending and then detection time descending.
// The order is recomputed on every read and never depends on insertion order.
func (s *Store) Alerts(classroomSessionID string, filter Filter) []HelpAlert {
	s.mu.RLock()
	matches := make([]HelpAlert, 0)
	for _, alert := range s.byClassroom[classroomSessionID] {
		if filter.matches(alert) {
			matches = append(matches, copyAlert(alert))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Urgency.rank() != matches[j].Urgency.rank() {
			return matches[i].Urgency.rank() > matches[j].Urgency.rank()
		}
		return matches[i].DetectedAt.After(matches[j].DetectedAt)
	})
	return matches
}

// UpdateStatus applies the requested transition to the alert with the given
// identifier, recording the acting instructor and the transition time. The
// lookup scans every classroom partition; callers do not need to know where
// the alert lives. Returns ErrAlertNotFound for unknown identifiers and
// ErrInvalidStatusTransition when the state machine forbids the change.
func (s *Store) UpdateStatus(alertID string, next Status, instructorID string) (HelpAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for classroomID, partition := range s.byClassroom {
		for index := range partition {
			if partition[index].ID != alertID {
				continue
			}
			if !partition[index].Status.CanTransitionTo(next) {
				return HelpAlert{}, ErrInvalidStatusTransition
			}
			now := s.clock().UTC()
			partition[index].Status = next
			partition[index].AcknowledgedBy = &instructorID
			partition[index].AcknowledgedAt = &now

			s.logger.Info("help alert status updated",
				zap.String("classroom_session_id", classroomID),
				zap.String("alert_id", alertID),
				zap.String("status", string(next)),
				zap.String("instructor_id", instructorID))
			return copyAlert(partition[index]), nil
		}
	}
	return HelpAlert{}, ErrAlertNotFound
}

// SweepResult reports what a sweep pass did.
type SweepResult struct {
	// Dismissed counts alerts the sweep expired.
	Dismissed int
	// Skipped counts malformed pending records the sweep refused to touch.
	Skipped int
}

// AutoDismissOld expires every pending alert older than the staleness
// threshold, recording the system actor as the acknowledging party. Alerts
// that have already left pending are never touched, so a concurrent
// instructor transition always wins. Malformed records (zero detection time)
// are skipped and counted, never an error; the sweep always completes.
func (s *Store) AutoDismissOld() SweepResult {
	now := s.clock().UTC()
	cutoff := now.Add(-autoDismissAfter)

	s.mu.Lock()
	defer s.mu.Unlock()

	var result SweepResult
	for _, partition := range s.byClassroom {
		for index := range partition {
			if partition[index].Status != StatusPending {
				continue
			}
			if partition[index].DetectedAt.IsZero() {
				result.Skipped++
				continue
			}
			if !partition[index].DetectedAt.Before(cutoff) {
				continue
			}
			actor := SystemAutoDismissActor
			dismissedAt := now
			partition[index].Status = StatusDismissed
			partition[index].AcknowledgedBy = &actor
			partition[index].AcknowledgedAt = &dismissedAt
			result.Dismissed++
		}
	}
	return result
}

// PendingCountsByUrgency reports how many pending alerts the classroom holds
// per urgency tier, plus the total.
func (s *Store) PendingCountsByUrgency(classroomSessionID string) UrgencyCounts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var counts UrgencyCounts
	for _, alert := range s.byClassroom[classroomSessionID] {
		if alert.Status != StatusPending {
			continue
		}
		switch alert.Urgency {
		case UrgencyHigh:
			counts.High++
		case UrgencyMedium:
			counts.Medium++
		case UrgencyLow:
			counts.Low++
		}
		counts.Total++
	}
	return counts
}

// ClearClassroom removes the classroom partition entirely. Clearing an absent
// classroom is a no-op.
func (s *Store) ClearClassroom(classroomSessionID string) {
	s.mu.Lock()
	delete(s.byClassroom, classroomSessionID)
	s.mu.Unlock()
}

// Size reports the total number of stored alerts across all partitions.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, partition := range s.byClassroom {
		total += len(partition)
	}
	return total
}

// PartitionKeys lists the classroom identifiers with at least one alert.
func (s *Store) PartitionKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.byClassroom))
	for classroomID := range s.byClassroom {
		keys = append(keys, classroomID)
	}
	return keys
}

// copyAlert deep-copies the slices and pointers so callers can never reach
// stored state through a query result.
func copyAlert(alert HelpAlert) HelpAlert {
	copied := alert
	if alert.TriggerKeywords != nil {
		copied.TriggerKeywords = append([]string(nil), alert.TriggerKeywords...)
	}
	if alert.SourceTranscriptIDs != nil {
		copied.SourceTranscriptIDs = append([]string(nil), alert.SourceTranscriptIDs...)
	}
	if alert.AcknowledgedBy != nil {
		actor := *alert.AcknowledgedBy
		copied.AcknowledgedBy = &actor
	}
	if alert.AcknowledgedAt != nil {
		at := *alert.AcknowledgedAt
		copied.AcknowledgedAt = &at
	}
	return copied
}
