package transcripts

import (
	"sync"

	"go.uber.org/zap"
)

// StoreConfig describes the dependencies of the transcript store.
type StoreConfig struct {
	Logger *zap.Logger
}

// Store keeps transcript entries partitioned by classroom session identifier.
type Store struct {
	mu        sync.RWMutex
	bySession map[string][]Entry
	logger    *zap.Logger
}

// NewStore constructs an empty transcript store.
func NewStore(cfg StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		bySession: make(map[string][]Entry),
		logger:    logger,
	}
}

// Add appends the entry to its session partition, creating the partition on
// first write. The capture collaborator delivers entries already formed and in
// time order.
func (s *Store) Add(entry Entry) {
	s.mu.Lock()
	s.bySession[entry.SessionID] = append(s.bySession[entry.SessionID], entry)
	s.mu.Unlock()

	s.logger.Debug("transcript entry stored",
		zap.String("session_id", entry.SessionID),
		zap.String("speaker_id", entry.SpeakerID))
}

// Entries returns the session's entries matching every set predicate of the
// filter, in append order. An absent session yields an empty slice.
func (s *Store) Entries(sessionID string, filter Filter) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]Entry, 0)
	for _, entry := range s.bySession[sessionID] {
		if filter.matches(entry) {
			matches = append(matches, entry)
		}
	}
	return matches
}

// EntriesByIDs resolves entries by identifier across every partition. The
// result carries all matches exactly once in no guaranteed order. The lookup
// scans O(partitions × partition size); at the working scale (thousands of
// entries per session) a secondary id index is not worth its bookkeeping.
func (s *Store) EntriesByIDs(ids []string) []Entry {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]Entry, 0, len(wanted))
	for _, partition := range s.bySession {
		for _, entry := range partition {
			if _, ok := wanted[entry.ID]; ok {
				matches = append(matches, entry)
				delete(wanted, entry.ID)
			}
		}
	}
	return matches
}

// ClearSession removes the session partition entirely. Clearing an absent
// session is a no-op.
func (s *Store) ClearSession(sessionID string) {
	s.mu.Lock()
	delete(s.bySession, sessionID)
	s.mu.Unlock()
}

// Size reports the total number of stored entries across all partitions.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, partition := range s.bySession {
		total += len(partition)
	}
	return total
}

// PartitionKeys lists the session identifiers with at least one entry.
func (s *Store) PartitionKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.bySession))
	for sessionID := range s.bySession {
		keys = append(keys, sessionID)
	}
	return keys
}
