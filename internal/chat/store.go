package chat

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StoreConfig describes the dependencies of the chat store.
type StoreConfig struct {
	Logger *zap.Logger
}

// Store keeps chat messages partitioned by room identifier. All state is
// in-memory and reclaimed when a room or session is cleared at teardown.
type Store struct {
	mu     sync.RWMutex
	byRoom map[string][]Message
	logger *zap.Logger
}

// NewStore constructs an empty chat store.
func NewStore(cfg StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		byRoom: make(map[string][]Message),
		logger: logger,
	}
}

// SendMessage validates the message and appends it to its room partition,
// creating the partition on first write. Callers append in time order; the
// store does not re-sort.
func (s *Store) SendMessage(message Message) error {
	if err := message.validate(); err != nil {
		return err
	}
	message.Text = strings.TrimSpace(message.Text)

	s.mu.Lock()
	s.byRoom[message.RoomID] = append(s.byRoom[message.RoomID], message)
	s.mu.Unlock()

	s.logger.Debug("chat message stored",
		zap.String("room_id", message.RoomID),
		zap.String("sender_id", message.SenderID))
	return nil
}

// MessagesForRoom returns every message in the room partition in append order.
// An absent room yields an empty slice.
func (s *Store) MessagesForRoom(roomID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMessages(s.byRoom[roomID])
}

// Messages applies the filter's predicates as a conjunction over the room
// partition, preserving append order.
func (s *Store) Messages(roomID string, filter Filter) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]Message, 0)
	for _, message := range s.byRoom[roomID] {
		if filter.matches(message) {
			matches = append(matches, message)
		}
	}
	return matches
}

// MessagesSince returns messages whose timestamp is strictly after the given
// instant, preserving append order.
func (s *Store) MessagesSince(roomID string, since time.Time) []Message {
	return s.Messages(roomID, Filter{Since: since})
}

// RecentMessages returns the last limit messages of the room partition in
// append order. Partitions smaller than limit are returned whole.
func (s *Store) RecentMessages(roomID string, limit int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	partition := s.byRoom[roomID]
	if limit <= 0 || limit >= len(partition) {
		return copyMessages(partition)
	}
	return copyMessages(partition[len(partition)-limit:])
}

// AllMessagesForSession groups every message whose SessionID matches by room.
// Rooms with zero matching messages are omitted from the result.
func (s *Store) AllMessagesForSession(sessionID string) map[string][]Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grouped := make(map[string][]Message)
	for roomID, partition := range s.byRoom {
		var matches []Message
		for _, message := range partition {
			if message.SessionID == sessionID {
				matches = append(matches, message)
			}
		}
		if len(matches) > 0 {
			grouped[roomID] = matches
		}
	}
	return grouped
}

// ClearRoom removes the room partition entirely. Clearing an absent room is a
// no-op.
func (s *Store) ClearRoom(roomID string) {
	s.mu.Lock()
	delete(s.byRoom, roomID)
	s.mu.Unlock()
}

// ClearSession removes every partition containing at least one message with
// the given session identifier. Rooms are not shared across sessions, so the
// whole partition goes, not just the matching records.
func (s *Store) ClearSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for roomID, partition := range s.byRoom {
		for _, message := range partition {
			if message.SessionID == sessionID {
				delete(s.byRoom, roomID)
				break
			}
		}
	}
}

// Size reports the total number of stored messages across all partitions.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, partition := range s.byRoom {
		total += len(partition)
	}
	return total
}

// PartitionKeys lists the room identifiers with at least one message.
func (s *Store) PartitionKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.byRoom))
	for roomID := range s.byRoom {
		keys = append(keys, roomID)
	}
	return keys
}

func copyMessages(partition []Message) []Message {
	copies := make([]Message, len(partition))
	copy(copies, partition)
	return copies
}
