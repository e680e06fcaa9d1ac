package quizzes

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// StoreConfig describes the dependencies of the quiz store.
type StoreConfig struct {
	Clock  func() time.Time
	Logger *zap.Logger
}

// Store is dual-indexed: a primary map from quiz id to quiz, and a secondary
// map from session id to the ordered list of that session's quiz ids. Every
// mutation keeps the two consistent: an id listed for session S exists in the
// primary index with SessionID S, exactly once.
type Store struct {
	mu        sync.RWMutex
	byID      map[string]Quiz
	bySession map[string][]string
	clock     func() time.Time
	logger    *zap.Logger
}

// NewStore constructs an empty quiz store.
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
		byID:      make(map[string]Quiz),
		bySession: make(map[string][]string),
		clock:     clock,
		logger:    logger,
	}
}

// Save upserts the quiz into the primary index and appends its id to the
// session's ordered list only when not already present, so re-saving never
// duplicates the secondary entry. Re-saving under a different session id
// detaches the quiz from its previous session's list first.
func (s *Store) Save(quiz Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if previous, ok := s.byID[quiz.ID]; ok && previous.SessionID != quiz.SessionID {
		s.detachFromSession(previous.SessionID, quiz.ID)
	}
	s.byID[quiz.ID] = copyQuiz(quiz)

	for _, existingID := range s.bySession[quiz.SessionID] {
		if existingID == quiz.ID {
			return
		}
	}
	s.bySession[quiz.SessionID] = append(s.bySession[quiz.SessionID], quiz.ID)

	s.logger.Debug("quiz saved",
		zap.String("session_id", quiz.SessionID),
		zap.String("quiz_id", quiz.ID))
}

// Quiz returns a copy of the quiz with the given identifier.
func (s *Store) Quiz(quizID string) (Quiz, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quiz, ok := s.byID[quizID]
	if !ok {
		return Quiz{}, false
	}
	return copyQuiz(quiz), true
}

// QuizzesForSession returns the session's quizzes in save order.
func (s *Store) QuizzesForSession(sessionID string) []Quiz {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.bySession[sessionID]
	result := make([]Quiz, 0, len(ids))
	for _, quizID := range ids {
		if quiz, ok := s.byID[quizID]; ok {
			result = append(result, copyQuiz(quiz))
		}
	}
	return result
}

// Update merges the set fields of the partial update into the stored quiz and
// refreshes LastModified unconditionally. A missing quiz yields (Quiz{},
// false) rather than an error; callers turn that into their own not-found
// response.
func (s *Store) Update(quizID string, update Update) (Quiz, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quiz, ok := s.byID[quizID]
	if !ok {
		return Quiz{}, false
	}

	if update.Title != nil {
		quiz.Title = *update.Title
	}
	if update.Status != nil {
		quiz.Status = *update.Status
	}
	if update.Questions != nil {
		quiz.Questions = copyQuestions(update.Questions)
	}
	quiz.LastModified = s.clock().UTC()
	s.byID[quizID] = quiz

	return copyQuiz(quiz), true
}

// Delete removes the quiz from both indexes. Returns false when no such quiz
// exists.
func (s *Store) Delete(quizID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	quiz, ok := s.byID[quizID]
	if !ok {
		return false
	}
	delete(s.byID, quizID)
	s.detachFromSession(quiz.SessionID, quizID)
	return true
}

// detachFromSession removes the quiz id from the session's ordered list,
// dropping the session key when the list empties. Callers hold the write
// lock.
func (s *Store) detachFromSession(sessionID, quizID string) {
	ids := s.bySession[sessionID]
	remaining := make([]string, 0, len(ids))
	for _, existingID := range ids {
		if existingID != quizID {
			remaining = append(remaining, existingID)
		}
	}
	if len(remaining) == 0 {
		delete(s.bySession, sessionID)
	} else {
		s.bySession[sessionID] = remaining
	}
}

// ClearSession deletes every quiz in the session's list from the primary
// index and then removes the session key entirely, so a torn-down session is
// indistinguishable from one that never had quizzes.
func (s *Store) ClearSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, quizID := range s.bySession[sessionID] {
		delete(s.byID, quizID)
	}
	delete(s.bySession, sessionID)
}

// Size reports the number of stored quizzes.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// PartitionKeys lists the session identifiers with at least one quiz.
func (s *Store) PartitionKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.bySession))
	for sessionID := range s.bySession {
		keys = append(keys, sessionID)
	}
	return keys
}

func copyQuiz(quiz Quiz) Quiz {
	copied := quiz
	if quiz.SourceTranscriptIDs != nil {
		copied.SourceTranscriptIDs = append([]string(nil), quiz.SourceTranscriptIDs...)
	}
	copied.Questions = copyQuestions(quiz.Questions)
	return copied
}

func copyQuestions(questions []Question) []Question {
	if questions == nil {
		return nil
	}
	copies := make([]Question, len(questions))
	for index, question := range questions {
		copies[index] = question
		if question.Options != nil {
			copies[index].Options = append([]string(nil), question.Options...)
		}
		if question.SourceTranscriptIDs != nil {
			copies[index].SourceTranscriptIDs = append([]string(nil), question.SourceTranscriptIDs...)
		}
	}
	return copies
}
