package archive

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chalklinehq/chalkline/backend/internal/chat"
	"github.com/chalklinehq/chalkline/backend/internal/quizzes"
)

var errMissingDatabase = errors.New("archive: database handle is required")

// ServiceConfig describes the dependencies of the archive service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service persists a session's chat and quizzes before the in-memory stores
// are cleared at teardown.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService constructs the archive service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:     cfg.Database,
		clock:  clock,
		logger: logger,
	}, nil
}

// SessionSnapshot is what teardown hands over for archival.
type SessionSnapshot struct {
	SessionID      string
	MessagesByRoom map[string][]chat.Message
	Quizzes        []quizzes.Quiz
}

// ArchiveSession writes the snapshot inside a single transaction. Re-running
// for the same session upserts rather than failing, so a teardown retry is
// harmless.
func (s *Service) ArchiveSession(ctx context.Context, snapshot SessionSnapshot) error {
	archivedAt := s.clock().UTC().Unix()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for roomID, messages := range snapshot.MessagesByRoom {
			for _, message := range messages {
				row := ArchivedMessage{
					MessageID:        message.ID,
					SessionID:        snapshot.SessionID,
					RoomID:           roomID,
					SenderID:         message.SenderID,
					SenderName:       message.SenderName,
					SenderRole:       string(message.Role),
					Text:             message.Text,
					SentAtSeconds:    message.Timestamp.UTC().Unix(),
					ArchivedAtSecond: archivedAt,
				}
				if err := tx.Save(&row).Error; err != nil {
					return err
				}
			}
		}
		for _, quiz := range snapshot.Quizzes {
			questionsJSON, err := json.Marshal(quiz.Questions)
			if err != nil {
				return err
			}
			row := ArchivedQuiz{
				QuizID:           quiz.ID,
				SessionID:        snapshot.SessionID,
				CreatedBy:        quiz.CreatedBy,
				CreatedByName:    quiz.CreatedByName,
				Title:            quiz.Title,
				Status:           string(quiz.Status),
				QuestionsJSON:    string(questionsJSON),
				CreatedAtSeconds: quiz.CreatedAt.UTC().Unix(),
				ArchivedAtSecond: archivedAt,
			}
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("session archive failed",
			zap.String("session_id", snapshot.SessionID),
			zap.Error(err))
		return err
	}

	messageCount := 0
	for _, messages := range snapshot.MessagesByRoom {
		messageCount += len(messages)
	}
	s.logger.Info("session archived",
		zap.String("session_id", snapshot.SessionID),
		zap.Int("messages", messageCount),
		zap.Int("quizzes", len(snapshot.Quizzes)))
	return nil
}
