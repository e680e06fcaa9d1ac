package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/chalklinehq/chalkline/backend/internal/alerts"
	"github.com/chalklinehq/chalkline/backend/internal/archive"
	"github.com/chalklinehq/chalkline/backend/internal/chat"
	"github.com/chalklinehq/chalkline/backend/internal/quizzes"
	"github.com/chalklinehq/chalkline/backend/internal/transcripts"
)

var errMissingStores = errors.New("session: all four stores are required")

// LifecycleConfig describes the stores a teardown touches plus the optional
// archive sink.
type LifecycleConfig struct {
	Chat        *chat.Store
	Transcripts *transcripts.Store
	Alerts      *alerts.Store
	Quizzes     *quizzes.Store
	Archive     *archive.Service
	Logger      *zap.Logger
}

// Lifecycle coordinates end-of-session teardown: snapshot what the archive
// keeps, persist it, then clear every store's partitions for the session.
type Lifecycle struct {
	chat        *chat.Store
	transcripts *transcripts.Store
	alerts      *alerts.Store
	quizzes     *quizzes.Store
	archive     *archive.Service
	logger      *zap.Logger
}

// NewLifecycle constructs the teardown coordinator.
func NewLifecycle(cfg LifecycleConfig) (*Lifecycle, error) {
	if cfg.Chat == nil || cfg.Transcripts == nil || cfg.Alerts == nil || cfg.Quizzes == nil {
		return nil, errMissingStores
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lifecycle{
		chat:        cfg.Chat,
		transcripts: cfg.Transcripts,
		alerts:      cfg.Alerts,
		quizzes:     cfg.Quizzes,
		archive:     cfg.Archive,
		logger:      logger,
	}, nil
}

// EndClassroom tears down a classroom session. The archive write happens
// before any clear so nothing is lost if it fails; a failed archive aborts
// the teardown and the caller may retry.
func (l *Lifecycle) EndClassroom(ctx context.Context, sessionID string) error {
	if l.archive != nil {
		snapshot := archive.SessionSnapshot{
			SessionID:      sessionID,
			MessagesByRoom: l.chat.AllMessagesForSession(sessionID),
			Quizzes:        l.quizzes.QuizzesForSession(sessionID),
		}
		if err := l.archive.ArchiveSession(ctx, snapshot); err != nil {
			return err
		}
	}

	l.chat.ClearSession(sessionID)
	l.transcripts.ClearSession(sessionID)
	l.alerts.ClearClassroom(sessionID)
	l.quizzes.ClearSession(sessionID)

	l.logger.Info("classroom session cleared", zap.String("session_id", sessionID))
	return nil
}

// EndBreakoutRoom reclaims a single breakout room's chat when the room
// closes before the classroom does. Transcripts, alerts and quizzes belong
// to the classroom session and stay until EndClassroom.
func (l *Lifecycle) EndBreakoutRoom(roomID string) {
	l.chat.ClearRoom(roomID)
	l.logger.Info("breakout room cleared", zap.String("room_id", roomID))
}
