package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chalklinehq/chalkline/backend/internal/archive"
	"github.com/chalklinehq/chalkline/backend/internal/roster"
)

// OpenSQLite establishes the SQLite connection backing the roster and the
// session archive, and performs schema migrations. The in-memory stores never
// touch this database.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&roster.Participant{},
		&archive.ArchivedMessage{},
		&archive.ArchivedQuiz{},
	); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}
