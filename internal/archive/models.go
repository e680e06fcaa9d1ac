package archive

// ArchivedMessage is the flattened row written for each chat message when a
// session ends. Write-only history; the live stores never read it back.
type ArchivedMessage struct {
	MessageID        string `gorm:"column:message_id;primaryKey;size:190;not null"`
	SessionID        string `gorm:"column:session_id;size:190;not null;index:idx_archived_messages_session"`
	RoomID           string `gorm:"column:room_id;size:190;not null"`
	SenderID         string `gorm:"column:sender_id;size:190;not null"`
	SenderName       string `gorm:"column:sender_name;size:320;not null"`
	SenderRole       string `gorm:"column:sender_role;size:32;not null"`
	Text             string `gorm:"column:text;type:text;not null"`
	SentAtSeconds    int64  `gorm:"column:sent_at_s;not null"`
	ArchivedAtSecond int64  `gorm:"column:archived_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ArchivedMessage) TableName() string {
	return "archived_messages"
}

// ArchivedQuiz is the row written for each quiz when a session ends.
// Questions are serialized to JSON; the archive never queries inside them.
type ArchivedQuiz struct {
	QuizID           string `gorm:"column:quiz_id;primaryKey;size:190;not null"`
	SessionID        string `gorm:"column:session_id;size:190;not null;index:idx_archived_quizzes_session"`
	CreatedBy        string `gorm:"column:created_by;size:190;not null"`
	CreatedByName    string `gorm:"column:created_by_name;size:320;not null"`
	Title            string `gorm:"column:title;size:320"`
	Status           string `gorm:"column:status;size:32;not null"`
	QuestionsJSON    string `gorm:"column:questions_json;type:text;not null"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
	ArchivedAtSecond int64  `gorm:"column:archived_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ArchivedQuiz) TableName() string {
	return "archived_quizzes"
}
