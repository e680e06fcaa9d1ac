package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ParticipantRole enumerates who authored a chat message.
type ParticipantRole string

const (
	// RoleInstructor marks messages sent by the session instructor.
	RoleInstructor ParticipantRole = "instructor"
	// RoleStudent marks messages sent by a student participant.
	RoleStudent ParticipantRole = "student"
)

// MaxMessageLength bounds the trimmed message text accepted by the store.
const MaxMessageLength = 2000

var (
	// ErrEmptyMessage indicates the message text is empty after trimming.
	ErrEmptyMessage = errors.New("chat: empty message text")
	// ErrMessageTooLong indicates the message text exceeds MaxMessageLength.
	ErrMessageTooLong = errors.New("chat: message text too long")
	// ErrMissingField indicates a required identifier is absent.
	ErrMissingField = errors.New("chat: missing required field")
	// ErrInvalidRole indicates an unrecognized participant role.
	ErrInvalidRole = errors.New("chat: invalid participant role")
)

// ParseRole validates raw input and returns a ParticipantRole.
func ParseRole(rawInput string) (ParticipantRole, error) {
	switch ParticipantRole(strings.ToLower(strings.TrimSpace(rawInput))) {
	case RoleInstructor:
		return RoleInstructor, nil
	case RoleStudent:
		return RoleStudent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, rawInput)
	}
}

// Message models a single chat message within a room partition.
// Messages are immutable once appended.
type Message struct {
	ID         string
	Timestamp  time.Time
	SenderID   string
	SenderName string
	Role       ParticipantRole
	Text       string
	RoomID     string
	SessionID  string
}

// Filter describes the optional, conjunctive predicates accepted by Messages.
// The zero value matches everything.
type Filter struct {
	// Since keeps messages with a timestamp strictly after this instant.
	Since time.Time
	// Role keeps messages authored by participants with this role.
	Role ParticipantRole
}

func (f Filter) matches(message Message) bool {
	if !f.Since.IsZero() && !message.Timestamp.After(f.Since) {
		return false
	}
	if f.Role != "" && message.Role != f.Role {
		return false
	}
	return true
}

func (m Message) validate() error {
	if strings.TrimSpace(m.SenderID) == "" {
		return fmt.Errorf("%w: sender id", ErrMissingField)
	}
	if strings.TrimSpace(m.SenderName) == "" {
		return fmt.Errorf("%w: sender name", ErrMissingField)
	}
	if strings.TrimSpace(m.RoomID) == "" {
		return fmt.Errorf("%w: room id", ErrMissingField)
	}
	if strings.TrimSpace(m.SessionID) == "" {
		return fmt.Errorf("%w: session id", ErrMissingField)
	}
	switch m.Role {
	case RoleInstructor, RoleStudent:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRole, m.Role)
	}
	trimmed := strings.TrimSpace(m.Text)
	if trimmed == "" {
		return ErrEmptyMessage
	}
	if length := utf8.RuneCountInString(trimmed); length > MaxMessageLength {
		return fmt.Errorf("%w: %d characters exceeds %d", ErrMessageTooLong, length, MaxMessageLength)
	}
	return nil
}
