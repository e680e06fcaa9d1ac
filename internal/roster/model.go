package roster

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role enumerates how a participant takes part in classroom sessions. The
// HTTP layer's instructor-only guard checks this value.
type Role string

const (
	// RoleInstructor participants run sessions and triage alerts.
	RoleInstructor Role = "instructor"
	// RoleStudent participants join sessions.
	RoleStudent Role = "student"
)

// ErrInvalidRole indicates an unrecognized participant role.
var ErrInvalidRole = errors.New("roster: invalid role")

// ParseRole validates raw input and returns a Role.
func ParseRole(rawInput string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(rawInput))) {
	case RoleInstructor:
		return RoleInstructor, nil
	case RoleStudent:
		return RoleStudent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, rawInput)
	}
}

// Participant maps a sign-in provider identity to a canonical participant id
// and role.
type Participant struct {
	Provider      string    `gorm:"column:provider;primaryKey;size:32;not null"`
	Subject       string    `gorm:"column:subject;primaryKey;size:190;not null"`
	ParticipantID string    `gorm:"column:participant_id;size:190;not null;index"`
	Email         string    `gorm:"column:email;size:320"`
	DisplayName   string    `gorm:"column:display_name;size:320"`
	Role          Role      `gorm:"column:role;size:32;not null;default:student"`
	LastSeenAt    time.Time `gorm:"column:last_seen_at;autoUpdateTime"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing roster participants.
func (Participant) TableName() string {
	return "roster_participants"
}

func normalize(value string) string {
	return strings.TrimSpace(value)
}
