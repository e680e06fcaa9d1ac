package roster

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/chalklinehq/chalkline/backend/internal/auth"
)

var (
	// ErrInvalidIdentity indicates the sign-in claims did not contain a
	// usable identifier.
	ErrInvalidIdentity = errors.New("roster: invalid identity")
	// ErrParticipantNotFound indicates no participant matches the lookup.
	ErrParticipantNotFound = errors.New("roster: participant not found")
)

const defaultProvider = "google"

// ServiceConfig describes the dependencies of the roster service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service resolves sign-in identities into canonical participants with
// roles. Lookups are cached per provider+subject.
type Service struct {
	db    *gorm.DB
	now   func() time.Time
	cache sync.Map
}

// NewService constructs the roster service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("roster: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:  cfg.Database,
		now: clock,
	}, nil
}

// Resolve returns the participant for the provided sign-in claims, creating
// a student-role record on first sight and refreshing profile fields on
// subsequent sign-ins.
func (s *Service) Resolve(claims auth.SignInClaims) (Participant, error) {
	subject := normalize(claims.Subject)
	if subject == "" {
		return Participant{}, ErrInvalidIdentity
	}

	cacheKey := defaultProvider + ":" + subject
	if cached, ok := s.cache.Load(cacheKey); ok {
		if participant, ok := cached.(Participant); ok {
			return participant, nil
		}
	}

	var participant Participant
	err := s.db.
		Where("provider = ? AND subject = ?", defaultProvider, subject).
		First(&participant).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		participant = Participant{
			Provider:      defaultProvider,
			Subject:       subject,
			ParticipantID: subject,
			Email:         normalize(claims.Email),
			DisplayName:   normalize(claims.DisplayName),
			Role:          RoleStudent,
			LastSeenAt:    s.now(),
		}
		if err := s.db.Create(&participant).Error; err != nil {
			return Participant{}, err
		}
	} else if err != nil {
		return Participant{}, err
	} else {
		updates := map[string]interface{}{"last_seen_at": s.now()}
		if email := normalize(claims.Email); email != "" && email != participant.Email {
			updates["email"] = email
			participant.Email = email
		}
		if display := normalize(claims.DisplayName); display != "" && display != participant.DisplayName {
			updates["display_name"] = display
			participant.DisplayName = display
		}
		if err := s.db.Model(&Participant{}).
			Where("provider = ? AND subject = ?", defaultProvider, subject).
			Updates(updates).
			Error; err != nil {
			return Participant{}, err
		}
	}

	s.cache.Store(cacheKey, participant)
	return participant, nil
}

// AssignRole changes the participant's role, for seeding instructors.
func (s *Service) AssignRole(participantID string, role Role) error {
	result := s.db.Model(&Participant{}).
		Where("participant_id = ?", participantID).
		Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrParticipantNotFound
	}
	s.invalidate(participantID)
	return nil
}

func (s *Service) invalidate(participantID string) {
	s.cache.Range(func(key, value any) bool {
		if participant, ok := value.(Participant); ok && participant.ParticipantID == participantID {
			s.cache.Delete(key)
		}
		return true
	})
}
