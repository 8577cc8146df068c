package services

import (
	"time"

	"github.com/charmbracelet/log"

	"kinkeeper/models"
	"kinkeeper/session"
	"kinkeeper/store"
)

// ProfileService manages the single per-user profile row, keyed by the
// user id rather than a generated one.
type ProfileService struct {
	profiles *store.Collection[models.Profile]
	session  *session.Session
	logger   *log.Logger
}

func NewProfileService(profiles *store.Collection[models.Profile], sess *session.Session, logger *log.Logger) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		session:  sess,
		logger:   logger,
	}
}

// GetOrCreate returns the user's profile, lazily creating a minimal default
// one. Idempotent; called defensively before operations that assume the
// profile row exists. A tombstoned profile reads as ErrNotFound rather than
// being recreated, so a deletion sticks across sign-ins until the account
// flow explicitly provisions a new one.
func (s *ProfileService) GetOrCreate(userID string) (*models.Profile, error) {
	owner, err := requireOwner(s.session)
	if err != nil {
		return nil, err
	}
	if userID != owner {
		return nil, ErrNotAuthenticated
	}

	if profile, ok := s.profiles.Get(userID); ok {
		if profile.Deleted {
			return nil, ErrNotFound
		}
		return &profile, nil
	}

	now := time.Now().UTC()
	profile := models.Profile{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.profiles.Set(userID, profile)
	s.logger.Info("created default profile", "user", userID)

	stored, _ := s.profiles.Get(userID)
	return &stored, nil
}

// SetOnboardingDone records that the user finished onboarding.
func (s *ProfileService) SetOnboardingDone(done bool) (*models.Profile, error) {
	return s.apply(func(p models.Profile) models.Profile {
		p.OnboardingDone = done
		return p
	})
}

// SetSubscribed records the user's subscription state.
func (s *ProfileService) SetSubscribed(subscribed bool) (*models.Profile, error) {
	return s.apply(func(p models.Profile) models.Profile {
		p.Subscribed = subscribed
		return p
	})
}

// Delete tombstones the profile.
func (s *ProfileService) Delete() error {
	_, err := s.apply(func(p models.Profile) models.Profile {
		p.Deleted = true
		return p
	})
	return err
}

func (s *ProfileService) apply(fn func(models.Profile) models.Profile) (*models.Profile, error) {
	owner, err := requireOwner(s.session)
	if err != nil {
		return nil, err
	}

	if _, err := s.GetOrCreate(owner); err != nil {
		return nil, err
	}

	updated, ok := s.profiles.Apply(owner, func(p models.Profile) models.Profile {
		p = fn(p)
		p.UpdatedAt = time.Now().UTC()
		return p
	})
	if !ok {
		return nil, ErrNotFound
	}
	return &updated, nil
}
