package services

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jonboulle/clockwork"

	"github.com/iota-uz/portal/modules/core/domain/entities/profile"
	"github.com/iota-uz/portal/modules/logging/domain/entities/logrecord"
)

type ProfileService struct {
	repo   profile.Repository
	logger ActionLogger
	clock  clockwork.Clock
}

func NewProfileService(repo profile.Repository, logger ActionLogger, clock clockwork.Clock) *ProfileService {
	if logger == nil {
		logger = nopActionLogger{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ProfileService{repo: repo, logger: logger, clock: clock}
}

// Get returns the default profile when the user has none stored yet.
func (s *ProfileService) Get(ctx context.Context, userID string) (*profile.Profile, error) {
	p, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, profile.ErrNotFound) {
		return profile.New(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProfileService) logFailure(ctx context.Context, userID string, err error) {
	s.logger.Error(ctx, "Error updating profile", logrecord.Metadata{
		"userId": userID,
		"error":  err.Error(),
	})
}

func (s *ProfileService) logChange(ctx context.Context, action, userID string, before, after *profile.Profile) {
	s.logger.LogUserAction(ctx, action, userID, logrecord.Metadata{
		"previousValues": before.Values(),
		"newValues":      after.Values(),
		"changedFields":  profile.Diff(before, after),
	})
}

// Update applies change to the current profile and upserts the result.
func (s *ProfileService) Update(ctx context.Context, userID, action string, change func(p *profile.Profile)) (*profile.Profile, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		s.logFailure(ctx, userID, err)
		return nil, err
	}
	next := current.Clone()
	change(next)
	next.ID = userID
	next.UpdatedAt = s.clock.Now().UTC()

	stored, err := s.repo.Upsert(ctx, next)
	if err != nil {
		s.logFailure(ctx, userID, err)
		return nil, err
	}
	s.logChange(ctx, action, userID, current, stored)
	return stored, nil
}

func (s *ProfileService) SetAvatar(ctx context.Context, userID, avatarURL string) (*profile.Profile, error) {
	current, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, profile.ErrNotFound) {
		return s.Update(ctx, userID, ActionAvatarUpload, func(p *profile.Profile) {
			p.AvatarURL = avatarURL
		})
	}
	if err != nil {
		s.logFailure(ctx, userID, err)
		return nil, err
	}

	next := current.Clone()
	next.AvatarURL = avatarURL
	next.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.UpdateAvatar(ctx, userID, avatarURL, next.UpdatedAt); err != nil {
		s.logFailure(ctx, userID, err)
		return nil, err
	}
	s.logChange(ctx, ActionAvatarUpload, userID, current, next)
	return next, nil
}
