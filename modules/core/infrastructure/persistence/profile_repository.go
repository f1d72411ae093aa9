package persistence

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/iota-uz/portal/modules/core/domain/entities/profile"
	"github.com/iota-uz/portal/pkg/backend"
)

const ProfilesTable = "profiles"

type ProfileRepository struct {
	tables backend.Tables
}

func NewProfileRepository(tables backend.Tables) profile.Repository {
	return &ProfileRepository{tables: tables}
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	rows, err := r.tables.Select(ctx, ProfilesTable, backend.Query{
		Eq:    backend.Filter{"id": id},
		Limit: 1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "select profile")
	}
	if len(rows) == 0 {
		return nil, profile.ErrNotFound
	}
	return toDomainProfile(profileFromRow(rows[0])), nil
}

func (r *ProfileRepository) Upsert(ctx context.Context, p *profile.Profile) (*profile.Profile, error) {
	if p.ID == "" {
		return nil, errors.New("profile id is required")
	}
	stored, err := r.tables.Upsert(ctx, ProfilesTable, profileToRow(toDBProfile(p)))
	if err != nil {
		return nil, errors.Wrap(err, "upsert profile")
	}
	if stored.String("id") == "" {
		return p.Clone(), nil
	}
	return toDomainProfile(profileFromRow(stored)), nil
}

func (r *ProfileRepository) UpdateAvatar(ctx context.Context, id, avatarURL string, updatedAt time.Time) error {
	err := r.tables.Update(ctx, ProfilesTable,
		backend.Row{"avatar_url": avatarURL, "updated_at": updatedAt},
		backend.Filter{"id": id},
	)
	if err != nil {
		return errors.Wrap(err, "update avatar")
	}
	return nil
}
