package educonnect

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Profiles stores the role profile rows, one table per role, keyed by the
// identity id.
type Profiles interface {
	Provision(ctx context.Context, role Role, id uuid.UUID) (Profile, error)
	Get(ctx context.Context, role Role, id uuid.UUID) (Profile, error)

	GetOrganization(ctx context.Context, id uuid.UUID) (*OrganizationProfile, error)
	GetEducator(ctx context.Context, id uuid.UUID) (*EducatorProfile, error)
	UpdateOrganization(ctx context.Context, record *OrganizationProfile) (*OrganizationProfile, error)
	UpdateEducator(ctx context.Context, record *EducatorProfile) (*EducatorProfile, error)
}

type profiles struct {
	db            *bun.DB
	organizations repository.Repository[*OrganizationProfile]
	educators     repository.Repository[*EducatorProfile]
}

var _ Profiles = (*profiles)(nil)

func NewProfilesRepository(db *bun.DB) Profiles {
	return &profiles{
		db: db,
		organizations: repository.NewRepository[*OrganizationProfile](db, repository.ModelHandlers[*OrganizationProfile]{
			NewRecord: func() *OrganizationProfile { return &OrganizationProfile{} },
			GetID: func(p *OrganizationProfile) uuid.UUID {
				if p == nil {
					return uuid.Nil
				}
				return p.ID
			},
			SetID: func(p *OrganizationProfile, id uuid.UUID) {
				if p != nil {
					p.ID = id
				}
			},
		}),
		educators: repository.NewRepository[*EducatorProfile](db, repository.ModelHandlers[*EducatorProfile]{
			NewRecord: func() *EducatorProfile { return &EducatorProfile{} },
			GetID: func(p *EducatorProfile) uuid.UUID {
				if p == nil {
					return uuid.Nil
				}
				return p.ID
			},
			SetID: func(p *EducatorProfile, id uuid.UUID) {
				if p != nil {
					p.ID = id
				}
			},
		}),
	}
}

// Provision inserts the empty profile row for role keyed by id.
func (r *profiles) Provision(ctx context.Context, role Role, id uuid.UUID) (Profile, error) {
	if id == uuid.Nil {
		return nil, errors.New("profile id must not be empty", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	switch role {
	case RoleOrganization:
		record, err := r.organizations.CreateTx(ctx, r.db, NewOrganizationProfile(id))
		if err != nil {
			return nil, err
		}
		return record, nil
	case RoleEducator:
		record, err := r.educators.CreateTx(ctx, r.db, NewEducatorProfile(id))
		if err != nil {
			return nil, err
		}
		return record, nil
	default:
		return nil, withMeta(ErrNoRole, map[string]any{"role": role})
	}
}

func (r *profiles) Get(ctx context.Context, role Role, id uuid.UUID) (Profile, error) {
	switch role {
	case RoleOrganization:
		record, err := r.GetOrganization(ctx, id)
		if err != nil {
			return nil, err
		}
		return record, nil
	case RoleEducator:
		record, err := r.GetEducator(ctx, id)
		if err != nil {
			return nil, err
		}
		return record, nil
	default:
		return nil, withMeta(ErrNoRole, map[string]any{"role": role})
	}
}

func (r *profiles) GetOrganization(ctx context.Context, id uuid.UUID) (*OrganizationProfile, error) {
	record, err := r.organizations.GetByID(ctx, id.String())
	if err != nil {
		return nil, profileLookupError(err, RoleOrganization, id)
	}
	return record, nil
}

func (r *profiles) GetEducator(ctx context.Context, id uuid.UUID) (*EducatorProfile, error) {
	record, err := r.educators.GetByID(ctx, id.String())
	if err != nil {
		return nil, profileLookupError(err, RoleEducator, id)
	}
	if record.Expertise == nil {
		record.Expertise = []string{}
	}
	if record.Qualifications == nil {
		record.Qualifications = []string{}
	}
	return record, nil
}

func (r *profiles) UpdateOrganization(ctx context.Context, record *OrganizationProfile) (*OrganizationProfile, error) {
	now := time.Now()
	record.UpdatedAt = &now
	return r.organizations.UpdateTx(ctx, r.db, record, repository.UpdateByID(record.ID.String()))
}

func (r *profiles) UpdateEducator(ctx context.Context, record *EducatorProfile) (*EducatorProfile, error) {
	if record.Expertise == nil {
		record.Expertise = []string{}
	}
	if record.Qualifications == nil {
		record.Qualifications = []string{}
	}
	now := time.Now()
	record.UpdatedAt = &now
	return r.educators.UpdateTx(ctx, r.db, record, repository.UpdateByID(record.ID.String()))
}

func profileLookupError(err error, role Role, id uuid.UUID) error {
	meta := map[string]any{
		"role":        role,
		"identity_id": id.String(),
	}
	if repository.IsRecordNotFound(err) || errors.IsNotFound(err) {
		return wrapAs(err, ErrProfileNotFound, meta)
	}
	return errors.Wrap(err, errors.CategoryInternal, "failed to load profile").WithMetadata(meta)
}
