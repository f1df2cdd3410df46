package educonnect

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Requirements stores teaching requirements.
type Requirements interface {
	Create(ctx context.Context, record *TeachingRequirement) (*TeachingRequirement, error)
	ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]*TeachingRequirement, error)
}

type requirements struct {
	repo repository.Repository[*TeachingRequirement]
}

var _ Requirements = (*requirements)(nil)

func NewRequirementsRepository(db *bun.DB) Requirements {
	return &requirements{
		repo: repository.NewRepository[*TeachingRequirement](db, repository.ModelHandlers[*TeachingRequirement]{
			NewRecord: func() *TeachingRequirement { return &TeachingRequirement{} },
			GetID: func(r *TeachingRequirement) uuid.UUID {
				if r == nil {
					return uuid.Nil
				}
				return r.ID
			},
			SetID: func(r *TeachingRequirement, id uuid.UUID) {
				if r != nil {
					r.ID = id
				}
			},
		}),
	}
}

func (r *requirements) Create(ctx context.Context, record *TeachingRequirement) (*TeachingRequirement, error) {
	if record.CreatedAt == nil {
		now := time.Now().UTC()
		record.CreatedAt = &now
	}
	if record.RequiredExpertise == nil {
		record.RequiredExpertise = []string{}
	}

	created, err := r.repo.Create(ctx, record)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create teaching requirement").
			WithMetadata(map[string]any{"organization_id": record.OrganizationID.String()})
	}
	return created, nil
}

// ListByOrganization returns every requirement of the organization, newest
// first.
func (r *requirements) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]*TeachingRequirement, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectBy("organization_id", "=", organizationID.String()),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.created_at DESC").Limit(0)
		}),
	)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return []*TeachingRequirement{}, nil
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list teaching requirements")
	}
	return records, nil
}
