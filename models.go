package educonnect

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LocationType is where a teaching requirement takes place
type LocationType = string

const (
	LocationRemote   LocationType = "remote"
	LocationInPerson LocationType = "in-person"
	LocationHybrid   LocationType = "hybrid"
)

// Profile is implemented by both role profile rows.
type Profile interface {
	GetID() uuid.UUID
	ProfileRole() Role
}

// OrganizationProfile is the profile row of an organization account. ID is
// the identity id.
type OrganizationProfile struct {
	bun.BaseModel `bun:"table:organization_profiles,alias:org"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Name          string     `bun:"name,notnull" json:"name"`
	Description   string     `bun:"description,notnull" json:"description"`
	Website       string     `bun:"website,notnull" json:"website"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

func (p *OrganizationProfile) GetID() uuid.UUID  { return p.ID }
func (p *OrganizationProfile) ProfileRole() Role { return RoleOrganization }

// EducatorProfile is the profile row of an educator account. ID is the
// identity id.
type EducatorProfile struct {
	bun.BaseModel  `bun:"table:educator_profiles,alias:edu"`
	ID             uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	FullName       string     `bun:"full_name,notnull" json:"full_name"`
	Bio            string     `bun:"bio,notnull" json:"bio"`
	Expertise      []string   `bun:"expertise,type:jsonb" json:"expertise"`
	Qualifications []string   `bun:"qualifications,type:jsonb" json:"qualifications"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

func (p *EducatorProfile) GetID() uuid.UUID  { return p.ID }
func (p *EducatorProfile) ProfileRole() Role { return RoleEducator }

// NewOrganizationProfile returns the row created at sign up.
func NewOrganizationProfile(id uuid.UUID) *OrganizationProfile {
	return &OrganizationProfile{
		ID:          id,
		Name:        "",
		Description: "",
		Website:     "",
	}
}

// NewEducatorProfile returns the row created at sign up. List fields are
// empty, not nil, so they persist as [].
func NewEducatorProfile(id uuid.UUID) *EducatorProfile {
	return &EducatorProfile{
		ID:             id,
		FullName:       "",
		Bio:            "",
		Expertise:      []string{},
		Qualifications: []string{},
	}
}

// TeachingRequirement is a need posted by an organization.
type TeachingRequirement struct {
	bun.BaseModel     `bun:"table:teaching_requirements,alias:req"`
	ID                uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id"`
	OrganizationID    uuid.UUID    `bun:"organization_id,notnull,type:uuid" json:"organization_id"`
	Title             string       `bun:"title,notnull" json:"title"`
	Description       string       `bun:"description,notnull" json:"description"`
	SubjectArea       string       `bun:"subject_area,notnull" json:"subject_area"`
	RequiredExpertise []string     `bun:"required_expertise,type:jsonb" json:"required_expertise"`
	Duration          string       `bun:"duration,notnull" json:"duration"`
	BudgetRange       string       `bun:"budget_range,notnull" json:"budget_range"`
	LocationType      LocationType `bun:"location_type,notnull" json:"location_type"`
	Location          string       `bun:"location" json:"location,omitempty"`
	CreatedAt         *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
