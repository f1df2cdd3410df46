package educonnect

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

type CreateRequirementMessage struct {
	Title             string       `json:"title" form:"title"`
	Description       string       `json:"description" form:"description"`
	SubjectArea       string       `json:"subject_area" form:"subject_area"`
	RequiredExpertise string       `json:"required_expertise" form:"required_expertise"`
	Duration          string       `json:"duration" form:"duration"`
	BudgetRange       string       `json:"budget_range" form:"budget_range"`
	LocationType      LocationType `json:"location_type" form:"location_type"`
	Location          string       `json:"location" form:"location"`
}

func (e CreateRequirementMessage) Type() string { return "requirement.create" }

func (e CreateRequirementMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.Description, validation.Required),
		validation.Field(&e.SubjectArea, validation.Required),
		validation.Field(&e.Duration, validation.Required),
		validation.Field(&e.BudgetRange, validation.Required),
		validation.Field(&e.LocationType, validation.Required, validation.In(LocationRemote, LocationInPerson, LocationHybrid)),
	)
}

type CreateRequirementResult struct {
	Requirement *TeachingRequirement
	Redirect    string
}

// RequirementsPath is the organization's requirement list.
const RequirementsPath = "/organization/dashboard/requirements"

// CreateRequirementHandler posts a requirement for the signed in
// organization.
type CreateRequirementHandler struct {
	requirements Requirements
	logger       Logger
	sink         ActivitySink
}

func NewCreateRequirementHandler(requirements Requirements) *CreateRequirementHandler {
	return &CreateRequirementHandler{
		requirements: requirements,
		logger:       defLogger{},
		sink:         noopActivitySink{},
	}
}

func (h *CreateRequirementHandler) WithLogger(logger Logger) *CreateRequirementHandler {
	h.logger = ensureLogger(logger)
	return h
}

func (h *CreateRequirementHandler) WithActivitySink(sink ActivitySink) *CreateRequirementHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *CreateRequirementHandler) Execute(ctx context.Context, identity *Identity, event CreateRequirementMessage) (*CreateRequirementResult, error) {
	role, orgID, err := identityKey(identity)
	if err != nil {
		return nil, err
	}

	if role != RoleOrganization {
		return nil, withMeta(ErrRoleMismatch, map[string]any{
			"identity_id": identity.ID,
			"expected":    RoleOrganization,
			"actual":      role,
		})
	}

	if err := event.Validate(); err != nil {
		return nil, validationError(err)
	}

	record := &TeachingRequirement{
		OrganizationID:    orgID,
		Title:             strings.TrimSpace(event.Title),
		Description:       strings.TrimSpace(event.Description),
		SubjectArea:       strings.TrimSpace(event.SubjectArea),
		RequiredExpertise: SplitList(event.RequiredExpertise),
		Duration:          strings.TrimSpace(event.Duration),
		BudgetRange:       strings.TrimSpace(event.BudgetRange),
		LocationType:      event.LocationType,
		Location:          strings.TrimSpace(event.Location),
	}

	created, err := h.requirements.Create(ctx, record)
	if err != nil {
		return nil, err
	}

	emitActivity(ctx, h.sink, h.logger, ActivityEvent{
		EventType:  ActivityEventRequirementCreated,
		IdentityID: identity.ID,
		Role:       role,
		Metadata:   map[string]any{"requirement_id": created.ID.String()},
	})

	return &CreateRequirementResult{
		Requirement: created,
		Redirect:    RequirementsPath,
	}, nil
}

type ListRequirementsHandler struct {
	requirements Requirements
}

func NewListRequirementsHandler(requirements Requirements) *ListRequirementsHandler {
	return &ListRequirementsHandler{requirements: requirements}
}

func (h *ListRequirementsHandler) Execute(ctx context.Context, identity *Identity) ([]*TeachingRequirement, error) {
	role, orgID, err := identityKey(identity)
	if err != nil {
		return nil, err
	}

	if role != RoleOrganization {
		return nil, goerrors.New("only organizations have requirements", goerrors.CategoryAuthz).
			WithCode(goerrors.CodeForbidden)
	}

	return h.requirements.ListByOrganization(ctx, orgID)
}
