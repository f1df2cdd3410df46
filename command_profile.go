package educonnect

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// GetProfileHandler loads the profile row of the identity's role.
type GetProfileHandler struct {
	profiles Profiles
}

func NewGetProfileHandler(profiles Profiles) *GetProfileHandler {
	return &GetProfileHandler{profiles: profiles}
}

func (h *GetProfileHandler) Execute(ctx context.Context, identity *Identity) (Profile, error) {
	role, id, err := identityKey(identity)
	if err != nil {
		return nil, err
	}
	return h.profiles.Get(ctx, role, id)
}

// EnsureProfileHandler creates the profile row of a signed in identity when
// it is missing, which is how an account left half provisioned at sign up
// gets completed.
type EnsureProfileHandler struct {
	profiles Profiles
	logger   Logger
	sink     ActivitySink
}

func NewEnsureProfileHandler(profiles Profiles) *EnsureProfileHandler {
	return &EnsureProfileHandler{
		profiles: profiles,
		logger:   defLogger{},
		sink:     noopActivitySink{},
	}
}

func (h *EnsureProfileHandler) WithLogger(logger Logger) *EnsureProfileHandler {
	h.logger = ensureLogger(logger)
	return h
}

func (h *EnsureProfileHandler) WithActivitySink(sink ActivitySink) *EnsureProfileHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *EnsureProfileHandler) Execute(ctx context.Context, identity *Identity) (Profile, error) {
	role, id, err := identityKey(identity)
	if err != nil {
		return nil, err
	}

	profile, err := h.profiles.Get(ctx, role, id)
	if err == nil {
		return profile, nil
	}

	if !IsProfileNotFound(err) {
		return nil, err
	}

	h.logger.Info("profile missing, provisioning", "identity_id", identity.ID, "role", role)

	profile, err = h.profiles.Provision(ctx, role, id)
	if err != nil {
		// a concurrent request may have inserted the row first
		if existing, getErr := h.profiles.Get(ctx, role, id); getErr == nil {
			h.logger.Debug("profile provisioned concurrently", "identity_id", identity.ID, "role", role)
			return existing, nil
		}
		return nil, wrapAs(err, ErrPartialProvisioning, map[string]any{
			"identity_id": identity.ID,
			"role":        role,
		})
	}

	emitActivity(ctx, h.sink, h.logger, ActivityEvent{
		EventType:  ActivityEventProfileProvisioned,
		IdentityID: identity.ID,
		Role:       role,
		Metadata:   map[string]any{"table": role.ProfileTable(), "deferred": true},
	})

	return profile, nil
}

// UpdateProfileMessage carries the editable profile fields. Only the fields
// of the identity's role are used. List fields are comma separated.
type UpdateProfileMessage struct {
	Name           string `json:"name" form:"name"`
	Description    string `json:"description" form:"description"`
	Website        string `json:"website" form:"website"`
	FullName       string `json:"full_name" form:"full_name"`
	Bio            string `json:"bio" form:"bio"`
	Expertise      string `json:"expertise" form:"expertise"`
	Qualifications string `json:"qualifications" form:"qualifications"`
}

func (e UpdateProfileMessage) Type() string { return "profile.update" }

func (e UpdateProfileMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Length(0, 200)),
		validation.Field(&e.Website, is.URL),
		validation.Field(&e.FullName, validation.Length(0, 200)),
	)
}

type UpdateProfileHandler struct {
	profiles Profiles
}

func NewUpdateProfileHandler(profiles Profiles) *UpdateProfileHandler {
	return &UpdateProfileHandler{profiles: profiles}
}

func (h *UpdateProfileHandler) Execute(ctx context.Context, identity *Identity, event UpdateProfileMessage) (Profile, error) {
	role, id, err := identityKey(identity)
	if err != nil {
		return nil, err
	}

	if err := event.Validate(); err != nil {
		return nil, validationError(err)
	}

	switch role {
	case RoleOrganization:
		record, err := h.profiles.GetOrganization(ctx, id)
		if err != nil {
			return nil, err
		}
		record.Name = strings.TrimSpace(event.Name)
		record.Description = strings.TrimSpace(event.Description)
		record.Website = strings.TrimSpace(event.Website)

		updated, err := h.profiles.UpdateOrganization(ctx, record)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update organization profile")
		}
		return updated, nil
	default:
		record, err := h.profiles.GetEducator(ctx, id)
		if err != nil {
			return nil, err
		}
		record.FullName = strings.TrimSpace(event.FullName)
		record.Bio = strings.TrimSpace(event.Bio)
		record.Expertise = SplitList(event.Expertise)
		record.Qualifications = SplitList(event.Qualifications)

		updated, err := h.profiles.UpdateEducator(ctx, record)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update educator profile")
		}
		return updated, nil
	}
}

// SplitList turns "a, b,,c " into [a b c]. The result is never nil.
func SplitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func identityKey(identity *Identity) (Role, uuid.UUID, error) {
	if identity == nil {
		return RoleNone, uuid.Nil, ErrNotAuthenticated
	}

	role := Classify(identity)
	if role == RoleNone {
		return RoleNone, uuid.Nil, withMeta(ErrNoRole, map[string]any{"identity_id": identity.ID})
	}

	id, err := uuid.Parse(identity.ID)
	if err != nil {
		return RoleNone, uuid.Nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "identity id is not a uuid").
			WithCode(goerrors.CodeBadRequest)
	}

	return role, id, nil
}
