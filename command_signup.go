package educonnect

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// MinPasswordLength is the shortest password accepted by the forms.
const MinPasswordLength = 6

// DefaultCommandTimeout bounds identity and storage calls made by commands.
const DefaultCommandTimeout = 10 * time.Second

type SignupMessage struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Role     Role   `json:"role" form:"role"`
}

func (e SignupMessage) Type() string { return "account.signup" }

func (e SignupMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(MinPasswordLength, 0)),
		validation.Field(&e.Role, validation.Required, validation.In(RoleOrganization, RoleEducator)),
	)
}

type SignupResult struct {
	Identity *Identity
	Role     Role
	Redirect string
}

// ProfileProvisioner creates the empty profile row for a new identity.
type ProfileProvisioner interface {
	Provision(ctx context.Context, role Role, id uuid.UUID) (Profile, error)
}

// SignupHandler creates an identity and then its profile row. The two steps
// are not atomic: when the second one fails the identity is kept and
// ErrPartialProvisioning is returned.
type SignupHandler struct {
	client   IdentityClient
	store    *SessionStore
	profiles ProfileProvisioner
	logger   Logger
	sink     ActivitySink
	timeout  time.Duration
}

func NewSignupHandler(client IdentityClient, store *SessionStore, profiles ProfileProvisioner) *SignupHandler {
	return &SignupHandler{
		client:   client,
		store:    store,
		profiles: profiles,
		logger:   defLogger{},
		sink:     noopActivitySink{},
		timeout:  DefaultCommandTimeout,
	}
}

func (h *SignupHandler) WithLogger(logger Logger) *SignupHandler {
	h.logger = ensureLogger(logger)
	return h
}

func (h *SignupHandler) WithActivitySink(sink ActivitySink) *SignupHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *SignupHandler) Execute(ctx context.Context, event SignupMessage) (*SignupResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signup",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupHandler) execute(ctx context.Context, event SignupMessage) (*SignupResult, error) {
	event.Email = strings.TrimSpace(event.Email)
	if err := event.Validate(); err != nil {
		return nil, validationError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	role := event.Role
	res, err := h.client.SignUp(ctx, SignUpRequest{
		Email:    event.Email,
		Password: event.Password,
		Metadata: map[string]any{
			MetadataUserType: string(role),
		},
	})
	if err != nil {
		h.logger.Info("signup rejected by identity service", "email", event.Email, "role", role, "error", err)
		h.emit(ctx, ActivityEventSignupFailure, nil, role, map[string]any{
			"email": event.Email,
			"error": err.Error(),
		})
		return nil, signupClientError(err, event)
	}

	if res == nil || res.Identity == nil {
		return nil, goerrors.New("identity service returned no identity", goerrors.CategoryInternal).
			WithCode(goerrors.CodeInternal)
	}

	identity := res.Identity
	if res.Session != nil {
		h.store.ApplyIdentity(identity)
	}

	meta := map[string]any{
		"identity_id": identity.ID,
		"role":        role,
	}

	id, err := uuid.Parse(identity.ID)
	if err == nil {
		_, err = h.profiles.Provision(ctx, role, id)
	}

	if err != nil {
		h.logger.Error("profile provisioning failed after identity creation",
			"identity_id", identity.ID,
			"role", role,
			"error", err,
		)
		h.emit(ctx, ActivityEventSignupPartial, identity, role, map[string]any{
			"error": err.Error(),
		})
		return nil, wrapAs(err, ErrPartialProvisioning, meta)
	}

	h.emit(ctx, ActivityEventSignupSuccess, identity, role, nil)
	h.emit(ctx, ActivityEventProfileProvisioned, identity, role, map[string]any{
		"table": role.ProfileTable(),
	})

	return &SignupResult{
		Identity: identity,
		Role:     role,
		Redirect: role.DashboardPath(),
	}, nil
}

func (h *SignupHandler) emit(ctx context.Context, eventType ActivityEventType, identity *Identity, role Role, meta map[string]any) {
	event := ActivityEvent{
		EventType: eventType,
		Role:      role,
		Metadata:  meta,
	}
	if identity != nil {
		event.IdentityID = identity.ID
	}
	emitActivity(ctx, h.sink, h.logger, event)
}

func signupClientError(err error, event SignupMessage) error {
	meta := map[string]any{
		"email": event.Email,
		"role":  event.Role,
	}

	switch {
	case IsIdentifierTaken(err):
		return wrapAs(err, ErrAccountExists, meta)
	case IsIdentityUnavailable(err):
		return err
	default:
		return wrapAs(err, ErrCredentials, credentialMeta(err, meta))
	}
}

// credentialMeta keeps a "reason" supplied by the identity client so the
// form can show why the data was rejected.
func credentialMeta(err error, meta map[string]any) map[string]any {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Metadata != nil {
		if reason, ok := richErr.Metadata["reason"].(string); ok && reason != "" {
			meta["reason"] = reason
		}
	}
	return meta
}
