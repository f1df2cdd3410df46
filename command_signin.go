package educonnect

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

type SigninMessage struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Role     Role   `json:"role" form:"role"`
}

func (e SigninMessage) Type() string { return "account.signin" }

func (e SigninMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Password, validation.Required),
		validation.Field(&e.Role, validation.Required, validation.In(RoleOrganization, RoleEducator)),
	)
}

type SigninResult struct {
	Identity *Identity
	Role     Role
	Redirect string
}

// SigninHandler signs in with a password and checks that the account role
// matches the entry point. On a mismatch the session is left live and
// ErrRoleMismatch is returned without a redirect.
type SigninHandler struct {
	client  IdentityClient
	store   *SessionStore
	logger  Logger
	sink    ActivitySink
	timeout time.Duration
}

func NewSigninHandler(client IdentityClient, store *SessionStore) *SigninHandler {
	return &SigninHandler{
		client:  client,
		store:   store,
		logger:  defLogger{},
		sink:    noopActivitySink{},
		timeout: DefaultCommandTimeout,
	}
}

func (h *SigninHandler) WithLogger(logger Logger) *SigninHandler {
	h.logger = ensureLogger(logger)
	return h
}

func (h *SigninHandler) WithActivitySink(sink ActivitySink) *SigninHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *SigninHandler) Execute(ctx context.Context, event SigninMessage) (*SigninResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signin",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SigninHandler) execute(ctx context.Context, event SigninMessage) (*SigninResult, error) {
	event.Email = strings.TrimSpace(event.Email)
	if err := event.Validate(); err != nil {
		return nil, validationError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	res, err := h.client.SignInWithPassword(ctx, Credentials{
		Email:    event.Email,
		Password: event.Password,
	})
	if err != nil || res == nil || res.Identity == nil {
		h.logger.Info("signin rejected", "email", event.Email, "role", event.Role, "error", err)
		emitActivity(ctx, h.sink, h.logger, ActivityEvent{
			EventType: ActivityEventSigninFailure,
			Role:      event.Role,
			Metadata:  map[string]any{"email": event.Email},
		})
		if IsIdentityUnavailable(err) {
			return nil, err
		}
		return nil, wrapAs(err, ErrCredentials, credentialMeta(err, map[string]any{"email": event.Email}))
	}

	identity := res.Identity
	h.store.ApplyIdentity(identity)

	actual := Classify(identity)
	if actual != event.Role {
		h.logger.Warn("signin role mismatch",
			"identity_id", identity.ID,
			"expected", event.Role,
			"actual", actual,
		)
		emitActivity(ctx, h.sink, h.logger, ActivityEvent{
			EventType:  ActivityEventSigninRoleMismatch,
			IdentityID: identity.ID,
			Role:       actual,
			Metadata:   map[string]any{"expected": string(event.Role)},
		})
		return nil, withMeta(ErrRoleMismatch, map[string]any{
			"identity_id": identity.ID,
			"expected":    event.Role,
			"actual":      actual,
		})
	}

	emitActivity(ctx, h.sink, h.logger, ActivityEvent{
		EventType:  ActivityEventSigninSuccess,
		IdentityID: identity.ID,
		Role:       actual,
	})

	return &SigninResult{
		Identity: identity,
		Role:     actual,
		Redirect: actual.DashboardPath(),
	}, nil
}

// SignoutHandler ends the session. The store is cleared even when the
// identity service call fails.
type SignoutHandler struct {
	client  IdentityClient
	store   *SessionStore
	logger  Logger
	sink    ActivitySink
	timeout time.Duration
}

func NewSignoutHandler(client IdentityClient, store *SessionStore) *SignoutHandler {
	return &SignoutHandler{
		client:  client,
		store:   store,
		logger:  defLogger{},
		sink:    noopActivitySink{},
		timeout: DefaultCommandTimeout,
	}
}

func (h *SignoutHandler) WithLogger(logger Logger) *SignoutHandler {
	h.logger = ensureLogger(logger)
	return h
}

func (h *SignoutHandler) WithActivitySink(sink ActivitySink) *SignoutHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *SignoutHandler) Execute(ctx context.Context) error {
	previous := h.store.GetIdentity()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	err := h.client.SignOut(ctx)
	h.store.ApplyIdentity(nil)

	event := ActivityEvent{
		EventType: ActivityEventSignout,
		Role:      Classify(previous),
	}
	if previous != nil {
		event.IdentityID = previous.ID
	}
	emitActivity(ctx, h.sink, h.logger, event)

	if err != nil {
		h.logger.Warn("identity service signout failed, local session cleared", "error", err)
		if IsIdentityUnavailable(err) {
			return err
		}
		return wrapAs(err, ErrIdentityUnavailable, nil)
	}
	return nil
}
