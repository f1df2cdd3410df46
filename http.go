package educonnect

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// InstanceMiddleware binds every request to the application instance named
// by the signed instance cookie, creating both when missing.
type InstanceMiddleware struct {
	registry *InstanceRegistry
	cookie   *InstanceCookie
	cfg      Config
	Logger   Logger
}

func NewInstanceMiddleware(registry *InstanceRegistry, cfg Config) *InstanceMiddleware {
	return &InstanceMiddleware{
		registry: registry,
		cookie:   NewInstanceCookie(cfg.GetSigningKey()),
		cfg:      cfg,
		Logger:   defLogger{},
	}
}

func (m *InstanceMiddleware) WithLogger(logger Logger) *InstanceMiddleware {
	m.Logger = ensureLogger(logger)
	m.cookie.WithLogger(m.Logger)
	return m
}

func (m *InstanceMiddleware) Handler() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			id, err := m.instanceID(c)
			if err != nil {
				return err
			}

			inst := m.registry.Resolve(c.Context(), id)
			if !inst.WaitReady(c.Context(), m.cfg.GetBootstrapWait()) {
				m.Logger.Debug("serving before session bootstrap finished", "instance", id)
			}

			c.Locals(LocalsInstanceKey, inst)
			return next(c)
		}
	}
}

// Evict drops the request's instance. The cookie is kept so the browser
// gets a fresh instance with the same id on its next request.
func (m *InstanceMiddleware) Evict(c router.Context) {
	if inst, ok := InstanceFromRouterContext(c); ok {
		m.registry.Evict(inst.ID())
	}
}

func (m *InstanceMiddleware) instanceID(c router.Context) (string, error) {
	name := m.cookieName()

	if raw := c.Cookies(name); raw != "" {
		id, err := m.cookie.Parse(raw)
		if err == nil {
			return id, nil
		}
		m.Logger.Info("discarding instance cookie", "error", err)
	}

	id := NewInstanceID()
	token, err := m.cookie.Issue(id)
	if err != nil {
		return "", err
	}

	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(m.cookie.TTL()),
		HTTPOnly: true,
		Secure:   m.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})

	return id, nil
}

func (m *InstanceMiddleware) cookieName() string {
	if name := m.cfg.GetInstanceCookieName(); name != "" {
		return name
	}
	return DefaultInstanceCookieName
}

// RequestContext returns the request context carrying the request's
// instance, which is what commands expect.
func RequestContext(c router.Context) context.Context {
	ctx := c.Context()
	if inst, ok := InstanceFromRouterContext(c); ok {
		return WithInstance(ctx, inst)
	}
	return ctx
}

// ErrorHandler renders unexpected errors. Auth errors send the user to the
// sign in chooser at signInPath, DefaultSignInPath when empty.
func ErrorHandler(logger Logger, signInPath string) func(c router.Context, err error) error {
	logger = ensureLogger(logger)
	if signInPath == "" {
		signInPath = DefaultSignInPath
	}
	return func(c router.Context, err error) error {
		var richErr *errors.Error
		if !errors.As(err, &richErr) {
			richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
				WithCode(errors.CodeInternal)
		}

		logger.Info(
			"request error handler",
			"error", richErr.Message,
			"category", richErr.Category,
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)

		switch richErr.Category {
		case errors.CategoryAuth, errors.CategoryAuthz:
			return c.Redirect(signInPath, redirectStatus(c))
		default:
			code := richErr.Code
			if code == 0 {
				code = http.StatusInternalServerError
			}
			return c.Status(code).Render("errors/500", router.ViewContext{
				"message": UserMessage(richErr),
			})
		}
	}
}
