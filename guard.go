package educonnect

import (
	"net/http"

	"github.com/goliatone/go-router"
)

// Decision is the outcome of evaluating a guarded screen.
type Decision struct {
	Allow    bool
	Redirect string
	// Replace means the guarded URL must not stay in navigation history.
	Replace bool
	// Reason is set when access is denied.
	Reason error
}

// Guard decides whether identity may view a screen. With expected set to
// RoleNone only the presence of an identity with a role is checked.
func Guard(identity *Identity, expected Role) Decision {
	return guardWith(identity, expected, DefaultSignInPath)
}

func guardWith(identity *Identity, expected Role, signInPath string) Decision {
	if identity == nil {
		return Decision{Redirect: signInPath, Replace: true, Reason: ErrNotAuthenticated}
	}

	role := Classify(identity)
	if role == RoleNone {
		return Decision{Redirect: signInPath, Replace: true, Reason: ErrNoRole}
	}

	if expected == RoleNone || expected == role {
		return Decision{Allow: true}
	}

	return Decision{
		Redirect: role.DashboardPath(),
		Replace:  true,
		Reason: withMeta(ErrRoleMismatch, map[string]any{
			"expected": expected,
			"actual":   role,
		}),
	}
}

type guardConfig struct {
	expected   Role
	signInPath string
	logger     Logger
}

// GuardOption configures ProtectedRoute.
type GuardOption func(*guardConfig)

// WithExpectedRole limits the route to identities of role.
func WithExpectedRole(role Role) GuardOption {
	return func(c *guardConfig) {
		c.expected = role
	}
}

func WithSignInPath(path string) GuardOption {
	return func(c *guardConfig) {
		if path != "" {
			c.signInPath = path
		}
	}
}

func WithGuardLogger(logger Logger) GuardOption {
	return func(c *guardConfig) {
		c.logger = ensureLogger(logger)
	}
}

// ProtectedRoute evaluates Guard against the request's instance store on
// every request and redirects when access is denied.
func ProtectedRoute(opts ...GuardOption) router.MiddlewareFunc {
	cfg := &guardConfig{
		signInPath: DefaultSignInPath,
		logger:     defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			decision := guardWith(CurrentIdentity(c), cfg.expected, cfg.signInPath)
			if decision.Allow {
				return next(c)
			}

			cfg.logger.Info("route guard redirect",
				"path", c.Path(),
				"redirect", decision.Redirect,
				"reason", decision.Reason,
			)

			return c.Redirect(decision.Redirect, redirectStatus(c))
		}
	}
}

// redirectStatus keeps GET semantics for GET/HEAD and switches form posts
// to a GET on the target.
func redirectStatus(c router.Context) int {
	switch c.Method() {
	case string(router.GET), http.MethodHead:
		return http.StatusFound
	default:
		return http.StatusSeeOther
	}
}
