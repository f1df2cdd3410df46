package educonnect

import (
	"maps"

	"github.com/goliatone/go-router"

	"github.com/goliatone/go-educonnect/middleware/csrf"
)

var TemplateIdentityKey = "current_identity"

// TemplateHelpers returns helper functions and constants shared by every
// view.
//
// In templates:
//
//	{% if has_role(current_identity, "educator") %}
//	<a href="{{ dashboard_path(current_identity) }}">{{ role_label(current_role) }}</a>
//	{{ csrf_field|safe }}
func TemplateHelpers() map[string]any {
	roles := map[string]string{}
	for _, role := range GetAllRoles() {
		roles[string(role)] = role.Label()
	}

	return map[string]any{
		"is_authenticated": isAuthenticated,
		"has_role":         hasRole,
		"dashboard_path":   dashboardPath,
		"role_label":       roleLabel,
		"roles":            roles,
	}
}

// TemplateHelpersWithRouter adds the request's identity and CSRF values to
// TemplateHelpers.
func TemplateHelpersWithRouter(ctx router.Context) map[string]any {
	helpers := TemplateHelpers()

	identity := CurrentIdentity(ctx)
	helpers[TemplateIdentityKey] = identity
	helpers["current_role"] = string(Classify(identity))
	helpers["authenticated"] = identity != nil

	maps.Copy(helpers, csrf.TemplateHelpers(ctx))

	return helpers
}

func isAuthenticated(identity any) bool {
	switch v := identity.(type) {
	case *Identity:
		return v != nil
	case Identity:
		return v.ID != ""
	default:
		return false
	}
}

func hasRole(identity any, role string) bool {
	expected, ok := ParseRole(role)
	if !ok {
		return false
	}
	return classifyAny(identity) == expected
}

func dashboardPath(identity any) string {
	return classifyAny(identity).DashboardPath()
}

func roleLabel(role string) string {
	return Role(role).Label()
}

func classifyAny(identity any) Role {
	switch v := identity.(type) {
	case *Identity:
		return Classify(v)
	case Identity:
		return Classify(&v)
	default:
		return RoleNone
	}
}
