package educonnect

import "strings"

// Role is the account side an identity belongs to.
type Role string

const (
	// RoleNone is the value for an absent identity or unusable metadata.
	RoleNone         Role = ""
	RoleOrganization Role = "organization"
	RoleEducator     Role = "educator"
)

// Classify derives the role of an identity from its metadata. It never
// fails: nil identities, missing metadata and unknown values yield RoleNone.
//
// The metadata is written by the client at sign up, so it is a hint supplied
// by the account holder rather than a server side fact.
func Classify(identity *Identity) Role {
	if identity == nil || identity.Metadata == nil {
		return RoleNone
	}

	raw, ok := identity.Metadata[MetadataUserType].(string)
	if !ok {
		return RoleNone
	}

	role := Role(raw)
	if !role.IsValid() {
		return RoleNone
	}
	return role
}

// IsValid checks if the role is one of the two account roles
func (r Role) IsValid() bool {
	switch r {
	case RoleOrganization, RoleEducator:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// DashboardPath returns the landing screen for the role, or the home path
// when the role is not valid.
func (r Role) DashboardPath() string {
	if !r.IsValid() {
		return DefaultHomePath
	}
	return "/" + string(r) + "/dashboard"
}

// ProfileTable is the table holding profile rows for the role.
func (r Role) ProfileTable() string {
	switch r {
	case RoleOrganization:
		return "organization_profiles"
	case RoleEducator:
		return "educator_profiles"
	default:
		return ""
	}
}

// Label is the human readable name of the role.
func (r Role) Label() string {
	switch r {
	case RoleOrganization:
		return "Organization"
	case RoleEducator:
		return "Educator"
	default:
		return ""
	}
}

// GetAllRoles returns the account roles in display order
func GetAllRoles() []Role {
	return []Role{
		RoleOrganization,
		RoleEducator,
	}
}

// ParseRole safely parses user input into a Role. Unknown values return
// RoleNone and false.
func ParseRole(roleStr string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(roleStr)))
	if !role.IsValid() {
		return RoleNone, false
	}
	return role, true
}
